package commerce

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const shopifyDiscountsQuery = `query FreeShippingDiscounts($first: Int!) {
  codeDiscountNodes(first: $first, query: "status:active") {
    nodes {
      id
      codeDiscount {
        __typename
        ... on DiscountCodeFreeShipping {
          title
          codes(first: 1) { nodes { code } }
          minimumRequirement {
            ... on DiscountMinimumSubtotal {
              greaterThanOrEqualToSubtotal { amount currencyCode }
            }
          }
        }
      }
    }
  }
}`

const shopifyOrderCreateMutation = `mutation OrderCreate($order: OrderCreateOrderInput!) {
  orderCreate(order: $order) {
    order { id name }
    userErrors { field message }
  }
}`

// shopifyDiscountPage bounds how many discounts are read.
const shopifyDiscountPage = 50

// Shopify is the Backend for a Shopify Admin GraphQL endpoint.
type Shopify struct {
	gql      *graphqlClient
	query    httpclient.Doer
	mutation httpclient.Doer
	currency string
}

// NewShopify creates a Shopify backend.
func NewShopify(opts Options) *Shopify {
	headers := http.Header{}
	if opts.Token != "" {
		headers.Set("X-Shopify-Access-Token", opts.Token)
	}
	return &Shopify{
		gql:      &graphqlClient{backend: KindShopify, endpoint: opts.Endpoint, headers: headers, logger: loggerOrDefault(opts.Logger)},
		query:    opts.Query,
		mutation: opts.Mutation,
		currency: opts.Currency,
	}
}

// Name implements Backend.
func (s *Shopify) Name() string { return KindShopify }

// GetShippingDiscounts implements Backend.
func (s *Shopify) GetShippingDiscounts(ctx context.Context) ([]domain.ShippingDiscount, error) {
	data, err := s.gql.do(ctx, s.query, "FreeShippingDiscounts", shopifyDiscountsQuery, map[string]any{
		"first": shopifyDiscountPage,
	})
	if err != nil {
		return nil, err
	}
	return NormalizeDiscounts(data.Get("codeDiscountNodes.nodes"), s.currency), nil
}

// CreateOrder implements Backend.
func (s *Shopify) CreateOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	data, err := s.gql.do(ctx, s.mutation, "OrderCreate", shopifyOrderCreateMutation, map[string]any{
		"order": shopifyOrderInput(req),
	})
	if err != nil {
		return nil, err
	}

	payload := data.Get("orderCreate")
	if errs := payload.Get("userErrors"); len(errs.Array()) > 0 {
		return nil, &Error{Backend: KindShopify, Op: "OrderCreate", Messages: messages(errs), Rejected: true}
	}
	order := payload.Get("order")
	if !order.IsObject() {
		return nil, &Error{Backend: KindShopify, Op: "OrderCreate", Messages: []string{"response contains no order"}}
	}

	result := NormalizeOrder(order)
	return &result, nil
}

func shopifyOrderInput(req *domain.OrderRequest) map[string]any {
	lines := make([]map[string]any, 0, len(req.LineItems))
	for _, l := range req.LineItems {
		lines = append(lines, map[string]any{"variantId": l.VariantID, "quantity": l.Quantity})
	}

	addr := req.ShippingAddress
	input := map[string]any{
		"lineItems": lines,
		"currency":  req.Currency,
		"email":     req.Customer.Email,
		"phone":     req.Customer.Phone,
		"shippingAddress": map[string]any{
			"firstName": addr.FirstName,
			"lastName":  addr.LastName,
			"address1":  addr.Address1,
			"address2":  addr.Address2,
			"city":      addr.City,
			"province":  addr.Province,
			"zip":       addr.Zip,
			"country":   addr.Country,
			"phone":     addr.Phone,
		},
		"customer": map[string]any{
			"toUpsert": map[string]any{
				"firstName": req.Customer.FirstName,
				"lastName":  req.Customer.LastName,
				"email":     req.Customer.Email,
			},
		},
	}
	if req.IdempotencyKey != "" {
		input["sourceIdentifier"] = req.IdempotencyKey
	}
	if req.ShippingLine != nil {
		input["shippingLines"] = []map[string]any{{
			"code":  req.ShippingLine.Code,
			"title": req.ShippingLine.Title,
			"priceSet": map[string]any{
				"shopMoney": map[string]any{
					"amount":       req.ShippingLine.Price.StringFixed(2),
					"currencyCode": req.ShippingLine.CurrencyCode,
				},
			},
		}}
	}
	if req.DiscountCode != "" {
		input["discountCode"] = map[string]any{
			"freeShippingDiscountCode": map[string]any{"code": req.DiscountCode},
		}
	}
	return input
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
