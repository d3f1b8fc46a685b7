package commerce

import (
	"context"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const bagistoRulesQuery = `query FreeShippingRules {
  freeShippingRules {
    id
    name
    couponCode
    actionType
    minimumOrderAmount
    currencyCode
  }
}`

const bagistoPlaceOrderMutation = `mutation PlaceOrder($input: PlaceOrderInput!) {
  placeOrder(input: $input) {
    success
    message
    order { id incrementId }
  }
}`

// Bagisto is the Backend for a Bagisto GraphQL API.
type Bagisto struct {
	gql      *graphqlClient
	query    httpclient.Doer
	mutation httpclient.Doer
	currency string
}

// NewBagisto creates a Bagisto backend.
func NewBagisto(opts Options) *Bagisto {
	headers := http.Header{}
	if opts.Token != "" {
		headers.Set("Authorization", "Bearer "+opts.Token)
	}
	return &Bagisto{
		gql:      &graphqlClient{backend: KindBagisto, endpoint: opts.Endpoint, headers: headers, logger: loggerOrDefault(opts.Logger)},
		query:    opts.Query,
		mutation: opts.Mutation,
		currency: opts.Currency,
	}
}

// Name implements Backend.
func (b *Bagisto) Name() string { return KindBagisto }

// GetShippingDiscounts implements Backend.
func (b *Bagisto) GetShippingDiscounts(ctx context.Context) ([]domain.ShippingDiscount, error) {
	data, err := b.gql.do(ctx, b.query, "FreeShippingRules", bagistoRulesQuery, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeDiscounts(data.Get("freeShippingRules"), b.currency), nil
}

// CreateOrder implements Backend.
func (b *Bagisto) CreateOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	data, err := b.gql.do(ctx, b.mutation, "PlaceOrder", bagistoPlaceOrderMutation, map[string]any{
		"input": bagistoOrderInput(req),
	})
	if err != nil {
		return nil, err
	}

	payload := data.Get("placeOrder")
	if s := payload.Get("success"); s.Exists() && !s.Bool() {
		msg := payload.Get("message").String()
		if msg == "" {
			msg = "order was not placed"
		}
		return nil, &Error{Backend: KindBagisto, Op: "PlaceOrder", Messages: []string{msg}, Rejected: true}
	}
	order := payload.Get("order")
	if !order.IsObject() {
		return nil, &Error{Backend: KindBagisto, Op: "PlaceOrder", Messages: []string{"response contains no order"}}
	}

	result := NormalizeOrder(order)
	return &result, nil
}

func bagistoOrderInput(req *domain.OrderRequest) map[string]any {
	items := make([]map[string]any, 0, len(req.LineItems))
	for _, l := range req.LineItems {
		items = append(items, map[string]any{"productId": l.VariantID, "quantity": l.Quantity})
	}

	addr := req.ShippingAddress
	input := map[string]any{
		"items":    items,
		"currency": req.Currency,
		"shipping": map[string]any{
			"firstName": addr.FirstName,
			"lastName":  addr.LastName,
			"email":     req.Customer.Email,
			"address":   joinNonEmpty(addr.Address1, addr.Address2),
			"city":      addr.City,
			"state":     addr.Province,
			"postcode":  addr.Zip,
			"country":   addr.Country,
			"phone":     addr.Phone,
		},
	}
	if req.IdempotencyKey != "" {
		input["idempotencyKey"] = req.IdempotencyKey
	}
	if req.ShippingLine != nil {
		input["shippingMethod"] = req.ShippingLine.Code
		input["shippingTitle"] = req.ShippingLine.Title
		input["shippingAmount"] = req.ShippingLine.Price.StringFixed(2)
	}
	if req.DiscountCode != "" {
		input["couponCode"] = req.DiscountCode
	}
	return input
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}
