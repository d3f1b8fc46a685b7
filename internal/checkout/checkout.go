// Package checkout validates a cart for ordering and assembles the order
// request sent to the commerce backend.
package checkout

import (
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/pricing"
	"github.com/utafrali/storefront/pkg/validator"
)

// Validate checks that items can be ordered. Every item needs a variant and
// must be in stock; all offending products are reported together.
func Validate(items []domain.LineItem) error {
	if len(items) == 0 {
		return EmptyCart()
	}

	var unavailable []domain.Product
	for _, item := range items {
		if item.Product.VariantID == "" || !item.Product.InStock {
			unavailable = append(unavailable, item.Product)
		}
	}
	if len(unavailable) > 0 {
		return ItemsUnavailable(unavailable)
	}
	return nil
}

// ValidateShippingInfo checks the checkout form fields.
func ValidateShippingInfo(info domain.ShippingInfo) error {
	return validator.Validate(info)
}

// SplitName splits a full name at the first run of whitespace. When the name
// has a single token the last name repeats the first.
func SplitName(fullName string) (first, last string) {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "", ""
	}
	first = fields[0]
	if len(fields) == 1 {
		return first, first
	}
	return first, strings.Join(fields[1:], " ")
}

// Input is everything needed to build an order request.
type Input struct {
	IdempotencyKey string
	Items          []domain.LineItem
	Rate           *domain.ShippingRate
	Info           domain.ShippingInfo
	Summary        pricing.Summary
}

// BuildOrderRequest assembles the order request. Prices come from the
// summary, so the shipping line carries the effective shipping cost.
func BuildOrderRequest(in Input) *domain.OrderRequest {
	first, last := SplitName(in.Info.FullName)

	req := &domain.OrderRequest{
		IdempotencyKey: in.IdempotencyKey,
		LineItems:      make([]domain.OrderLine, 0, len(in.Items)),
		Customer: domain.Customer{
			FirstName: first,
			LastName:  last,
			Email:     strings.TrimSpace(in.Info.Email),
			Phone:     strings.TrimSpace(in.Info.Phone),
		},
		ShippingAddress: domain.ShippingAddress{
			FirstName: first,
			LastName:  last,
			Address1:  in.Info.Address1,
			Address2:  in.Info.Address2,
			City:      in.Info.City,
			Province:  in.Info.Province,
			Zip:       in.Info.Zip,
			Country:   in.Info.Country,
			Phone:     strings.TrimSpace(in.Info.Phone),
		},
		Currency: in.Summary.Currency,
	}

	for _, item := range in.Items {
		req.LineItems = append(req.LineItems, domain.OrderLine{
			VariantID: item.Product.VariantID,
			Quantity:  item.Quantity,
		})
	}

	if in.Rate != nil {
		title := in.Rate.Title
		if in.Summary.FreeShipping {
			title += pricing.FreeShippingSuffix
		}
		req.ShippingLine = &domain.ShippingLine{
			Code:         in.Rate.ID,
			Title:        title,
			Price:        in.Summary.Shipping,
			CurrencyCode: in.Summary.Currency,
		}
	}

	if in.Summary.Applicable != nil {
		req.DiscountCode = in.Summary.Applicable.Discount.Code
	}

	return req
}
