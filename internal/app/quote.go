package app

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/pricing"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// QuoteRequest is a cart read from a file: line items in any backend's
// shape, an optional shipping rate and optional discounts.
type QuoteRequest struct {
	Items     []cart.Entry
	Rate      *domain.ShippingRate
	Discounts []domain.ShippingDiscount
	// HasDiscounts is set when the file lists discounts, even an empty list.
	HasDiscounts bool
}

// ParseQuoteRequest reads a cart file. The file is either an array of
// {product, quantity} entries or an object with "items", "shipping_rate" and
// "discounts". Amounts without a currency are in currency.
func ParseQuoteRequest(raw []byte, currency string) (*QuoteRequest, error) {
	if !gjson.ValidBytes(raw) {
		return nil, apperrors.InvalidInput("cart file is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)

	list := doc
	if !doc.IsArray() {
		list = doc.Get("items")
	}
	if !list.IsArray() {
		return nil, apperrors.InvalidInput(`cart file must be an array of items or an object with "items"`)
	}

	req := &QuoteRequest{}
	for _, item := range commerce.NormalizeLineItems(list, currency) {
		req.Items = append(req.Items, cart.Entry{Product: item.Product, Quantity: item.Quantity})
	}

	if r := doc.Get("shipping_rate"); r.IsObject() {
		rate := commerce.NormalizeShippingRate(r, currency)
		if rate.Price.IsNegative() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("shipping rate %q has a negative price", rate.ID))
		}
		req.Rate = &rate
	}

	if d := doc.Get("discounts"); d.IsArray() {
		req.HasDiscounts = true
		req.Discounts = commerce.NormalizeDiscounts(d, currency)
	}
	return req, nil
}

// Quote prices req the same way a cart would: entries are validated and
// merged, then summarized against discounts.
func Quote(eval *pricing.Evaluator, req *QuoteRequest, discounts []domain.ShippingDiscount) (cart.State, pricing.Summary, error) {
	if err := cart.ValidateEntries(req.Items); err != nil {
		return cart.State{}, pricing.Summary{}, err
	}
	state := cart.Reduce(cart.State{}, cart.AddItems{Entries: req.Items})
	state = cart.Reduce(state, cart.SelectShippingRate{Rate: req.Rate})
	return state, eval.Summarize(state.Items, state.ShippingRate, discounts), nil
}
