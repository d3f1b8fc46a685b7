package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/money"
)

// FreeShippingSuffix is appended to the shipping line title when a discount
// zeroed the shipping cost.
const FreeShippingSuffix = " (Free Shipping)"

// Summary is the priced view of a cart. All amounts are in Currency.
type Summary struct {
	Currency     string          `json:"currency"`
	ItemCount    int             `json:"item_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	BaseShipping decimal.Decimal `json:"base_shipping"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	FreeShipping bool            `json:"free_shipping"`
	Applicable   *Tier           `json:"applicable_discount,omitempty"`
	Nearest      *Tier           `json:"nearest_discount,omitempty"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// Subtotal sums every line total after converting it to the display currency.
func (e *Evaluator) Subtotal(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(e.conv.Convert(item.LineTotal(), item.Product.CurrencyCode, e.display))
	}
	return sum
}

// BaseShipping returns the selected rate's price in the display currency,
// or zero when no rate is selected.
func (e *Evaluator) BaseShipping(rate *domain.ShippingRate) decimal.Decimal {
	if rate == nil {
		return decimal.Zero
	}
	return e.conv.Convert(rate.Price, rate.CurrencyCode, e.display)
}

// ShippingCost returns the effective shipping cost: the base cost, or zero
// when a discount applies to a positive base cost. The second result reports
// whether the discount zeroed it.
func (e *Evaluator) ShippingCost(rate *domain.ShippingRate, eligibility Eligibility) (decimal.Decimal, bool) {
	base := e.BaseShipping(rate)
	if eligibility.Applicable != nil && base.IsPositive() {
		return decimal.Zero, true
	}
	return base, false
}

// Summarize prices items with the selected rate against the discounts.
func (e *Evaluator) Summarize(items []domain.LineItem, rate *domain.ShippingRate, discounts []domain.ShippingDiscount) Summary {
	subtotal := e.Subtotal(items)
	eligibility := e.Evaluate(subtotal, discounts)
	shipping, free := e.ShippingCost(rate, eligibility)

	return Summary{
		Currency:     e.display,
		ItemCount:    domain.ItemCount(items),
		Subtotal:     subtotal,
		BaseShipping: e.BaseShipping(rate),
		Shipping:     shipping,
		Total:        subtotal.Add(shipping),
		FreeShipping: free,
		Applicable:   eligibility.Applicable,
		Nearest:      eligibility.Nearest,
		Remaining:    eligibility.Remaining,
	}
}

// Format renders amount, already in the display currency, for display.
func (e *Evaluator) Format(amount decimal.Decimal) string {
	return money.Format(amount, e.display)
}
