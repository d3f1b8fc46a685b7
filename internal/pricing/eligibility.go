// Package pricing computes cart totals and free-shipping eligibility in a
// single display currency.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/money"
)

// Evaluator prices carts in one display currency. It holds no cart state;
// every result is a function of its arguments.
type Evaluator struct {
	conv    *money.Converter
	display string
}

// NewEvaluator creates an evaluator that normalizes into display.
func NewEvaluator(conv *money.Converter, display string) *Evaluator {
	return &Evaluator{conv: conv, display: money.NormalizeCode(display)}
}

// DisplayCurrency returns the currency all results are expressed in.
func (e *Evaluator) DisplayCurrency() string {
	return e.display
}

// Tier is a discount with its threshold in the display currency.
type Tier struct {
	Discount  domain.ShippingDiscount `json:"discount"`
	Threshold decimal.Decimal         `json:"threshold"`
}

// Eligibility is the outcome of evaluating a subtotal against the discounts.
// At most one of Applicable and Nearest is set.
type Eligibility struct {
	Applicable *Tier
	Nearest    *Tier
	// Remaining is how much more must be spent to reach Nearest.
	Remaining decimal.Decimal
}

// Threshold returns the discount's minimum order amount in the display currency.
func (e *Evaluator) Threshold(d domain.ShippingDiscount) decimal.Decimal {
	return e.conv.Convert(d.MinimumOrderAmount, d.CurrencyCode, e.display)
}

// Evaluate selects the applicable free-shipping discount for subtotal, which
// must already be in the display currency. Among qualifying discounts the
// highest threshold wins; when none qualify the lowest unmet threshold is
// reported as Nearest. Equal thresholds resolve to the first declared.
func (e *Evaluator) Evaluate(subtotal decimal.Decimal, discounts []domain.ShippingDiscount) Eligibility {
	var result Eligibility
	if len(discounts) == 0 || subtotal.IsZero() {
		return result
	}

	for _, d := range discounts {
		if !d.IsFreeShipping() {
			continue
		}
		tier := Tier{Discount: d, Threshold: e.Threshold(d)}

		if subtotal.GreaterThanOrEqual(tier.Threshold) {
			if result.Applicable == nil || tier.Threshold.GreaterThan(result.Applicable.Threshold) {
				t := tier
				result.Applicable = &t
			}
			continue
		}
		if result.Nearest == nil || tier.Threshold.LessThan(result.Nearest.Threshold) {
			t := tier
			result.Nearest = &t
		}
	}

	if result.Applicable != nil {
		result.Nearest = nil
		return result
	}
	if result.Nearest != nil {
		result.Remaining = result.Nearest.Threshold.Sub(subtotal)
	}
	return result
}

// Tiers returns the free-shipping discounts ordered by display-currency
// threshold, keeping declaration order among equal thresholds.
func (e *Evaluator) Tiers(discounts []domain.ShippingDiscount) []Tier {
	tiers := make([]Tier, 0, len(discounts))
	for _, d := range discounts {
		if !d.IsFreeShipping() {
			continue
		}
		tiers = append(tiers, Tier{Discount: d, Threshold: e.Threshold(d)})
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].Threshold.LessThan(tiers[j].Threshold)
	})
	return tiers
}
