package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/money"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func discount(id, min, currency string) domain.ShippingDiscount {
	return domain.ShippingDiscount{
		ID:                 id,
		Title:              "Free shipping over " + min,
		Code:               "FREE" + id,
		MinimumOrderAmount: d(min),
		CurrencyCode:       currency,
		Type:               domain.DiscountTypeFreeShipping,
	}
}

func item(id, price, currency string, qty int) domain.LineItem {
	return domain.LineItem{
		Product:  domain.Product{ID: id, VariantID: "v-" + id, Price: d(price), CurrencyCode: currency, InStock: true},
		Quantity: qty,
	}
}

func newILSEvaluator() *Evaluator {
	return NewEvaluator(money.NewConverter(nil), "ILS")
}

// --- Eligibility ---

func TestEvaluate_HighestQualifyingTierWins(t *testing.T) {
	e := newILSEvaluator()
	discounts := []domain.ShippingDiscount{discount("100", "100", "ILS"), discount("200", "200", "ILS")}

	got := e.Evaluate(d("150"), discounts)

	require.NotNil(t, got.Applicable)
	assert.Equal(t, "100", got.Applicable.Discount.ID)
	assert.Nil(t, got.Nearest)
}

func TestEvaluate_PrefersHigherTierWhenBothQualify(t *testing.T) {
	e := newILSEvaluator()
	discounts := []domain.ShippingDiscount{discount("200", "200", "ILS"), discount("100", "100", "ILS")}

	got := e.Evaluate(d("250"), discounts)

	require.NotNil(t, got.Applicable)
	assert.Equal(t, "200", got.Applicable.Discount.ID)
}

func TestEvaluate_NoneQualifyReportsNearest(t *testing.T) {
	e := newILSEvaluator()
	discounts := []domain.ShippingDiscount{discount("200", "200", "ILS"), discount("100", "100", "ILS")}

	got := e.Evaluate(d("50"), discounts)

	assert.Nil(t, got.Applicable)
	require.NotNil(t, got.Nearest)
	assert.Equal(t, "100", got.Nearest.Discount.ID)
	assert.True(t, got.Remaining.Equal(d("50")))
}

func TestEvaluate_ThresholdIsInclusive(t *testing.T) {
	e := newILSEvaluator()

	got := e.Evaluate(d("100"), []domain.ShippingDiscount{discount("100", "100", "ILS")})

	require.NotNil(t, got.Applicable)
}

func TestEvaluate_ZeroSubtotalOrNoDiscounts(t *testing.T) {
	e := newILSEvaluator()

	got := e.Evaluate(decimal.Zero, []domain.ShippingDiscount{discount("0", "0", "ILS")})
	assert.Nil(t, got.Applicable)
	assert.Nil(t, got.Nearest)

	got = e.Evaluate(d("500"), nil)
	assert.Nil(t, got.Applicable)
	assert.Nil(t, got.Nearest)
}

func TestEvaluate_NormalizesThresholdCurrency(t *testing.T) {
	e := newILSEvaluator()
	// 50 USD is 185 ILS.
	discounts := []domain.ShippingDiscount{discount("usd", "50", "USD")}

	below := e.Evaluate(d("184.99"), discounts)
	require.NotNil(t, below.Nearest)
	assert.True(t, below.Nearest.Threshold.Equal(d("185")))
	assert.True(t, below.Remaining.Equal(d("0.01")))

	above := e.Evaluate(d("185"), discounts)
	require.NotNil(t, above.Applicable)
}

func TestEvaluate_TiesResolveToFirstDeclared(t *testing.T) {
	e := newILSEvaluator()
	discounts := []domain.ShippingDiscount{
		discount("first", "100", "ILS"),
		discount("second", "100", "ILS"),
	}

	qualified := e.Evaluate(d("120"), discounts)
	require.NotNil(t, qualified.Applicable)
	assert.Equal(t, "first", qualified.Applicable.Discount.ID)

	unmet := e.Evaluate(d("20"), discounts)
	require.NotNil(t, unmet.Nearest)
	assert.Equal(t, "first", unmet.Nearest.Discount.ID)
}

func TestEvaluate_IgnoresOtherDiscountTypes(t *testing.T) {
	e := newILSEvaluator()
	other := discount("pct", "10", "ILS")
	other.Type = "PERCENTAGE"

	got := e.Evaluate(d("100"), []domain.ShippingDiscount{other})

	assert.Nil(t, got.Applicable)
	assert.Nil(t, got.Nearest)
}

func TestTiers_SortedByNormalizedThreshold(t *testing.T) {
	e := newILSEvaluator()
	discounts := []domain.ShippingDiscount{
		discount("a", "300", "ILS"),
		discount("b", "50", "USD"),
		discount("c", "100", "ILS"),
		discount("d", "100", "ILS"),
	}

	tiers := e.Tiers(discounts)

	require.Len(t, tiers, 4)
	assert.Equal(t, "c", tiers[0].Discount.ID)
	assert.Equal(t, "d", tiers[1].Discount.ID)
	assert.Equal(t, "b", tiers[2].Discount.ID)
	assert.Equal(t, "a", tiers[3].Discount.ID)
}

// --- Totals ---

func TestSubtotal_ConvertsEachLine(t *testing.T) {
	e := newILSEvaluator()
	items := []domain.LineItem{
		item("a", "10", "ILS", 3),
		item("b", "10", "USD", 1),
	}

	assert.True(t, e.Subtotal(items).Equal(d("67")))
}

func TestShippingCost_NoRateIsZero(t *testing.T) {
	e := newILSEvaluator()

	cost, free := e.ShippingCost(nil, Eligibility{})

	assert.True(t, cost.IsZero())
	assert.False(t, free)
}

func TestShippingCost_ConvertsRate(t *testing.T) {
	e := newILSEvaluator()
	rate := &domain.ShippingRate{ID: "std", Price: d("10"), CurrencyCode: "USD"}

	cost, free := e.ShippingCost(rate, Eligibility{})

	assert.True(t, cost.Equal(d("37")))
	assert.False(t, free)
}

func TestShippingCost_FreeRateStaysNotDiscounted(t *testing.T) {
	e := newILSEvaluator()
	rate := &domain.ShippingRate{ID: "pickup", Price: decimal.Zero, CurrencyCode: "ILS"}
	elig := Eligibility{Applicable: &Tier{Discount: discount("1", "1", "ILS")}}

	cost, free := e.ShippingCost(rate, elig)

	assert.True(t, cost.IsZero())
	assert.False(t, free)
}

func TestSummarize_FreeShippingZeroesCost(t *testing.T) {
	e := newILSEvaluator()
	items := []domain.LineItem{item("a", "75", "ILS", 2)}
	rate := &domain.ShippingRate{ID: "std", Price: d("25"), CurrencyCode: "ILS"}
	discounts := []domain.ShippingDiscount{discount("100", "100", "ILS"), discount("200", "200", "ILS")}

	s := e.Summarize(items, rate, discounts)

	assert.True(t, s.Subtotal.Equal(d("150")))
	assert.True(t, s.BaseShipping.Equal(d("25")))
	assert.True(t, s.Shipping.IsZero())
	assert.True(t, s.Total.Equal(s.Subtotal))
	assert.True(t, s.FreeShipping)
	require.NotNil(t, s.Applicable)
	assert.Equal(t, "100", s.Applicable.Discount.ID)
	assert.Equal(t, 2, s.ItemCount)
	assert.Equal(t, "ILS", s.Currency)
}

func TestSummarize_ChargesShippingBelowThreshold(t *testing.T) {
	e := newILSEvaluator()
	items := []domain.LineItem{item("a", "25", "ILS", 2)}
	rate := &domain.ShippingRate{ID: "std", Price: d("25"), CurrencyCode: "ILS"}

	s := e.Summarize(items, rate, []domain.ShippingDiscount{discount("100", "100", "ILS")})

	assert.True(t, s.Shipping.Equal(d("25")))
	assert.True(t, s.Total.Equal(d("75")))
	assert.False(t, s.FreeShipping)
	require.NotNil(t, s.Nearest)
	assert.True(t, s.Remaining.Equal(d("50")))
}

func TestSummarize_ItemCountIsSumOfQuantities(t *testing.T) {
	e := newILSEvaluator()
	items := []domain.LineItem{item("a", "1", "ILS", 2), item("b", "1", "ILS", 3)}

	s := e.Summarize(items, nil, nil)

	assert.Equal(t, 5, s.ItemCount)
	assert.True(t, s.Total.Equal(d("5")))
}

func TestEvaluator_Format(t *testing.T) {
	e := newILSEvaluator()

	assert.Equal(t, "₪150.00", e.Format(d("150")))
	assert.Equal(t, "ILS", e.DisplayCurrency())
}
