// Package money normalizes monetary amounts into a single display currency
// and renders them for display.
package money

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency every rate in the table is expressed against.
const BaseCurrency = "USD"

const (
	// divisionScale bounds the intermediate precision of a from->base division.
	divisionScale = 16
	// conversionScale is the number of decimal places kept on converted amounts.
	conversionScale = 8
)

// defaultRates are units of each currency per one unit of BaseCurrency.
var defaultRates = map[string]string{
	"USD": "1",
	"ILS": "3.7",
	"EUR": "0.92",
	"GBP": "0.79",
	"JPY": "149.5",
	"CAD": "1.36",
	"AUD": "1.52",
	"INR": "83.2",
	"TRY": "32.5",
	"IDR": "15650",
}

// Converter converts amounts between currencies using a fixed rate table.
// A Converter is immutable after construction and safe for concurrent use.
type Converter struct {
	rates map[string]decimal.Decimal
}

// NewConverter creates a converter seeded with the built-in rate table and
// overridden by the given rates. Codes are case-insensitive.
func NewConverter(overrides map[string]decimal.Decimal) *Converter {
	rates := make(map[string]decimal.Decimal, len(defaultRates)+len(overrides))
	for code, raw := range defaultRates {
		rates[code] = decimal.RequireFromString(raw)
	}
	for code, rate := range overrides {
		rates[NormalizeCode(code)] = rate
	}
	return &Converter{rates: rates}
}

// Rate returns the rate of the given currency against BaseCurrency.
// Unknown currencies have a rate of 1.
func (c *Converter) Rate(code string) decimal.Decimal {
	if rate, ok := c.rates[NormalizeCode(code)]; ok && rate.IsPositive() {
		return rate
	}
	return decimal.NewFromInt(1)
}

// Known reports whether the currency has an entry in the rate table.
func (c *Converter) Known(code string) bool {
	_, ok := c.rates[NormalizeCode(code)]
	return ok
}

// Codes returns the currencies in the rate table, sorted.
func (c *Converter) Codes() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Convert converts amount from one currency to another through BaseCurrency.
// When from and to are the same currency the amount is returned unchanged.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	if NormalizeCode(from) == NormalizeCode(to) {
		return amount
	}
	inBase := amount.DivRound(c.Rate(from), divisionScale)
	return inBase.Mul(c.Rate(to)).Round(conversionScale)
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseRates parses a CODE->rate map as read from configuration.
func ParseRates(raw map[string]string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(raw))
	for code, value := range raw {
		code = NormalizeCode(code)
		if code == "" {
			return nil, fmt.Errorf("exchange rate with empty currency code")
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("exchange rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("exchange rate for %s must be positive, got %s", code, rate)
		}
		rates[code] = rate
	}
	return rates, nil
}

// FromFloat converts a float into a decimal. NaN and infinities become zero.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
