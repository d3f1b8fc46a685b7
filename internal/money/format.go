package money

import (
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"USD": "$",
	"ILS": "₪",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
	"INR": "₹",
	"TRY": "₺",
	"IDR": "Rp",
}

// Symbol returns the display symbol for a currency, or the code itself when
// no symbol is known.
func Symbol(code string) string {
	code = NormalizeCode(code)
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

// Format renders amount as the currency symbol followed by the amount with
// two decimal places. The amount must already be in the given currency.
func Format(amount decimal.Decimal, code string) string {
	ac := accounting.Accounting{
		Symbol:    Symbol(code),
		Precision: 2,
		Thousand:  ",",
		Decimal:   ".",
	}
	return ac.FormatMoneyDecimal(amount.Round(2))
}

// FormatFloat is Format for float inputs; NaN and infinities render as zero.
func FormatFloat(amount float64, code string) string {
	return Format(FromFloat(amount), code)
}
