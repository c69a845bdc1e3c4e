package readmodel

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is the naira sign used for every displayed amount
const CurrencySymbol = "₦"

func init() {
	// The backend exchanges amounts as bare JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// FormatPrice renders an amount as naira with two decimals and thousands separators
func FormatPrice(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + CurrencySymbol + b.String() + "." + frac
}
