// Package types provides common types used across debtbook.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency used when none is configured.
const DefaultCurrency = "inr"

// Amounts are exact decimals. Every amount must fit the minor unit of the
// account currency; finer precision is rejected, never rounded.
//
// Examples:
//   - Format(decimal.RequireFromString("1250.5"), "inr") = "₹1,250.50"
//   - Format(decimal.NewFromInt(100), "jpy") = "¥100"

// ParseAmount parses a decimal string such as "150.75".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount: parse %q: %w", s, err)
	}
	return d, nil
}

// FitsCurrency reports whether d has no more fractional digits than the
// currency's minor unit allows.
func FitsCurrency(d decimal.Decimal, currency string) bool {
	scale := int32(currencyDecimals(currency))
	return d.Equal(d.Truncate(scale))
}

// Format renders d with the currency symbol, thousands separators and the
// currency's fixed number of decimals.
func Format(d decimal.Decimal, currency string) string {
	decimals := int32(currencyDecimals(currency))
	fixed := d.StringFixed(decimals)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, frac, hasFrac := strings.Cut(fixed, ".")
	out := groupThousands(intPart)
	if hasFrac {
		out += "." + frac
	}
	return sign + currencySymbol(currency) + out
}

// Sum adds the given amounts. Sum() is zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"inr": "₹",
		"usd": "$",
		"eur": "€",
		"gbp": "£",
		"jpy": "¥",
		"cad": "C$",
		"aud": "A$",
		"chf": "CHF ",
		"cny": "¥",
		"sek": "kr ",
		"nzd": "NZ$",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of decimal places for a currency.
func currencyDecimals(currency string) int {
	zeroDecimal := map[string]bool{
		"jpy": true, // Japanese Yen
		"krw": true, // Korean Won
		"vnd": true, // Vietnamese Dong
		"clp": true, // Chilean Peso
		"pyg": true, // Paraguayan Guarani
		"idr": true, // Indonesian Rupiah
	}
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	return 2
}
