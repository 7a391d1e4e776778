package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice parses a decimal price string as the REST API returns it ("12.5", "99.00").
// Returns false for empty or non-numeric input.
func ParsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// LineTotal multiplies a unit price by quantity and formats it with two decimals.
// Examples: ("12.5", 3) → "37.50", ("0.1", 3) → "0.30".
func LineTotal(price string, quantity int) (string, bool) {
	d, ok := ParsePrice(price)
	if !ok {
		return "", false
	}
	return d.Mul(decimal.NewFromInt(int64(quantity))).StringFixed(2), true
}

// FormatMinorUnits converts a Store API amount in minor units to a major-unit string.
// The Store API returns all cart prices this way: "8900" with minor unit 2 → "89.00".
// Invalid input formats as zero.
func FormatMinorUnits(s string, minorUnit int) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		d = decimal.Zero
	}
	return d.Shift(-int32(minorUnit)).StringFixed(int32(minorUnit))
}
