package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalLenient returns zero for empty or unparseable input.
func ParseDecimalLenient(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func BoolPtr(b bool) *bool {
	return &b
}
