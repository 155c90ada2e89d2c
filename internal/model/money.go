package model

import "github.com/shopspring/decimal"

// FormatCents renders minor units as a signed major-unit string, e.g. -4.50.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// AbsCents returns the magnitude of an amount.
func AbsCents(cents int64) int64 {
	if cents < 0 {
		return -cents
	}
	return cents
}

// MeanCents divides total by n rounding half away from zero. n must be > 0.
func MeanCents(total int64, n int) int64 {
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(n))).Round(0).IntPart()
}
