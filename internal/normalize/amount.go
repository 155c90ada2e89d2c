package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	europeanRe  = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*(,\d{1,2})$`)
	thousandsRe = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
	hundred     = decimal.NewFromInt(100)
)

// ParseAmount parses a single amount cell into a decimal. It accepts
// 42.99, -42.99, (42.99), $1,234.56, 1.234,56 and 1 234.56.
func ParseAmount(value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrUnparseable)
	}

	negative := strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")")
	if negative {
		v = v[1 : len(v)-1]
	}

	v = strings.TrimLeft(v, "$€£¥₹")
	v = strings.ReplaceAll(strings.TrimSpace(v), " ", "")

	switch {
	case europeanRe.MatchString(v):
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	case thousandsRe.MatchString(v):
		v = strings.ReplaceAll(v, ",", "")
	default:
		v = strings.ReplaceAll(v, ",", ".")
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrUnparseable, value)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func isZeroCell(s string) bool {
	switch s {
	case "", "0", "0.0", "0.00", "-0", "-0.0", "-0.00":
		return true
	}
	return false
}

// ParseSplitAmount interprets separate debit (outflow) and credit (inflow)
// columns. When both are present the result is the net credit minus debit.
func ParseSplitAmount(debitValue, creditValue string) (decimal.Decimal, error) {
	d := strings.TrimSpace(debitValue)
	c := strings.TrimSpace(creditValue)

	var debit, credit *decimal.Decimal
	if !isZeroCell(d) {
		if v, err := ParseAmount(d); err == nil {
			abs := v.Abs()
			debit = &abs
		}
	}
	if !isZeroCell(c) {
		if v, err := ParseAmount(c); err == nil {
			abs := v.Abs()
			credit = &abs
		}
	}

	switch {
	case debit != nil && credit != nil:
		return credit.Sub(*debit), nil
	case credit != nil:
		return *credit, nil
	case debit != nil:
		return debit.Neg(), nil
	}
	return decimal.Zero, fmt.Errorf("%w: no amount in debit=%q credit=%q", ErrUnparseable, d, c)
}

// ToCents converts a major-unit amount to minor units, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// ParseCents is ParseAmount followed by ToCents.
func ParseCents(value string) (int64, error) {
	d, err := ParseAmount(value)
	if err != nil {
		return 0, err
	}
	return ToCents(d), nil
}
