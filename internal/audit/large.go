package audit

import (
	"fmt"
	"sort"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

type sampleKey struct {
	category int64
	outflow  bool
}

// median returns the middle of values, averaging the two middle elements
// for even counts. values is sorted in place.
func median(values []int64) float64 {
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	n := len(values)
	if n%2 == 1 {
		return float64(values[n/2])
	}
	return float64(values[n/2-1]+values[n/2]) / 2
}

// large flags rows whose magnitude exceeds LargeMultiplier times the median
// of comparable window rows: same direction and category when that category
// has enough samples, otherwise all rows of the same direction.
func large(window []model.Transaction, cfg Config) []model.AuditFlag {
	byCategory := make(map[sampleKey][]int64)
	overall := make(map[bool][]int64)
	for i := range window {
		t := &window[i]
		if t.IsTransfer() || t.AmountCents == 0 {
			continue
		}
		out := t.AmountCents < 0
		abs := model.AbsCents(t.AmountCents)
		overall[out] = append(overall[out], abs)
		if t.CategoryID != nil {
			k := sampleKey{category: *t.CategoryID, outflow: out}
			byCategory[k] = append(byCategory[k], abs)
		}
	}

	categoryMedian := make(map[sampleKey]float64, len(byCategory))
	for k, v := range byCategory {
		if len(v) >= cfg.MinSample {
			categoryMedian[k] = median(v)
		}
	}
	overallMedian := make(map[bool]float64, 2)
	for k, v := range overall {
		if len(v) >= cfg.MinSample {
			overallMedian[k] = median(v)
		}
	}

	var flags []model.AuditFlag
	for i := range window {
		t := &window[i]
		if t.IsTransfer() || t.AmountCents == 0 {
			continue
		}
		out := t.AmountCents < 0

		var (
			base   float64
			source string
			ok     bool
		)
		if t.CategoryID != nil {
			base, ok = categoryMedian[sampleKey{category: *t.CategoryID, outflow: out}]
			source = "category"
		}
		if !ok {
			base, ok = overallMedian[out]
			source = "overall"
		}
		if !ok || base <= 0 {
			continue
		}

		abs := float64(model.AbsCents(t.AmountCents))
		if abs > cfg.LargeMultiplier*base {
			flags = append(flags, model.AuditFlag{
				Type:     model.FlagUnusuallyLarge,
				Severity: model.SeverityWarning,
				Explanation: fmt.Sprintf("%s is %.1fx the %s median (%s)",
					model.FormatCents(model.AbsCents(t.AmountCents)), abs/base, source, model.FormatCents(int64(base+0.5))),
				Transaction: *t,
			})
		}
	}
	return flags
}
