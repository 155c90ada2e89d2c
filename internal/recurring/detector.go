// Package recurring detects merchants that charge on a regular cadence.
package recurring

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/normalize"
)

// Config tunes recurring detection.
type Config struct {
	MinOccurrences int
	MaxGapStdDev   float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{MinOccurrences: 3, MaxGapStdDev: 4}
}

var (
	noiseWordRe = regexp.MustCompile(`\b(inc|llc|corp|co|ltd|the|of)\b`)
	refRe       = regexp.MustCompile(`#\w+`)
	longDigitRe = regexp.MustCompile(`\b\d{4,}\b`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// MerchantKey strips corporate suffixes, reference numbers and long digit
// runs so "NETFLIX INC #2231" and "Netflix" group together.
func MerchantKey(txn *model.Transaction) string {
	s := strings.ToLower(txn.DisplayMerchant())
	s = refRe.ReplaceAllString(s, " ")
	s = longDigitRe.ReplaceAllString(s, " ")
	s = noiseWordRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Classify maps a mean gap in days to a cadence.
func Classify(meanGap float64) (model.RecurringPattern, bool) {
	switch {
	case meanGap >= 5 && meanGap <= 9:
		return model.PatternWeekly, true
	case meanGap >= 11 && meanGap <= 17:
		return model.PatternBiweekly, true
	case meanGap >= 24 && meanGap <= 35:
		return model.PatternMonthly, true
	}
	return "", false
}

type groupKey struct {
	merchant string
	outflow  bool
}

// Detect groups non-transfer transactions by merchant key and direction and
// returns the groups whose gaps follow a consistent cadence, newest first.
func Detect(txns []model.Transaction, cfg Config) []model.RecurringGroup {
	groups := make(map[groupKey][]*model.Transaction)
	for i := range txns {
		t := &txns[i]
		if t.IsTransfer() || t.AmountCents == 0 {
			continue
		}
		key := MerchantKey(t)
		if key == "" {
			continue
		}
		k := groupKey{merchant: key, outflow: t.AmountCents < 0}
		groups[k] = append(groups[k], t)
	}

	var out []model.RecurringGroup
	for k, rows := range groups {
		if len(rows) < cfg.MinOccurrences {
			continue
		}
		if g, ok := analyze(k.merchant, rows, cfg); ok {
			out = append(out, g)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastDate.Equal(out[j].LastDate) {
			return out[i].LastDate.After(out[j].LastDate)
		}
		if out[i].MerchantKey != out[j].MerchantKey {
			return out[i].MerchantKey < out[j].MerchantKey
		}
		return out[i].AvgAmountCents < out[j].AvgAmountCents
	})
	return out
}

func analyze(key string, rows []*model.Transaction, cfg Config) (model.RecurringGroup, bool) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].PostedDate.Equal(rows[j].PostedDate) {
			return rows[i].PostedDate.Before(rows[j].PostedDate)
		}
		return rows[i].ID < rows[j].ID
	})

	gaps := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		gaps = append(gaps, float64(normalize.DaysBetween(rows[i].PostedDate, rows[i-1].PostedDate)))
	}
	mean, stddev := meanStdDev(gaps)
	if stddev > cfg.MaxGapStdDev {
		return model.RecurringGroup{}, false
	}
	pattern, ok := Classify(mean)
	if !ok {
		return model.RecurringGroup{}, false
	}

	var total int64
	names := make(map[string]int)
	refs := make([]model.RecurringTransaction, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		t := rows[i]
		total += t.AmountCents
		names[t.DisplayMerchant()]++
		refs = append(refs, model.RecurringTransaction{
			ID:             t.ID,
			PostedDate:     t.PostedDate,
			DescriptionRaw: t.DescriptionRaw,
			AmountCents:    t.AmountCents,
		})
	}

	return model.RecurringGroup{
		MerchantKey:    key,
		Merchant:       mostFrequent(names),
		Pattern:        pattern,
		AvgAmountCents: model.MeanCents(total, len(rows)),
		Count:          len(rows),
		LastDate:       rows[len(rows)-1].PostedDate,
		Transactions:   refs,
	}, true
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func mostFrequent(names map[string]int) string {
	best, bestN := "", -1
	for name, n := range names {
		if n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return best
}
