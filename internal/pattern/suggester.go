package pattern

import (
	"sort"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// SuggestConfig tunes rule suggestion thresholds.
type SuggestConfig struct {
	MinManual        int
	MinUncategorized int
	Priority         int
}

// DefaultSuggestConfig returns the standard thresholds.
func DefaultSuggestConfig() SuggestConfig {
	return SuggestConfig{MinManual: 3, MinUncategorized: 3, Priority: model.DefaultRulePriority}
}

type merchantGroup struct {
	names map[string]int
	key   string
	rows  []*model.Transaction
}

// display picks the most frequent spelling of the merchant, then the
// lexically smallest.
func (g *merchantGroup) display() string {
	best, bestN := "", -1
	for name, n := range g.names {
		if n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return best
}

// Suggest mines txns for rules worth adding. Merchants with at least one
// transaction already matched by an active rule are skipped. A merchant that
// qualifies through manual consistency is not also suggested for volume.
func Suggest(txns []model.Transaction, rules []model.Rule, cfg SuggestConfig) []model.RuleSuggestion {
	matcher := NewMatcher(rules)

	groups := make(map[string]*merchantGroup)
	var order []string
	for i := range txns {
		txn := &txns[i]
		if txn.IsTransfer() {
			continue
		}
		key := txn.MerchantKey()
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &merchantGroup{key: key, names: make(map[string]int)}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, txn)
		g.names[txn.DisplayMerchant()]++
	}

	var out []model.RuleSuggestion
	for _, key := range order {
		g := groups[key]
		if covered(matcher, g.rows) {
			continue
		}
		if s, ok := manualSuggestion(g, cfg); ok {
			out = append(out, s)
			continue
		}
		if s, ok := volumeSuggestion(g, cfg); ok {
			out = append(out, s)
		}
	}

	SortSuggestions(out)
	return out
}

// SortSuggestions orders manual_consistency first, then count descending,
// then merchant ascending.
func SortSuggestions(s []model.RuleSuggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Source != s[j].Source {
			return s[i].Source == model.SuggestFromManual
		}
		if s[i].Count != s[j].Count {
			return s[i].Count > s[j].Count
		}
		return s[i].Merchant < s[j].Merchant
	})
}

func covered(m *Matcher, rows []*model.Transaction) bool {
	for _, txn := range rows {
		if _, ok := m.Categorize(txn); ok {
			return true
		}
	}
	return false
}

func manualSuggestion(g *merchantGroup, cfg SuggestConfig) (model.RuleSuggestion, bool) {
	var manual []*model.Transaction
	for _, txn := range g.rows {
		if txn.CategorySource == model.SourceManual && txn.CategoryID != nil {
			manual = append(manual, txn)
		}
	}
	if len(manual) < cfg.MinManual {
		return model.RuleSuggestion{}, false
	}

	category := *manual[0].CategoryID
	for _, txn := range manual[1:] {
		if *txn.CategoryID != category {
			return model.RuleSuggestion{}, false
		}
	}

	s := newSuggestion(g, manual, model.SuggestFromManual)
	s.CategoryID = &category
	s.Confidence = min(100, 70+10*(len(manual)-cfg.MinManual))
	return s, true
}

func volumeSuggestion(g *merchantGroup, cfg SuggestConfig) (model.RuleSuggestion, bool) {
	var uncategorized []*model.Transaction
	votes := make(map[int64]int)
	for _, txn := range g.rows {
		if txn.CategoryID == nil {
			uncategorized = append(uncategorized, txn)
		} else {
			votes[*txn.CategoryID]++
		}
	}
	if len(uncategorized) < cfg.MinUncategorized {
		return model.RuleSuggestion{}, false
	}

	s := newSuggestion(g, uncategorized, model.SuggestFromUncategorized)
	s.Confidence = min(95, 30+2*len(uncategorized))
	if id, ok := mostCommon(votes); ok {
		s.CategoryID = &id
		s.Confidence = min(100, s.Confidence+10)
	}
	return s, true
}

// mostCommon returns the category with the most votes, lowest ID on ties.
func mostCommon(votes map[int64]int) (int64, bool) {
	var best int64
	bestN := 0
	for id, n := range votes {
		if n > bestN || (n == bestN && id < best) {
			best, bestN = id, n
		}
	}
	return best, bestN > 0
}

func newSuggestion(g *merchantGroup, rows []*model.Transaction, source model.SuggestionSource) model.RuleSuggestion {
	var total int64
	for _, txn := range rows {
		total += txn.AmountCents
	}
	name := g.display()
	return model.RuleSuggestion{
		Merchant:   name,
		MatchType:  model.MatchExact,
		Pattern:    name,
		Source:     source,
		Count:      len(rows),
		TotalCents: total,
		AvgCents:   model.MeanCents(total, len(rows)),
	}
}
