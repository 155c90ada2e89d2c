package pattern

import (
	"testing"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMatcher_Categorize(t *testing.T) {
	tests := []struct {
		name    string
		rules   []model.Rule
		txn     model.Transaction
		wantID  int64
		wantHit bool
	}{
		{
			name:    "contains is case insensitive on raw description",
			rules:   []model.Rule{{ID: 1, Pattern: "netflix", MatchType: model.MatchContains, CategoryID: 7, IsActive: true}},
			txn:     model.Transaction{DescriptionRaw: "ACH DEBIT NETFLIX.COM"},
			wantID:  1,
			wantHit: true,
		},
		{
			name:    "regex is case insensitive",
			rules:   []model.Rule{{ID: 2, Pattern: `^uber\s+(trip|eats)`, MatchType: model.MatchRegex, CategoryID: 3, IsActive: true}},
			txn:     model.Transaction{DescriptionRaw: "UBER   EATS 8005928996"},
			wantID:  2,
			wantHit: true,
		},
		{
			name:    "exact compares canonical merchant",
			rules:   []model.Rule{{ID: 3, Pattern: "Amazon", MatchType: model.MatchExact, CategoryID: 4, IsActive: true}},
			txn:     model.Transaction{DescriptionRaw: "AMZN MKTP US*2K4", Merchant: "Amzn Mktp Us", MerchantCanonical: strPtr(" amazon ")},
			wantID:  3,
			wantHit: true,
		},
		{
			name:    "exact falls back to merchant",
			rules:   []model.Rule{{ID: 4, Pattern: "trader joe's", MatchType: model.MatchExact, CategoryID: 1, IsActive: true}},
			txn:     model.Transaction{DescriptionRaw: "TRADER JOE'S #552", Merchant: "Trader Joe's"},
			wantID:  4,
			wantHit: true,
		},
		{
			name:  "exact does not match substrings",
			rules: []model.Rule{{ID: 5, Pattern: "Trader", MatchType: model.MatchExact, CategoryID: 1, IsActive: true}},
			txn:   model.Transaction{Merchant: "Trader Joe's"},
		},
		{
			name:  "inactive rules are skipped",
			rules: []model.Rule{{ID: 6, Pattern: "coffee", MatchType: model.MatchContains, CategoryID: 1}},
			txn:   model.Transaction{DescriptionRaw: "COFFEE SHOP"},
		},
		{
			name: "higher priority wins",
			rules: []model.Rule{
				{ID: 1, Pattern: "coffee", MatchType: model.MatchContains, CategoryID: 1, Priority: 10, IsActive: true},
				{ID: 2, Pattern: "shop", MatchType: model.MatchContains, CategoryID: 2, Priority: 90, IsActive: true},
			},
			txn:     model.Transaction{DescriptionRaw: "COFFEE SHOP"},
			wantID:  2,
			wantHit: true,
		},
		{
			name: "equal priority lower id wins regardless of input order",
			rules: []model.Rule{
				{ID: 9, Pattern: "coffee", MatchType: model.MatchContains, CategoryID: 9, Priority: 50, IsActive: true},
				{ID: 3, Pattern: "shop", MatchType: model.MatchContains, CategoryID: 3, Priority: 50, IsActive: true},
			},
			txn:     model.Transaction{DescriptionRaw: "COFFEE SHOP"},
			wantID:  3,
			wantHit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := Categorize(&tt.txn, tt.rules)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, tt.wantID, rule.ID)
			}
		})
	}
}

func TestMatcher_Deterministic(t *testing.T) {
	rules := []model.Rule{
		{ID: 5, Pattern: "market", MatchType: model.MatchContains, CategoryID: 5, Priority: 10, IsActive: true},
		{ID: 2, Pattern: "whole", MatchType: model.MatchContains, CategoryID: 2, Priority: 10, IsActive: true},
		{ID: 8, Pattern: "foods", MatchType: model.MatchContains, CategoryID: 8, Priority: 10, IsActive: true},
	}
	txn := model.Transaction{DescriptionRaw: "WHOLE FOODS MARKET"}

	for i := 0; i < 20; i++ {
		rule, ok := Categorize(&txn, rules)
		require.True(t, ok)
		assert.Equal(t, int64(2), rule.ID)
		rules[0], rules[2] = rules[2], rules[0]
	}
}

func TestMatcher_InvalidRegexDisabled(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Pattern: "([unclosed", MatchType: model.MatchRegex, CategoryID: 1, Priority: 99, IsActive: true},
		{ID: 2, Pattern: "coffee", MatchType: model.MatchContains, CategoryID: 2, Priority: 1, IsActive: true},
	}
	m := NewMatcher(rules)

	require.Len(t, m.Disabled(), 1)
	assert.Equal(t, int64(1), m.Disabled()[0].RuleID)
	assert.Len(t, m.Rules(), 1)

	rule, ok := m.Categorize(&model.Transaction{DescriptionRaw: "COFFEE SHOP"})
	require.True(t, ok)
	assert.Equal(t, int64(2), rule.ID)
	assert.False(t, m.Matches(rules[0], &model.Transaction{DescriptionRaw: "([unclosed"}))
}

func TestMatcher_Assign(t *testing.T) {
	rules := []model.Rule{{ID: 4, Pattern: "netflix", MatchType: model.MatchContains, CategoryID: 12, Priority: 50, IsActive: true}}
	m := NewMatcher(rules)

	txn := model.Transaction{DescriptionRaw: "NETFLIX.COM"}
	a := m.Assign(&txn)
	require.NotNil(t, a.CategoryID)
	assert.Equal(t, int64(12), *a.CategoryID)
	assert.Equal(t, model.SourceRule, a.Source)
	assert.Equal(t, &model.RuleProvenance{RuleID: 4, Pattern: "netflix", MatchType: model.MatchContains, Priority: 50}, a.Provenance)
	assert.True(t, a.Changes(&txn))

	txn.CategoryID, txn.CategorySource, txn.Provenance = a.CategoryID, a.Source, a.Provenance
	assert.False(t, m.Assign(&txn).Changes(&txn))

	none := m.Assign(&model.Transaction{DescriptionRaw: "SPOTIFY"})
	assert.Nil(t, none.CategoryID)
	assert.Equal(t, model.SourceNone, none.Source)
}

func TestSortRules(t *testing.T) {
	rules := []model.Rule{
		{ID: 3, Priority: 10},
		{ID: 1, Priority: 10},
		{ID: 2, Priority: 80},
	}
	SortRules(rules)
	assert.Equal(t, []int64{2, 1, 3}, []int64{rules[0].ID, rules[1].ID, rules[2].ID})
}
