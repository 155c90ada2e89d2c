package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySuggestion(t *testing.T) {
	e, db := newTestEngine(t, "Groceries")
	ctx := context.Background()
	groceries := db.MustCategory("Groceries")
	admitRows(t, e, "Checking", model.AccountChecking, testutil.Series("TRADER JOE'S #552", -6400, jan(1), 2, 50)...)

	suggestions, err := e.RuleSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	res, err := e.ApplySuggestion(ctx, SuggestionInput{
		Merchant:   suggestions[0].Merchant,
		Pattern:    suggestions[0].Pattern,
		MatchType:  suggestions[0].MatchType,
		CategoryID: groceries,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, res.UpdatedTransactions)
	assert.Equal(t, res.Rule.ID, res.CreatedRuleID)
	assert.Equal(t, model.DefaultRulePriority, res.Rule.Priority)

	for _, txn := range allTransactions(t, e) {
		require.NotNil(t, txn.CategoryID)
		assert.Equal(t, groceries, *txn.CategoryID)
		assert.Equal(t, res.CreatedRuleID, txn.Provenance.RuleID)
	}
}

func TestApplySuggestion_OverridesManualRowsOfMerchant(t *testing.T) {
	e, db := newTestEngine(t, "Groceries", "Dining")
	ctx := context.Background()
	groceries, dining := db.MustCategory("Groceries"), db.MustCategory("Dining")
	admitRows(t, e, "Checking", model.AccountChecking,
		testutil.Row(jan(1), "TRADER JOE'S #552", "-20.00"),
		testutil.Row(jan(2), "TRADER JOE'S #552", "-30.00"),
		testutil.Row(jan(3), "CORNER CAFE", "-5.00"),
	)

	first := allTransactions(t, e)[0]
	_, err := e.SetManualCategory(ctx, first.ID, &dining)
	require.NoError(t, err)
	cafe := findByDescription(t, e, "CORNER CAFE")
	_, err = e.SetManualCategory(ctx, cafe.ID, &dining)
	require.NoError(t, err)

	res, err := e.ApplySuggestion(ctx, SuggestionInput{Merchant: first.DisplayMerchant(), CategoryID: groceries})
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedTransactions)
	assert.Equal(t, model.MatchExact, res.Rule.MatchType)

	cafe = findByDescription(t, e, "CORNER CAFE")
	assert.Equal(t, model.SourceManual, cafe.CategorySource)
	assert.Equal(t, dining, *cafe.CategoryID)
}

func TestApplySuggestion_LeavesOtherRulesUnapplied(t *testing.T) {
	e, db := newTestEngine(t, "Groceries", "Dining", "Wine")
	ctx := context.Background()
	groceries, dining, wine := db.MustCategory("Groceries"), db.MustCategory("Dining"), db.MustCategory("Wine")
	admitRows(t, e, "Checking", model.AccountChecking,
		testutil.Row(jan(1), "TRADER JOE'S #552", "-20.00"),
		testutil.Row(jan(2), "TRADER JOE'S #552", "-30.00"),
		testutil.Row(jan(3), "TRADER JOE'S WINE SHOP", "-40.00"),
		testutil.Row(jan(4), "STARBUCKS #88", "-5.00"),
		testutil.Row(jan(5), "STARBUCKS #88", "-6.00"),
	)

	_, err := e.CreateRule(ctx, RuleInput{Pattern: "starbucks", MatchType: model.MatchContains, CategoryID: dining})
	require.NoError(t, err)
	high := 90
	_, err = e.CreateRule(ctx, RuleInput{Pattern: "wine shop", MatchType: model.MatchContains, CategoryID: wine, Priority: &high})
	require.NoError(t, err)

	res, err := e.ApplySuggestion(ctx, SuggestionInput{
		Merchant:   "trader joe's",
		Pattern:    "trader joe",
		MatchType:  model.MatchContains,
		CategoryID: groceries,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedTransactions, "the wine shop row is won by a higher-priority rule")

	for _, txn := range allTransactions(t, e) {
		switch txn.DescriptionRaw {
		case "TRADER JOE'S #552":
			require.NotNil(t, txn.CategoryID)
			assert.Equal(t, groceries, *txn.CategoryID)
		default:
			assert.Equal(t, model.SourceNone, txn.CategorySource, txn.DescriptionRaw)
			assert.Nil(t, txn.CategoryID, txn.DescriptionRaw)
		}
	}
}

func TestApplySuggestion_Validation(t *testing.T) {
	e, db := newTestEngine(t, "Groceries")
	ctx := context.Background()

	_, err := e.ApplySuggestion(ctx, SuggestionInput{Merchant: "Trader Joe's", CategoryID: 999})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = e.ApplySuggestion(ctx, SuggestionInput{Merchant: " ", CategoryID: db.MustCategory("Groceries")})
	assert.ErrorIs(t, err, common.ErrValidation)

	rules, err := e.ListRules(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, rules, "a rejected suggestion creates no rule")
}
