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

func TestApplyRules_ManualProtectedAndIdempotent(t *testing.T) {
	e, db := newTestEngine(t, "Dining", "Groceries")
	ctx := context.Background()
	dining, groceries := db.MustCategory("Dining"), db.MustCategory("Groceries")

	admitRows(t, e, "Checking", model.AccountChecking,
		testutil.Row(jan(5), "COFFEE SHOP", "-4.50"),
		testutil.Row(jan(6), "BAKERY ON MAIN", "-7.25"),
		testutil.Row(jan(7), "CORNER MARKET", "-19.99"),
	)
	bakery := findByDescription(t, e, "BAKERY ON MAIN")
	_, err := e.SetManualCategory(ctx, bakery.ID, &groceries)
	require.NoError(t, err)

	_, err = e.CreateRule(ctx, RuleInput{Pattern: "coffee", MatchType: model.MatchContains, CategoryID: dining})
	require.NoError(t, err)
	_, err = e.CreateRule(ctx, RuleInput{Pattern: "bakery", MatchType: model.MatchContains, CategoryID: dining})
	require.NoError(t, err)

	res, err := e.ApplyRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Updated: 1, Unchanged: 2, Total: 3}, res)

	again, err := e.ApplyRules(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Updated)
	assert.Equal(t, 3, again.Unchanged)

	bakery = findByDescription(t, e, "BAKERY ON MAIN")
	assert.Equal(t, model.SourceManual, bakery.CategorySource)
	assert.Equal(t, groceries, *bakery.CategoryID)
	assert.Nil(t, bakery.Provenance)

	coffee := findByDescription(t, e, "COFFEE SHOP")
	assert.Equal(t, model.SourceRule, coffee.CategorySource)
	assert.Equal(t, dining, *coffee.CategoryID)
}

func TestApplyRules_PriorityThenLowerID(t *testing.T) {
	e, db := newTestEngine(t, "Dining", "Groceries", "Fees")
	ctx := context.Background()

	admitRows(t, e, "Checking", model.AccountChecking, testutil.Row(jan(5), "COFFEE SHOP", "-4.50"))

	first, err := e.CreateRule(ctx, RuleInput{Pattern: "coffee", MatchType: model.MatchContains, CategoryID: db.MustCategory("Dining")})
	require.NoError(t, err)
	_, err = e.CreateRule(ctx, RuleInput{Pattern: "shop", MatchType: model.MatchContains, CategoryID: db.MustCategory("Groceries")})
	require.NoError(t, err)

	_, err = e.ApplyRules(ctx)
	require.NoError(t, err)
	txn := findByDescription(t, e, "COFFEE SHOP")
	assert.Equal(t, first.ID, txn.Provenance.RuleID, "equal priority goes to the lower id")

	high, err := e.CreateRule(ctx, RuleInput{Pattern: "^coffee", MatchType: model.MatchRegex, CategoryID: db.MustCategory("Fees"), Priority: ptr(90)})
	require.NoError(t, err)
	res, err := e.ApplyRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	txn = findByDescription(t, e, "COFFEE SHOP")
	assert.Equal(t, high.ID, txn.Provenance.RuleID)
	assert.Equal(t, 90, txn.Provenance.Priority)
	assert.Equal(t, model.MatchRegex, txn.Provenance.MatchType)
}

func TestApplyRules_DeletedRuleUncategorizes(t *testing.T) {
	e, db := newTestEngine(t, "Dining")
	ctx := context.Background()

	rule, err := e.CreateRule(ctx, RuleInput{Pattern: "coffee", MatchType: model.MatchContains, CategoryID: db.MustCategory("Dining")})
	require.NoError(t, err)
	admitRows(t, e, "Checking", model.AccountChecking, testutil.Row(jan(5), "COFFEE SHOP", "-4.50"))

	require.NoError(t, e.DeleteRule(ctx, rule.ID))
	txn := findByDescription(t, e, "COFFEE SHOP")
	require.NotNil(t, txn.CategoryID, "deleting a rule keeps what it assigned")
	assert.Zero(t, txn.Provenance.RuleID)

	res, err := e.ApplyRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	txn = findByDescription(t, e, "COFFEE SHOP")
	assert.Nil(t, txn.CategoryID)
	assert.Nil(t, txn.Provenance)
	assert.Equal(t, model.SourceNone, txn.CategorySource)

	assert.ErrorIs(t, e.DeleteRule(ctx, rule.ID), common.ErrNotFound)
}

func TestApplyRules_BrokenRegexDisablesOnlyThatRule(t *testing.T) {
	e, db := newTestEngine(t, "Dining")
	ctx := context.Background()
	dining := db.MustCategory("Dining")

	broken := &model.Rule{Pattern: "([", MatchType: model.MatchRegex, CategoryID: dining, Priority: 99, IsActive: true}
	require.NoError(t, db.Storage.CreateRule(ctx, broken))
	_, err := e.CreateRule(ctx, RuleInput{Pattern: "coffee", MatchType: model.MatchContains, CategoryID: dining})
	require.NoError(t, err)

	admitRows(t, e, "Checking", model.AccountChecking, testutil.Row(jan(5), "COFFEE SHOP", "-4.50"))

	res, err := e.ApplyRules(ctx)
	require.NoError(t, err)
	require.Len(t, res.DisabledRules, 1)
	assert.Equal(t, broken.ID, res.DisabledRules[0].RuleID)

	txn := findByDescription(t, e, "COFFEE SHOP")
	assert.Equal(t, dining, *txn.CategoryID)
}

func TestRuleCRUD_Validation(t *testing.T) {
	e, db := newTestEngine(t, "Dining")
	ctx := context.Background()
	dining := db.MustCategory("Dining")

	tests := []struct {
		name  string
		input RuleInput
	}{
		{"blank pattern", RuleInput{Pattern: "  ", MatchType: model.MatchContains, CategoryID: dining}},
		{"bad regex", RuleInput{Pattern: "([", MatchType: model.MatchRegex, CategoryID: dining}},
		{"bad match type", RuleInput{Pattern: "x", MatchType: "fuzzy", CategoryID: dining}},
		{"unknown category", RuleInput{Pattern: "x", MatchType: model.MatchExact, CategoryID: 999}},
		{"negative priority", RuleInput{Pattern: "x", MatchType: model.MatchExact, CategoryID: dining, Priority: ptr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateRule(ctx, tt.input)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	rules, err := e.ListRules(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestUpdateRule(t *testing.T) {
	e, db := newTestEngine(t, "Dining", "Groceries")
	ctx := context.Background()

	rule, err := e.CreateRule(ctx, RuleInput{Pattern: "coffee", MatchType: model.MatchContains, CategoryID: db.MustCategory("Dining"), Priority: ptr(70)})
	require.NoError(t, err)

	updated, err := e.UpdateRule(ctx, rule.ID, RuleInput{Pattern: "Trader Joe's", MatchType: model.MatchExact, CategoryID: db.MustCategory("Groceries"), IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 70, updated.Priority, "priority is kept when not given")
	assert.False(t, updated.IsActive)

	active, err := e.ListRules(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = e.UpdateRule(ctx, 999, RuleInput{Pattern: "x", MatchType: model.MatchExact, CategoryID: db.MustCategory("Dining")})
	assert.ErrorIs(t, err, common.ErrNotFound)
}
