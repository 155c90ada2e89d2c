package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Empty(t *testing.T) {
	e, _ := newTestEngine(t)

	report, err := e.Health(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TotalTransactions)
	assert.Nil(t, report.LastImport)
	assert.Empty(t, report.Recommendations)
	assert.Empty(t, report.TopUnmappedMerchants)
}

func TestHealth_Report(t *testing.T) {
	e, db := newTestEngine(t, "Dining")
	ctx := context.Background()

	_, err := e.CreateRule(ctx, RuleInput{Pattern: "coffee", MatchType: model.MatchContains, CategoryID: db.MustCategory("Dining")})
	require.NoError(t, err)
	admitRows(t, e, "", "",
		testutil.Row(jan(5), "COFFEE SHOP", "-4.50"),
		testutil.Row(jan(6), "HARDWARE STORE", "-40.00"),
		testutil.Row(jan(7), "HARDWARE STORE", "-12.00"),
	)
	admitRows(t, e, "Checking", model.AccountChecking, testutil.Row(jan(10), "TRANSFER TO SAVINGS", "-500.00"))
	admitRows(t, e, "Savings", model.AccountSavings, testutil.Row(jan(10), "TRANSFER FROM CHECKING", "500.00"))

	coffee := findByDescription(t, e, "COFFEE SHOP")
	_, err = e.CreateAlias(ctx, AliasInput{Alias: coffee.Merchant, Canonical: "Blue Bottle"})
	require.NoError(t, err)

	report, err := e.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.TotalTransactions)
	assert.Equal(t, 4, report.Uncategorized)
	assert.Equal(t, 4, report.UnmappedMerchants)
	assert.Equal(t, 1, report.ImportsMissingLabel)
	assert.Equal(t, 1, report.TransferCandidates)
	assert.Equal(t, 1, report.ActiveRules)
	assert.Zero(t, report.PossibleDuplicateGroups)
	require.NotNil(t, report.LastImport)

	require.NotEmpty(t, report.TopUnmappedMerchants)
	hardware := findByDescription(t, e, "HARDWARE STORE")
	assert.Equal(t, MerchantCount{Merchant: hardware.Merchant, Count: 2}, report.TopUnmappedMerchants[0])

	assert.Contains(t, report.Recommendations, "Categorize 4 uncategorized transactions")
	assert.Contains(t, report.Recommendations, "Label 1 import with account names")
	assert.Contains(t, report.Recommendations, "Review 1 transfer candidate")
}
