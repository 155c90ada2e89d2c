package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/ingest"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmit_Idempotent(t *testing.T) {
	e, _ := newTestEngine(t)

	rows := []ingest.Row{
		testutil.Row(jan(5), "COFFEE SHOP", "-4.50"),
		testutil.Row(jan(6), "PAYROLL ACME", "2500.00"),
		testutil.Row(jan(7), "GROCERY OUTLET", "-82.17"),
	}

	first := admitRows(t, e, "Checking", model.AccountChecking, rows...)
	assert.Equal(t, 3, first.Inserted)
	assert.Zero(t, first.Skipped)
	assert.NotEmpty(t, first.BatchID)

	second := admitRows(t, e, "Checking-again", model.AccountChecking, rows...)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 3, second.Skipped)
	assert.NotEqual(t, first.ImportID, second.ImportID)

	assert.Len(t, allTransactions(t, e), 3)
}

func TestAdmit_DuplicateWithinBatch(t *testing.T) {
	e, _ := newTestEngine(t)

	res := admitRows(t, e, "Checking", model.AccountChecking,
		testutil.Row(jan(5), "COFFEE SHOP", "-4.50"),
		testutil.Row(jan(5), "COFFEE SHOP", "-4.50"),
	)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
}

func TestAdmit_InvalidRowsDoNotAbort(t *testing.T) {
	e, _ := newTestEngine(t)

	res := admitRows(t, e, "Checking", model.AccountChecking,
		ingest.Row{testutil.HeaderDate: "someday", testutil.HeaderDescription: "BAD DATE", testutil.HeaderAmount: "-1.00"},
		testutil.Row(jan(5), "COFFEE SHOP", "-4.50"),
		ingest.Row{testutil.HeaderDate: "2026-01-06", testutil.HeaderDescription: "BAD AMOUNT", testutil.HeaderAmount: "lots"},
	)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Invalid)
	require.Len(t, res.InvalidRows, 2)
	assert.Equal(t, 0, res.InvalidRows[0].Index)
	assert.Equal(t, 2, res.InvalidRows[1].Index)
}

func TestAdmit_CategorizesAndCanonicalizes(t *testing.T) {
	e, db := newTestEngine(t, "Dining")
	ctx := context.Background()

	rule, err := e.CreateRule(ctx, RuleInput{Pattern: "coffee", MatchType: model.MatchContains, CategoryID: db.MustCategory("Dining")})
	require.NoError(t, err)
	_, err = e.CreateAlias(ctx, AliasInput{Alias: " local coffee shop ", Canonical: "Blue Bottle"})
	require.NoError(t, err)

	admitRows(t, e, "Checking", model.AccountChecking, testutil.Row(jan(5), "SQ *LOCAL COFFEE SHOP SF CA", "-4.50"))

	txn := findByDescription(t, e, "SQ *LOCAL COFFEE SHOP SF CA")
	assert.Equal(t, "Local Coffee Shop", txn.Merchant)
	require.NotNil(t, txn.MerchantCanonical)
	assert.Equal(t, "Blue Bottle", *txn.MerchantCanonical)
	assert.Equal(t, model.SourceRule, txn.CategorySource)
	require.NotNil(t, txn.Provenance)
	assert.Equal(t, rule.ID, txn.Provenance.RuleID)
	assert.Equal(t, "Checking", txn.AccountLabel)
	assert.Equal(t, model.AccountChecking, txn.AccountType)
}

func TestAdmit_ValidatesRequest(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	rows := []ingest.Row{testutil.Row(jan(5), "COFFEE SHOP", "-4.50")}

	_, err := e.Admit(ctx, ImportRequest{Mapping: testutil.Mapping, AccountType: "brokerage"}, rows)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = e.Admit(ctx, ImportRequest{Mapping: ingest.ColumnMapping{Date: "Date"}}, rows)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = e.Admit(ctx, ImportRequest{Mapping: testutil.Mapping, BatchID: "not-a-uuid"}, rows)
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.Empty(t, allTransactions(t, e), "nothing is written when validation fails")
}

func TestAdmit_DuplicateBatchID(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := ImportRequest{Mapping: testutil.Mapping, BatchID: "6f1c1f0e-5a8e-4a53-9a43-0c6f3f6f8d11"}

	_, err := e.Admit(ctx, req, []ingest.Row{testutil.Row(jan(5), "COFFEE SHOP", "-4.50")})
	require.NoError(t, err)

	_, err = e.Admit(ctx, req, []ingest.Row{testutil.Row(jan(6), "BAKERY", "-3.00")})
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Len(t, allTransactions(t, e), 1)
}

func TestAdmit_GeneratedLedger(t *testing.T) {
	e, _ := newTestEngine(t)
	gen := testutil.NewLedgerGenerator(7, jan(1), 60, 12)
	rows := gen.Rows(300)

	first := admitRows(t, e, "Checking", model.AccountChecking, rows...)
	assert.Equal(t, 300, first.Inserted+first.Skipped)
	assert.Zero(t, first.Invalid)

	second := admitRows(t, e, "Checking", model.AccountChecking, rows...)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 300, second.Skipped)
}
