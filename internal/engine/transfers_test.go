package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTransfer(t *testing.T, e *Engine) (debit, credit model.Transaction) {
	t.Helper()
	admitRows(t, e, "Checking", model.AccountChecking, testutil.Row(jan(10), "TRANSFER TO SAVINGS", "-500.00"))
	admitRows(t, e, "Savings", model.AccountSavings, testutil.Row(jan(10), "TRANSFER FROM CHECKING", "500.00"))
	return findByDescription(t, e, "TRANSFER TO SAVINGS"), findByDescription(t, e, "TRANSFER FROM CHECKING")
}

func TestTransferCandidates(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	debit, credit := seedTransfer(t, e)

	candidates, err := e.TransferCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, credit.ID, c.Credit.ID)
	assert.Equal(t, debit.ID, c.Debit.ID)
	assert.Equal(t, 100, c.ConfidencePct)
	assert.Zero(t, c.DayDiff)
	assert.NotEmpty(t, c.Reason)
}

func TestTransferCandidates_SameAccountIgnored(t *testing.T) {
	e, _ := newTestEngine(t)
	admitRows(t, e, "Checking", model.AccountChecking,
		testutil.Row(jan(10), "REFUND", "25.00"),
		testutil.Row(jan(10), "PURCHASE", "-25.00"),
	)

	candidates, err := e.TransferCandidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestConfirmTransfer(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	debit, credit := seedTransfer(t, e)

	outcome, err := e.ConfirmTransfer(ctx, debit.ID, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Confirmed, outcome)

	outcome, err = e.ConfirmTransfer(ctx, credit.ID, debit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AlreadyConfirmed, outcome)

	for _, id := range []int64{debit.ID, credit.ID} {
		txn, err := e.GetTransaction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.TypeTransfer, txn.Type)
	}

	candidates, err := e.TransferCandidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, candidates, "confirmed legs are no longer candidates")

	page, err := e.ListTransactions(ctx, service.TransactionFilter{NormalOnly: true})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestConfirmTransfer_Errors(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	debit, credit := seedTransfer(t, e)
	admitRows(t, e, "Brokerage", model.AccountSavings, testutil.Row(jan(11), "TRANSFER IN", "500.00"))
	other := findByDescription(t, e, "TRANSFER IN")

	_, err := e.ConfirmTransfer(ctx, debit.ID, 999)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = e.ConfirmTransfer(ctx, debit.ID, debit.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = e.ConfirmTransfer(ctx, debit.ID, credit.ID)
	require.NoError(t, err)

	_, err = e.ConfirmTransfer(ctx, debit.ID, other.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	txn, err := e.GetTransaction(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeNormal, txn.Type, "a rejected confirmation changes nothing")
}

func TestUnconfirmTransfer(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	debit, credit := seedTransfer(t, e)

	_, err := e.ConfirmTransfer(ctx, debit.ID, credit.ID)
	require.NoError(t, err)
	require.NoError(t, e.UnconfirmTransfer(ctx, debit.ID, credit.ID))

	candidates, err := e.TransferCandidates(ctx)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)

	assert.ErrorIs(t, e.UnconfirmTransfer(ctx, debit.ID, 999), common.ErrNotFound)
	txn, err := e.GetTransaction(ctx, debit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeNormal, txn.Type)
	assert.Nil(t, txn.TransferPairID)
}

func TestConfirmTransfer_CrossPairRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	debit, credit := seedTransfer(t, e)
	admitRows(t, e, "Checking", model.AccountChecking, testutil.Row(jan(20), "TRANSFER TO BROKERAGE", "-300.00"))
	admitRows(t, e, "Brokerage", model.AccountSavings, testutil.Row(jan(20), "TRANSFER FROM CHECKING ACCT", "300.00"))
	debit2 := findByDescription(t, e, "TRANSFER TO BROKERAGE")
	credit2 := findByDescription(t, e, "TRANSFER FROM CHECKING ACCT")

	_, err := e.ConfirmTransfer(ctx, debit.ID, credit.ID)
	require.NoError(t, err)
	_, err = e.ConfirmTransfer(ctx, debit2.ID, credit2.ID)
	require.NoError(t, err)

	_, err = e.ConfirmTransfer(ctx, debit.ID, credit2.ID)
	assert.ErrorIs(t, err, common.ErrConflict, "legs of two different transfers are not a pair")
	assert.ErrorIs(t, e.UnconfirmTransfer(ctx, debit.ID, credit2.ID), common.ErrConflict)

	txn, err := e.GetTransaction(ctx, debit.ID)
	require.NoError(t, err)
	require.NotNil(t, txn.TransferPairID)
	assert.Equal(t, credit.ID, *txn.TransferPairID)

	outcome, err := e.ConfirmTransfer(ctx, credit2.ID, debit2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AlreadyConfirmed, outcome)
}
