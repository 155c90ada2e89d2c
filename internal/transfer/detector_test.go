package transfer

import (
	"testing"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func txn(id, importID int64, d int, cents int64, desc string, acct model.AccountType) model.Transaction {
	return model.Transaction{
		ID:              id,
		ImportID:        importID,
		PostedDate:      day(d),
		DescriptionRaw:  desc,
		DescriptionNorm: desc,
		AmountCents:     cents,
		Type:            model.TypeNormal,
		AccountType:     acct,
	}
}

func TestDetect_PairsAcrossImports(t *testing.T) {
	txns := []model.Transaction{
		txn(1, 10, 5, -50000, "online transfer to savings", model.AccountChecking),
		txn(2, 20, 5, 50000, "transfer from checking", model.AccountSavings),
		txn(3, 10, 5, 50000, "deposit", model.AccountChecking),
		txn(4, 30, 20, 50000, "late deposit", model.AccountSavings),
	}

	got := Detect(txns, DefaultConfig())
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, int64(2), c.Credit.ID)
	assert.Equal(t, int64(1), c.Debit.ID)
	assert.Equal(t, 0, c.DayDiff)
	assert.Equal(t, 100, c.ConfidencePct)
	assert.Contains(t, c.Reason, "same day")
	assert.Contains(t, c.Reason, "transfer keyword matched")
}

func TestDetect_SameAccountLabelExcluded(t *testing.T) {
	a := txn(1, 10, 5, -2000, "x", model.AccountUnknown)
	b := txn(2, 20, 5, 2000, "y", model.AccountUnknown)
	a.AccountLabel, b.AccountLabel = "Chase Checking", "chase checking"

	assert.Empty(t, Detect([]model.Transaction{a, b}, DefaultConfig()))

	b.AccountLabel = "Ally Savings"
	assert.Len(t, Detect([]model.Transaction{a, b}, DefaultConfig()), 1)
}

func TestDetect_ToleranceAndWindow(t *testing.T) {
	txns := []model.Transaction{
		txn(1, 1, 1, -10000, "a", ""),
		txn(2, 2, 1, 10001, "b", ""),
		txn(3, 3, 4, 10000, "c", ""),
		txn(4, 4, 5, 10000, "d", ""),
		txn(5, 5, 1, 10002, "e", ""),
	}

	got := Detect(txns, DefaultConfig())
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Credit.ID, "1 cent off on the same day")
	assert.Equal(t, 78, got[0].ConfidencePct)
	assert.Equal(t, int64(3), got[1].Credit.ID, "exact amount 3 days apart")
	assert.Equal(t, 77, got[1].ConfidencePct)
}

func TestDetect_SkipsConfirmedTransfers(t *testing.T) {
	a := txn(1, 1, 1, -500, "a", "")
	b := txn(2, 2, 1, 500, "b", "")
	a.Type = model.TypeTransfer
	assert.Empty(t, Detect([]model.Transaction{a, b}, DefaultConfig()))
}

func TestDetect_Ordering(t *testing.T) {
	txns := []model.Transaction{
		txn(1, 1, 10, -700, "x", ""),
		txn(2, 2, 12, 700, "y", ""),
		txn(3, 3, 10, 700, "z", ""),
		txn(4, 4, 10, -700, "w", ""),
	}
	got := Detect(txns, DefaultConfig())
	require.Len(t, got, 4)

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		require.GreaterOrEqual(t, prev.ConfidencePct, cur.ConfidencePct)
		if prev.ConfidencePct == cur.ConfidencePct {
			require.LessOrEqual(t, prev.DayDiff, cur.DayDiff)
		}
	}
	assert.Equal(t, int64(3), got[0].Credit.ID)
	assert.Equal(t, int64(1), got[0].Debit.ID)
}

func TestScore_Monotonic(t *testing.T) {
	cfg := DefaultConfig()
	for _, differ := range []bool{false, true} {
		for _, kw := range []bool{false, true} {
			for diff := int64(0); diff <= cfg.AmountToleranceCents; diff++ {
				for d := 0; d < cfg.MaxDayDiff; d++ {
					assert.GreaterOrEqual(t, Score(diff, d, differ, kw, cfg), Score(diff, d+1, differ, kw, cfg))
				}
			}
			for d := 0; d <= cfg.MaxDayDiff; d++ {
				assert.GreaterOrEqual(t, Score(0, d, differ, kw, cfg), Score(1, d, differ, kw, cfg))
			}
		}
	}
}

func TestScore_Components(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 95, Score(0, 0, false, false, cfg))
	assert.Equal(t, 100, Score(0, 0, true, true, cfg))
	assert.Equal(t, 77, Score(0, 3, false, false, cfg))
	assert.Equal(t, 78, Score(1, 0, false, false, cfg))
}

func TestDecide(t *testing.T) {
	a := txn(1, 1, 1, -500, "a", "")
	b := txn(2, 2, 1, 500, "b", "")

	out, err := Decide(&a, &b)
	require.NoError(t, err)
	assert.Equal(t, model.Confirmed, out)

	_, err = Decide(&a, &a)
	assert.ErrorIs(t, err, common.ErrConflict)

	a.Type = model.TypeTransfer
	_, err = Decide(&a, &b)
	assert.ErrorIs(t, err, common.ErrConflict)
	_, err = Decide(&b, &a)
	assert.ErrorIs(t, err, common.ErrConflict)

	b.Type = model.TypeTransfer
	a.TransferPairID, b.TransferPairID = &b.ID, &a.ID
	out, err = Decide(&a, &b)
	require.NoError(t, err)
	assert.Equal(t, model.AlreadyConfirmed, out)
}

func TestDecide_LegsOfDifferentPairs(t *testing.T) {
	a := txn(1, 1, 1, -500, "a", "")
	b := txn(2, 2, 1, 500, "b", "")
	c := txn(3, 3, 1, 500, "c", "")
	d := txn(4, 1, 1, -500, "d", "")
	for _, leg := range []*model.Transaction{&a, &b, &c, &d} {
		leg.Type = model.TypeTransfer
	}
	a.TransferPairID, b.TransferPairID = &b.ID, &a.ID
	d.TransferPairID, c.TransferPairID = &c.ID, &d.ID

	_, err := Decide(&a, &c)
	assert.ErrorIs(t, err, common.ErrConflict)
	_, err = Decide(&c, &a)
	assert.ErrorIs(t, err, common.ErrConflict)

	a.TransferPairID = nil
	_, err = Decide(&a, &b)
	assert.ErrorIs(t, err, common.ErrConflict, "only a mutual pairing counts as confirmed")
}

func TestDecideUnpair(t *testing.T) {
	a := txn(1, 1, 1, -500, "a", "")
	b := txn(2, 2, 1, 500, "b", "")
	c := txn(3, 3, 1, 500, "c", "")

	paired, err := DecideUnpair(&a, &b)
	require.NoError(t, err)
	assert.False(t, paired)

	a.Type, b.Type = model.TypeTransfer, model.TypeTransfer
	a.TransferPairID, b.TransferPairID = &b.ID, &a.ID
	paired, err = DecideUnpair(&b, &a)
	require.NoError(t, err)
	assert.True(t, paired)

	_, err = DecideUnpair(&a, &c)
	assert.ErrorIs(t, err, common.ErrConflict)
}
