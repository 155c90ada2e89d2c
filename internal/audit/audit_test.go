package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func januaryWindow() Window {
	return Window{From: ptr(jan(1)), To: ptr(jan(31))}
}

func mk(id int64, date time.Time, desc string, cents int64) model.Transaction {
	return model.Transaction{
		ID:              id,
		PostedDate:      date,
		DescriptionRaw:  desc,
		DescriptionNorm: desc,
		Merchant:        desc,
		AmountCents:     cents,
		Type:            model.TypeNormal,
		Fingerprint:     fmt.Sprintf("fp-%d", id),
	}
}

func flagsOfType(flags []model.AuditFlag, typ model.FlagType) []model.AuditFlag {
	var out []model.AuditFlag
	for _, f := range flags {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func TestScan_DuplicateLike(t *testing.T) {
	ledger := []model.Transaction{
		mk(1, jan(5), "coffee shop", -450),
		mk(2, jan(5), "coffee shop", -450),
		mk(3, jan(5), "coffee shop", -500),
	}

	dups := flagsOfType(Scan(ledger, januaryWindow(), DefaultConfig()), model.FlagDuplicateLike)
	require.Len(t, dups, 2)
	assert.Equal(t, model.SeverityWarning, dups[0].Severity)
	assert.Equal(t, int64(1), dups[0].Transaction.ID)
	assert.Contains(t, dups[0].Explanation, "[IDs: 2]")
	assert.Contains(t, dups[1].Explanation, "[IDs: 1]")
}

func TestScan_DuplicateIgnoresTransfersAndOtherMonths(t *testing.T) {
	a := mk(1, jan(5), "coffee shop", -450)
	b := mk(2, jan(5), "coffee shop", -450)
	b.Type = model.TypeTransfer
	c := mk(3, jan(5).AddDate(0, 1, 0), "coffee shop", -450)
	d := mk(4, jan(5).AddDate(0, 1, 0), "coffee shop", -450)

	flags := Scan([]model.Transaction{a, b, c, d}, januaryWindow(), DefaultConfig())
	assert.Empty(t, flagsOfType(flags, model.FlagDuplicateLike))
}

func TestScan_BankFee(t *testing.T) {
	ledger := []model.Transaction{
		mk(1, jan(3), "monthly maintenance fee", -1200),
		mk(2, jan(3), "overdraft charge", -3500),
		mk(3, jan(3), "coffee", -400),
		mk(4, jan(3), "coffee shop", -450),
		mk(5, jan(3), "starbucks coffee", -525),
		mk(6, jan(3), "ATM FEE REFUND", 300),
	}

	fees := flagsOfType(Scan(ledger, januaryWindow(), DefaultConfig()), model.FlagBankFee)
	require.Len(t, fees, 3)
	assert.Equal(t, model.SeverityInfo, fees[0].Severity)
	assert.Equal(t, []int64{1, 2, 6}, []int64{fees[0].Transaction.ID, fees[1].Transaction.ID, fees[2].Transaction.ID})
	assert.Contains(t, fees[0].Explanation, `"fee"`)
	assert.Contains(t, fees[1].Explanation, `"overdraft"`)

	cfg := DefaultConfig()
	cfg.FeeKeywords = []string{"coffee"}
	fees = flagsOfType(Scan(ledger, januaryWindow(), cfg), model.FlagBankFee)
	require.Len(t, fees, 3)
	assert.Equal(t, []int64{3, 4, 5}, []int64{fees[0].Transaction.ID, fees[1].Transaction.ID, fees[2].Transaction.ID})
}

func TestScan_UnusuallyLarge(t *testing.T) {
	groceries := ptr(int64(1))
	var ledger []model.Transaction
	for i, cents := range []int64{-5000, -5500, -6000, -4500} {
		tx := mk(int64(i+1), jan(2+i), fmt.Sprintf("grocer %d", i), cents)
		tx.CategoryID = groceries
		ledger = append(ledger, tx)
	}
	big := mk(10, jan(20), "grocer big", -30000)
	big.CategoryID = groceries
	ledger = append(ledger, big)

	flags := flagsOfType(Scan(ledger, januaryWindow(), DefaultConfig()), model.FlagUnusuallyLarge)
	require.Len(t, flags, 1)
	assert.Equal(t, int64(10), flags[0].Transaction.ID)
	assert.Contains(t, flags[0].Explanation, "category median")
}

func TestScan_UnusuallyLargeFallsBackToOverall(t *testing.T) {
	ledger := []model.Transaction{
		mk(1, jan(2), "a", -1000),
		mk(2, jan(3), "b", -1100),
		mk(3, jan(4), "c", -900),
		mk(4, jan(5), "d", -9000),
		mk(5, jan(6), "payroll", 500000),
	}
	ledger[3].CategoryID = ptr(int64(7))

	flags := flagsOfType(Scan(ledger, januaryWindow(), DefaultConfig()), model.FlagUnusuallyLarge)
	require.Len(t, flags, 1)
	assert.Equal(t, int64(4), flags[0].Transaction.ID)
	assert.Contains(t, flags[0].Explanation, "overall median")
}

func TestScan_UnusuallyLargeNeedsSamples(t *testing.T) {
	ledger := []model.Transaction{mk(1, jan(2), "a", -100), mk(2, jan(3), "b", -100000)}
	assert.Empty(t, flagsOfType(Scan(ledger, januaryWindow(), DefaultConfig()), model.FlagUnusuallyLarge))
}

func TestScan_NewMerchant(t *testing.T) {
	ledger := []model.Transaction{
		mk(1, time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), "netflix", -1549),
		mk(2, jan(20), "netflix", -1549),
		mk(3, jan(10), "blue bottle", -600),
		mk(4, jan(12), "blue bottle", -600),
	}
	news := flagsOfType(Scan(ledger, januaryWindow(), DefaultConfig()), model.FlagNewMerchant)
	require.Len(t, news, 1)
	assert.Equal(t, int64(3), news[0].Transaction.ID)
	assert.Contains(t, news[0].Explanation, "first seen 2026-01-10")
}

func TestScan_OpenWindow(t *testing.T) {
	ledger := []model.Transaction{mk(1, jan(3), "fee", -100)}
	flags := Scan(ledger, Window{}, DefaultConfig())
	assert.Len(t, flagsOfType(flags, model.FlagBankFee), 1)
	assert.Len(t, flagsOfType(flags, model.FlagNewMerchant), 1)
}

func TestSortFlags(t *testing.T) {
	flags := []model.AuditFlag{
		{Type: model.FlagNewMerchant, Transaction: model.Transaction{ID: 1, PostedDate: jan(1)}},
		{Type: model.FlagBankFee, Transaction: model.Transaction{ID: 5, PostedDate: jan(9)}},
		{Type: model.FlagBankFee, Transaction: model.Transaction{ID: 2, PostedDate: jan(9)}},
		{Type: model.FlagDuplicateLike, Transaction: model.Transaction{ID: 9, PostedDate: jan(9)}},
	}
	SortFlags(flags)

	var ids []int64
	for _, f := range flags {
		ids = append(ids, f.Transaction.ID)
	}
	assert.Equal(t, []int64{2, 5, 9, 1}, ids)
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 2.0, median([]int64{3, 1, 2}), 0.001)
	assert.InDelta(t, 2.5, median([]int64{4, 1, 3, 2}), 0.001)
}
