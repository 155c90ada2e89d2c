package recurring

import (
	"testing"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)

func series(firstID int64, merchant string, cents int64, dates []time.Time) []model.Transaction {
	out := make([]model.Transaction, 0, len(dates))
	for i, d := range dates {
		out = append(out, model.Transaction{
			ID:             firstID + int64(i),
			PostedDate:     d,
			DescriptionRaw: merchant,
			Merchant:       merchant,
			AmountCents:    cents,
			Type:           model.TypeNormal,
		})
	}
	return out
}

func every(n, days int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i*days)
	}
	return out
}

func TestDetect_NetflixMonthly(t *testing.T) {
	dates := make([]time.Time, 12)
	for i := range dates {
		dates[i] = start.AddDate(0, i, 0)
	}
	txns := series(1, "NETFLIX", -1549, dates)

	got := Detect(txns, DefaultConfig())
	require.Len(t, got, 1)

	g := got[0]
	assert.Equal(t, model.PatternMonthly, g.Pattern)
	assert.Equal(t, 12, g.Count)
	assert.Equal(t, "netflix", g.MerchantKey)
	assert.Equal(t, "NETFLIX", g.Merchant)
	assert.Equal(t, int64(-1549), g.AvgAmountCents)
	assert.Equal(t, dates[11], g.LastDate)
	require.Len(t, g.Transactions, 12)
	assert.Equal(t, int64(12), g.Transactions[0].ID, "newest first")
}

func TestDetect_Cadences(t *testing.T) {
	tests := []struct {
		name  string
		want  model.RecurringPattern
		dates []time.Time
	}{
		{name: "weekly", dates: every(6, 7), want: model.PatternWeekly},
		{name: "biweekly", dates: every(5, 14), want: model.PatternBiweekly},
		{name: "thirty days", dates: every(4, 30), want: model.PatternMonthly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(series(1, "Gym", -2500, tt.dates), DefaultConfig())
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Pattern)
		})
	}
}

func TestDetect_Rejects(t *testing.T) {
	tests := []struct {
		name string
		txns []model.Transaction
	}{
		{name: "too few", txns: series(1, "Gym", -2500, every(2, 30))},
		{name: "no cadence", txns: series(1, "Gym", -2500, every(5, 20))},
		{
			name: "irregular gaps",
			txns: series(1, "Gym", -2500, []time.Time{start, start.AddDate(0, 0, 2), start.AddDate(0, 0, 30), start.AddDate(0, 0, 90)}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Detect(tt.txns, DefaultConfig()))
		})
	}
}

func TestDetect_SkipsTransfersAndSplitsDirections(t *testing.T) {
	txns := series(1, "Savings Sweep", -10000, every(4, 7))
	for i := range txns {
		txns[i].Type = model.TypeTransfer
	}
	assert.Empty(t, Detect(txns, DefaultConfig()))

	mixed := append(series(1, "Acme", -500, every(3, 7)), series(10, "Acme", 500, every(2, 7))...)
	got := Detect(mixed, DefaultConfig())
	require.Len(t, got, 1)
	assert.Equal(t, int64(-500), got[0].AvgAmountCents)
}

func TestMerchantKey(t *testing.T) {
	tests := []struct {
		merchant string
		want     string
	}{
		{merchant: "NETFLIX INC #2231", want: "netflix"},
		{merchant: "The Home Depot 4521", want: "home depot"},
		{merchant: "Acme   Co", want: "acme"},
		{merchant: "Bank of America", want: "bank america"},
	}
	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			assert.Equal(t, tt.want, MerchantKey(&model.Transaction{Merchant: tt.merchant}))
		})
	}
}

func TestDetect_OrderedByLastDate(t *testing.T) {
	a := series(1, "Alpha", -100, every(3, 7))
	b := series(10, "Beta", -100, []time.Time{start.AddDate(0, 0, 7), start.AddDate(0, 0, 14), start.AddDate(0, 0, 21)})
	got := Detect(append(a, b...), DefaultConfig())
	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[0].MerchantKey)
	assert.Equal(t, "alpha", got[1].MerchantKey)
}
