package testutil

import (
	"fmt"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/ingest"
	"github.com/brianvoe/gofakeit/v6"
)

// Column headers of generated rows.
const (
	HeaderDate        = "Date"
	HeaderDescription = "Description"
	HeaderAmount      = "Amount"
)

// Mapping reads rows produced by this package.
var Mapping = ingest.ColumnMapping{
	Date:        HeaderDate,
	Description: HeaderDescription,
	Amount:      HeaderAmount,
}

// Row builds one statement row. Amount is in major units, e.g. "-4.50".
func Row(date time.Time, description, amount string) ingest.Row {
	return ingest.Row{
		HeaderDate:        date.Format("2006-01-02"),
		HeaderDescription: description,
		HeaderAmount:      amount,
	}
}

// Cents formats minor units the way a statement would.
func Cents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Series builds count rows for the same charge spaced every days apart.
func Series(description string, cents int64, first time.Time, days, count int) []ingest.Row {
	rows := make([]ingest.Row, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, Row(first.AddDate(0, 0, i*days), description, Cents(cents)))
	}
	return rows
}

// LedgerGenerator produces deterministic random statement rows.
type LedgerGenerator struct {
	faker     *gofakeit.Faker
	merchants []string
	start     time.Time
	days      int
}

// NewLedgerGenerator creates a generator drawing from a fixed pool of
// merchants over days days starting at start. The same seed always yields
// the same rows.
func NewLedgerGenerator(seed int64, start time.Time, days, merchants int) *LedgerGenerator {
	f := gofakeit.New(seed)
	pool := make([]string, 0, merchants)
	seen := make(map[string]bool)
	for len(pool) < merchants {
		name := f.Company()
		if seen[name] {
			continue
		}
		seen[name] = true
		pool = append(pool, name)
	}
	return &LedgerGenerator{faker: f, merchants: pool, start: start, days: days}
}

// Merchants returns the merchant pool.
func (g *LedgerGenerator) Merchants() []string {
	return g.merchants
}

// Rows generates n rows. Roughly one in ten is a credit.
func (g *LedgerGenerator) Rows(n int) []ingest.Row {
	rows := make([]ingest.Row, 0, n)
	for i := 0; i < n; i++ {
		date := g.start.AddDate(0, 0, g.faker.Number(0, g.days-1))
		merchant := g.merchants[g.faker.Number(0, len(g.merchants)-1)]
		cents := int64(g.faker.Number(100, 25000))
		if g.faker.Number(1, 10) > 1 {
			cents = -cents
		}
		ref := g.faker.Number(1000, 9999)
		rows = append(rows, Row(date, fmt.Sprintf("%s #%d", merchant, ref), Cents(cents)))
	}
	return rows
}
