package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// TaxReport lists the rows of tax-deductible categories for one year.
type TaxReport struct {
	Categories []CategoryTotal     `json:"categories"`
	Rows       []model.Transaction `json:"rows"`
	Year       int                 `json:"year"`
	TotalCents int64               `json:"total_cents"`
}

// Tax keeps the non-transfer rows whose category is tax deductible. txns
// must already be limited to the year; the rows stay in posted order.
func Tax(year int, txns []model.Transaction, categories []model.Category) TaxReport {
	r := TaxReport{Year: year, Rows: []model.Transaction{}}
	byID := indexCategories(categories)
	totals := make(map[int64]*CategoryTotal)

	for i := range txns {
		t := &txns[i]
		if t.IsTransfer() || t.CategoryID == nil || !byID[*t.CategoryID].TaxDeductible {
			continue
		}
		ct := totals[*t.CategoryID]
		if ct == nil {
			ct = newCategoryTotal(*t.CategoryID, byID)
			totals[*t.CategoryID] = ct
		}
		ct.TotalCents += t.AmountCents
		ct.Count++
		r.TotalCents += t.AmountCents
		r.Rows = append(r.Rows, *t)
	}

	for _, ct := range totals {
		ct.SpentCents = spent(ct.TotalCents)
		r.Categories = append(r.Categories, *ct)
	}
	sortCategoryTotals(r.Categories)
	sort.SliceStable(r.Rows, func(i, j int) bool {
		if !r.Rows[i].PostedDate.Equal(r.Rows[j].PostedDate) {
			return r.Rows[i].PostedDate.Before(r.Rows[j].PostedDate)
		}
		return r.Rows[i].ID < r.Rows[j].ID
	})
	return r
}

// WriteTaxCSV writes a category summary section followed by every row.
func WriteTaxCSV(w io.Writer, r TaxReport) error {
	names := make(map[int64]string, len(r.Categories))
	for _, c := range r.Categories {
		names[*c.CategoryID] = c.Name
	}

	cw := csv.NewWriter(w)
	records := [][]string{
		{"Category", "Transactions", "Total"},
	}
	for _, c := range r.Categories {
		records = append(records, []string{c.Name, strconv.Itoa(c.Count), model.FormatCents(c.TotalCents)})
	}
	records = append(records,
		[]string{"Total", strconv.Itoa(len(r.Rows)), model.FormatCents(r.TotalCents)},
		nil,
		[]string{"Date", "Description", "Merchant", "Amount", "Category", "Account"},
	)
	for i := range r.Rows {
		t := &r.Rows[i]
		records = append(records, []string{
			t.PostedDate.Format("2006-01-02"),
			t.DescriptionRaw,
			t.DisplayMerchant(),
			model.FormatCents(t.AmountCents),
			names[*t.CategoryID],
			t.AccountLabel,
		})
	}

	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write tax export: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write tax export: %w", err)
	}
	return nil
}
