// Package report aggregates the ledger into period summaries, budget
// comparisons and the tax-deductible export.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

const monthLayout = "2006-01"

// UncategorizedName labels the bucket of rows without a category.
const UncategorizedName = "Uncategorized"

// CategoryTotal is the signed sum of one category's rows. Budget fields are
// set only for categories with a monthly budget.
type CategoryTotal struct {
	CategoryID     *int64 `json:"category_id"`
	BudgetCents    *int64 `json:"budget_cents,omitempty"`
	RemainingCents *int64 `json:"remaining_cents,omitempty"`
	Name           string `json:"name"`
	TotalCents     int64  `json:"total_cents"`
	SpentCents     int64  `json:"spent_cents"`
	Count          int    `json:"count"`
	OverBudget     bool   `json:"over_budget,omitempty"`
}

// MonthTotal holds one calendar month's income and expense.
type MonthTotal struct {
	Month        string `json:"month"`
	IncomeCents  int64  `json:"income_cents"`
	ExpenseCents int64  `json:"expense_cents"`
	NetCents     int64  `json:"net_cents"`
	Count        int    `json:"count"`
}

// AccountFlow is the net movement through one account label. Transfers
// count here, since they move money between accounts.
type AccountFlow struct {
	Label    string            `json:"label"`
	Type     model.AccountType `json:"type"`
	NetCents int64             `json:"net_cents"`
	Count    int               `json:"count"`
}

// Summary covers every transaction posted in a window. Income and expense
// exclude confirmed transfers.
type Summary struct {
	From              *time.Time      `json:"from,omitempty"`
	To                *time.Time      `json:"to,omitempty"`
	ByCategory        []CategoryTotal `json:"by_category"`
	ByMonth           []MonthTotal    `json:"by_month"`
	ByAccount         []AccountFlow   `json:"by_account"`
	IncomeCents       int64           `json:"income_cents"`
	ExpenseCents      int64           `json:"expense_cents"`
	NetCents          int64           `json:"net_cents"`
	TransactionCount  int             `json:"transaction_count"`
	TransfersExcluded int             `json:"transfers_excluded"`
	Months            int             `json:"months"`
}

// Summarize aggregates txns, which must already be limited to the window.
// Budgets are scaled by the number of calendar months the window spans; an
// open bound falls back to the first or last posted month.
func Summarize(txns []model.Transaction, categories []model.Category, from, to *time.Time) Summary {
	s := Summary{From: from, To: to}
	byID := indexCategories(categories)

	cats := make(map[int64]*CategoryTotal)
	var uncategorized *CategoryTotal
	months := make(map[string]*MonthTotal)
	accounts := make(map[string]*AccountFlow)
	var first, last time.Time

	for i := range txns {
		t := &txns[i]
		flow := accounts[t.AccountLabel]
		if flow == nil {
			flow = &AccountFlow{Label: t.AccountLabel, Type: t.AccountType}
			accounts[t.AccountLabel] = flow
		}
		flow.NetCents += t.AmountCents
		flow.Count++

		if t.IsTransfer() {
			s.TransfersExcluded++
			continue
		}
		s.TransactionCount++
		if first.IsZero() || t.PostedDate.Before(first) {
			first = t.PostedDate
		}
		if t.PostedDate.After(last) {
			last = t.PostedDate
		}

		key := t.PostedDate.Format(monthLayout)
		m := months[key]
		if m == nil {
			m = &MonthTotal{Month: key}
			months[key] = m
		}
		m.Count++
		if t.AmountCents >= 0 {
			s.IncomeCents += t.AmountCents
			m.IncomeCents += t.AmountCents
		} else {
			s.ExpenseCents += t.AmountCents
			m.ExpenseCents += t.AmountCents
		}

		var ct *CategoryTotal
		if t.CategoryID == nil {
			if uncategorized == nil {
				uncategorized = &CategoryTotal{Name: UncategorizedName}
			}
			ct = uncategorized
		} else {
			ct = cats[*t.CategoryID]
			if ct == nil {
				ct = newCategoryTotal(*t.CategoryID, byID)
				cats[*t.CategoryID] = ct
			}
		}
		ct.TotalCents += t.AmountCents
		ct.Count++
	}
	s.NetCents = s.IncomeCents + s.ExpenseCents

	if from != nil {
		first = *from
	}
	if to != nil {
		last = *to
	}
	if !first.IsZero() && !last.IsZero() {
		s.Months = monthsSpanned(first, last)
	}

	for id, c := range byID {
		if c.MonthlyBudget != nil && cats[id] == nil {
			cats[id] = newCategoryTotal(id, byID)
		}
	}
	for _, ct := range cats {
		ct.SpentCents = spent(ct.TotalCents)
		if c, ok := byID[*ct.CategoryID]; ok && c.MonthlyBudget != nil {
			budget := *c.MonthlyBudget * int64(s.Months)
			remaining := budget - ct.SpentCents
			ct.BudgetCents, ct.RemainingCents = &budget, &remaining
			ct.OverBudget = remaining < 0
		}
		s.ByCategory = append(s.ByCategory, *ct)
	}
	if uncategorized != nil {
		uncategorized.SpentCents = spent(uncategorized.TotalCents)
		s.ByCategory = append(s.ByCategory, *uncategorized)
	}
	sortCategoryTotals(s.ByCategory)

	for _, m := range months {
		m.NetCents = m.IncomeCents + m.ExpenseCents
		s.ByMonth = append(s.ByMonth, *m)
	}
	sort.Slice(s.ByMonth, func(i, j int) bool { return s.ByMonth[i].Month < s.ByMonth[j].Month })

	for _, a := range accounts {
		s.ByAccount = append(s.ByAccount, *a)
	}
	sort.Slice(s.ByAccount, func(i, j int) bool {
		if s.ByAccount[i].NetCents != s.ByAccount[j].NetCents {
			return s.ByAccount[i].NetCents > s.ByAccount[j].NetCents
		}
		return s.ByAccount[i].Label < s.ByAccount[j].Label
	})
	return s
}

func indexCategories(categories []model.Category) map[int64]model.Category {
	byID := make(map[int64]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return byID
}

func newCategoryTotal(id int64, byID map[int64]model.Category) *CategoryTotal {
	name := byID[id].Name
	if name == "" {
		name = UncategorizedName
	}
	return &CategoryTotal{CategoryID: &id, Name: name}
}

func spent(total int64) int64 {
	if total < 0 {
		return -total
	}
	return 0
}

// sortCategoryTotals puts the largest expense first, then by name.
func sortCategoryTotals(totals []CategoryTotal) {
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].TotalCents != totals[j].TotalCents {
			return totals[i].TotalCents < totals[j].TotalCents
		}
		return strings.ToLower(totals[i].Name) < strings.ToLower(totals[j].Name)
	})
}

// monthsSpanned counts calendar months from first to last, inclusive.
func monthsSpanned(first, last time.Time) int {
	if last.Before(first) {
		return 0
	}
	return (last.Year()-first.Year())*12 + int(last.Month()) - int(first.Month()) + 1
}
