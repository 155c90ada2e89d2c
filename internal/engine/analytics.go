package engine

import (
	"context"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/audit"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/pattern"
	"github.com/Veraticus/the-ledger-must-balance/internal/recurring"
	"github.com/Veraticus/the-ledger-must-balance/internal/report"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
)

// AuditFlags scans the transactions posted between from and to (inclusive,
// either may be nil) for anomalies. New-merchant detection considers the
// whole ledger up to the window end.
func (e *Engine) AuditFlags(ctx context.Context, from, to *time.Time) ([]model.AuditFlag, error) {
	start := time.Now()
	if from != nil && to != nil && from.After(*to) {
		return nil, e.finish("audit_flags", start, common.Validationf("window start %s is after end %s",
			from.Format("2006-01-02"), to.Format("2006-01-02")), nil)
	}

	w := audit.Window{From: from, To: to}
	var flags []model.AuditFlag

	err := e.read(ctx, func(q service.Store) error {
		seen := audit.NewFirstSeen()
		var window []model.Transaction
		err := q.EachTransaction(ctx, service.TransactionFilter{To: to}, func(txn *model.Transaction) error {
			seen.Observe(txn)
			if w.Contains(txn.PostedDate) {
				window = append(window, *txn)
			}
			return nil
		})
		if err != nil {
			return err
		}
		flags = audit.ScanWindow(window, seen, w, e.config.Audit)
		return nil
	})
	if err != nil {
		return nil, e.finish("audit_flags", start, err, nil)
	}
	return flags, e.finish("audit_flags", start, nil, common.Fields{"flags": len(flags)})
}

// Recurring finds merchants charged on a weekly, biweekly or monthly cadence.
func (e *Engine) Recurring(ctx context.Context) ([]model.RecurringGroup, error) {
	start := time.Now()
	var groups []model.RecurringGroup

	err := e.read(ctx, func(q service.Store) error {
		txns, err := q.ListTransactions(ctx, service.TransactionFilter{NormalOnly: true})
		if err != nil {
			return err
		}
		groups = recurring.Detect(txns, e.config.Recurring)
		return nil
	})
	if err != nil {
		return nil, e.finish("recurring", start, err, nil)
	}
	return groups, e.finish("recurring", start, nil, common.Fields{"groups": len(groups)})
}

// RuleSuggestions proposes rules for merchants that are consistently
// categorized by hand or frequently left uncategorized.
func (e *Engine) RuleSuggestions(ctx context.Context) ([]model.RuleSuggestion, error) {
	start := time.Now()
	var suggestions []model.RuleSuggestion

	err := e.read(ctx, func(q service.Store) error {
		rules, err := q.ListRules(ctx, true)
		if err != nil {
			return err
		}
		txns, err := q.ListTransactions(ctx, service.TransactionFilter{NormalOnly: true})
		if err != nil {
			return err
		}
		suggestions = pattern.Suggest(txns, rules, e.config.Suggest)
		return nil
	})
	if err != nil {
		return nil, e.finish("rule_suggestions", start, err, nil)
	}
	return suggestions, e.finish("rule_suggestions", start, nil, common.Fields{"suggestions": len(suggestions)})
}

// Summary totals income, expense and net for the window by category, month
// and account. Confirmed transfers are left out of income and expense.
// Categories with a monthly budget report budget against actual spend.
func (e *Engine) Summary(ctx context.Context, from, to *time.Time) (report.Summary, error) {
	start := time.Now()
	var s report.Summary
	if from != nil && to != nil && from.After(*to) {
		return s, e.finish("summary", start, common.Validationf("window start %s is after end %s",
			from.Format("2006-01-02"), to.Format("2006-01-02")), nil)
	}

	err := e.read(ctx, func(q service.Store) error {
		categories, err := q.ListCategories(ctx)
		if err != nil {
			return err
		}
		txns, err := q.ListTransactions(ctx, service.TransactionFilter{From: from, To: to})
		if err != nil {
			return err
		}
		s = report.Summarize(txns, categories, from, to)
		return nil
	})
	if err != nil {
		return report.Summary{}, e.finish("summary", start, err, nil)
	}
	return s, e.finish("summary", start, nil, common.Fields{
		"transactions":       s.TransactionCount,
		"transfers_excluded": s.TransfersExcluded,
	})
}

// TaxExport collects the year's rows in tax-deductible categories.
func (e *Engine) TaxExport(ctx context.Context, year int) (report.TaxReport, error) {
	start := time.Now()
	var r report.TaxReport
	if year < 1900 || year > 9999 {
		return r, e.finish("tax_export", start, common.Validationf("year %d is out of range", year), nil)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	err := e.read(ctx, func(q service.Store) error {
		categories, err := q.ListCategories(ctx)
		if err != nil {
			return err
		}
		txns, err := q.ListTransactions(ctx, service.TransactionFilter{From: &from, To: &to, NormalOnly: true})
		if err != nil {
			return err
		}
		r = report.Tax(year, txns, categories)
		return nil
	})
	if err != nil {
		return report.TaxReport{}, e.finish("tax_export", start, err, nil)
	}
	return r, e.finish("tax_export", start, nil, common.Fields{"year": year, "rows": len(r.Rows)})
}
