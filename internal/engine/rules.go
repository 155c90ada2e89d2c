package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/pattern"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
)

// ApplyResult summarizes a categorization run.
type ApplyResult struct {
	DisabledRules []pattern.DisabledRule `json:"disabled_rules,omitempty"`
	Updated       int                    `json:"updated"`
	Unchanged     int                    `json:"unchanged"`
	Skipped       int                    `json:"skipped"`
	Total         int                    `json:"total"`
}

// ApplyRules recomputes the category of every transaction that is
// uncategorized or was categorized by a rule. Manually categorized rows are
// never touched. Running it twice in a row updates nothing the second time.
func (e *Engine) ApplyRules(ctx context.Context) (ApplyResult, error) {
	start := time.Now()
	var result ApplyResult

	err := e.write(ctx, func(tx service.Transaction) error {
		var err error
		result, err = applyRules(ctx, tx)
		return err
	})
	if err != nil {
		result = ApplyResult{}
	}

	return result, e.finish("apply_rules", start, err, common.Fields{
		"updated":        result.Updated,
		"unchanged":      result.Unchanged,
		"skipped":        result.Skipped,
		"total":          result.Total,
		"disabled_rules": len(result.DisabledRules),
	})
}

// applyRules categorizes every non-manual row of the ledger inside tx.
func applyRules(ctx context.Context, tx service.Store) (ApplyResult, error) {
	var result ApplyResult

	rules, err := tx.ListRules(ctx, true)
	if err != nil {
		return result, err
	}
	matcher := pattern.NewMatcher(rules)
	result.DisabledRules = matcher.Disabled()
	for _, d := range result.DisabledRules {
		common.LogWarn("Skipping rule that cannot be evaluated", common.Fields{"rule_id": d.RuleID, "reason": d.Reason})
	}

	txns, err := tx.ListTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return result, err
	}
	result.Total = len(txns)

	for i := range txns {
		txn := &txns[i]
		if txn.CategorySource == model.SourceManual {
			result.Unchanged++
			continue
		}

		a := matcher.Assign(txn)
		if !a.Changes(txn) {
			result.Unchanged++
			continue
		}

		if err := tx.UpdateCategorization(ctx, txn.ID, a.CategoryID, a.Source, a.Provenance); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Skipped++
			common.LogWarn("Failed to update categorization", common.Fields{"transaction_id": txn.ID, "error": err.Error()})
			continue
		}
		result.Updated++
	}
	return result, nil
}

// ListRules returns the rules in evaluation order.
func (e *Engine) ListRules(ctx context.Context, activeOnly bool) ([]model.Rule, error) {
	rules, err := e.storage.ListRules(ctx, activeOnly)
	if err != nil {
		return nil, common.AsError(err, "failed to list rules")
	}
	return rules, nil
}

// GetRule returns one rule.
func (e *Engine) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	rule, err := e.storage.GetRule(ctx, id)
	if err != nil {
		return nil, common.AsError(notFound(err, "rule %d not found", id), "failed to get rule")
	}
	return rule, nil
}

// CreateRule validates and stores a new rule. It does not recategorize the
// ledger; call ApplyRules for that.
func (e *Engine) CreateRule(ctx context.Context, in RuleInput) (*model.Rule, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		return nil, e.finish("create_rule", start, err, nil)
	}

	rule := in.rule()
	err := e.write(ctx, func(tx service.Transaction) error {
		if err := requireCategory(ctx, tx, rule.CategoryID); err != nil {
			return err
		}
		return tx.CreateRule(ctx, &rule)
	})
	if err != nil {
		return nil, e.finish("create_rule", start, err, nil)
	}
	return &rule, e.finish("create_rule", start, nil, common.Fields{"rule_id": rule.ID})
}

// UpdateRule replaces an existing rule.
func (e *Engine) UpdateRule(ctx context.Context, id int64, in RuleInput) (*model.Rule, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		return nil, e.finish("update_rule", start, err, nil)
	}

	var rule *model.Rule
	err := e.write(ctx, func(tx service.Transaction) error {
		existing, err := tx.GetRule(ctx, id)
		if err != nil {
			return notFound(err, "rule %d not found", id)
		}
		if err := requireCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		updated := in.rule()
		updated.ID, updated.CreatedAt = existing.ID, existing.CreatedAt
		if in.Priority == nil {
			updated.Priority = existing.Priority
		}
		if in.IsActive == nil {
			updated.IsActive = existing.IsActive
		}
		if err := tx.UpdateRule(ctx, &updated); err != nil {
			return err
		}
		rule = &updated
		return nil
	})
	if err != nil {
		return nil, e.finish("update_rule", start, err, nil)
	}
	return rule, e.finish("update_rule", start, nil, common.Fields{"rule_id": id})
}

// DeleteRule removes a rule. Transactions it categorized keep their category
// but no longer point at the rule.
func (e *Engine) DeleteRule(ctx context.Context, id int64) error {
	start := time.Now()
	err := e.write(ctx, func(tx service.Transaction) error {
		if err := tx.DetachRule(ctx, id); err != nil {
			return err
		}
		return notFound(tx.DeleteRule(ctx, id), "rule %d not found", id)
	})
	return e.finish("delete_rule", start, err, common.Fields{"rule_id": id})
}

// requireCategory reports an unknown category as a validation error.
func requireCategory(ctx context.Context, q service.Store, id int64) error {
	if _, err := q.GetCategory(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Validationf("unknown category %d", id)
		}
		return err
	}
	return nil
}
