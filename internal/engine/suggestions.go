package engine

import (
	"context"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/pattern"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
)

// SuggestionResult reports what accepting a suggestion changed.
type SuggestionResult struct {
	Rule                model.Rule `json:"rule"`
	CreatedRuleID       int64      `json:"created_rule_id"`
	UpdatedTransactions int        `json:"updated_transactions"`
}

// ApplySuggestion creates the suggested rule and, in the same transaction,
// recategorizes the rows the new rule wins under the full rule order. Other
// rules are not applied. Manual rows are recategorized only when they belong
// to the targeted merchant.
func (e *Engine) ApplySuggestion(ctx context.Context, in SuggestionInput) (SuggestionResult, error) {
	start := time.Now()
	var result SuggestionResult

	if err := in.validate(e.config.Suggest.Priority); err != nil {
		return result, e.finish("apply_suggestion", start, err, nil)
	}
	target := strings.ToLower(in.Merchant)

	err := e.write(ctx, func(tx service.Transaction) error {
		result = SuggestionResult{}
		if err := requireCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}

		rule := model.Rule{
			Pattern:    in.Pattern,
			MatchType:  in.MatchType,
			CategoryID: in.CategoryID,
			Priority:   *in.Priority,
			IsActive:   true,
		}
		if err := tx.CreateRule(ctx, &rule); err != nil {
			return err
		}

		updated, err := applyNewRule(ctx, tx, rule, target)
		if err != nil {
			return err
		}

		result.Rule = rule
		result.CreatedRuleID = rule.ID
		result.UpdatedTransactions = updated
		return nil
	})
	if err != nil {
		result = SuggestionResult{}
	}

	return result, e.finish("apply_suggestion", start, err, common.Fields{
		"merchant":             in.Merchant,
		"rule_id":              result.CreatedRuleID,
		"updated_transactions": result.UpdatedTransactions,
	})
}

func applyNewRule(ctx context.Context, tx service.Store, rule model.Rule, target string) (int, error) {
	rules, err := tx.ListRules(ctx, true)
	if err != nil {
		return 0, err
	}
	matcher := pattern.NewMatcher(rules)

	txns, err := tx.ListTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range txns {
		txn := &txns[i]
		if !matcher.Matches(rule, txn) {
			continue
		}
		if txn.CategorySource == model.SourceManual && txn.MerchantKey() != target {
			continue
		}

		a := matcher.Assign(txn)
		if a.Provenance == nil || a.Provenance.RuleID != rule.ID || !a.Changes(txn) {
			continue
		}
		if err := tx.UpdateCategorization(ctx, txn.ID, a.CategoryID, a.Source, a.Provenance); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
