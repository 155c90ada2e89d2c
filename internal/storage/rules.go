package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

const ruleColumns = `id, pattern, match_type, category_id, priority, is_active, created_at`

func scanRule(row interface{ Scan(...any) error }) (*model.Rule, error) {
	var r model.Rule
	var matchType string
	if err := row.Scan(&r.ID, &r.Pattern, &matchType, &r.CategoryID,
		&r.Priority, &r.IsActive, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.MatchType = model.MatchType(matchType)
	return &r, nil
}

// CreateRule stores a new categorization rule and sets its ID.
func (s *store) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	rule.Pattern = strings.TrimSpace(rule.Pattern)
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO rules (pattern, match_type, category_id, priority, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rule.Pattern, string(rule.MatchType), rule.CategoryID, rule.Priority, rule.IsActive, rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", mapError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule id: %w", err)
	}
	rule.ID = id
	return nil
}

// GetRule retrieves a rule by ID.
func (s *store) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	r, err := scanRule(s.q.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get rule %d: %w", id, mapError(err))
	}
	return r, nil
}

// ListRules returns rules in evaluation order: priority descending, then ID.
func (s *store) ListRules(ctx context.Context, activeOnly bool) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM rules`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY priority DESC, id ASC`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// UpdateRule overwrites a rule's pattern, match type, category, priority and active flag.
func (s *store) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE rules SET pattern = ?, match_type = ?, category_id = ?, priority = ?, is_active = ?
		WHERE id = ?`,
		strings.TrimSpace(rule.Pattern), string(rule.MatchType), rule.CategoryID,
		rule.Priority, rule.IsActive, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", mapError(err))
	}
	return affectOne(res, "rule", rule.ID)
}

// DeleteRule removes a rule.
func (s *store) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", mapError(err))
	}
	return affectOne(res, "rule", id)
}

// DeleteRulesByCategory removes every rule targeting a category.
func (s *store) DeleteRulesByCategory(ctx context.Context, categoryID int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	if _, err := s.q.ExecContext(ctx, `
		UPDATE transactions SET rule_id = NULL
		WHERE rule_id IN (SELECT id FROM rules WHERE category_id = ?)`, categoryID); err != nil {
		return 0, fmt.Errorf("failed to detach category rules: %w", mapError(err))
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM rules WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete category rules: %w", mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
