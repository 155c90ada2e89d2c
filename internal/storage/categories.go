package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
)

const categoryColumns = `id, name, color, icon, is_default, tax_deductible, monthly_budget, created_at`

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	var c model.Category
	var budget sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.IsDefault,
		&c.TaxDeductible, &budget, &c.CreatedAt); err != nil {
		return nil, err
	}
	if budget.Valid {
		v := budget.Int64
		c.MonthlyBudget = &v
	}
	return &c, nil
}

// CreateCategory stores a new category and sets its ID.
// Names are unique case-insensitively; a clash is reported as ErrDuplicate.
func (s *store) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	category.Name = strings.TrimSpace(category.Name)
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (name, color, icon, is_default, tax_deductible, monthly_budget, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category.Name, category.Color, category.Icon, category.IsDefault,
		category.TaxDeductible, category.MonthlyBudget, category.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", mapError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category id: %w", err)
	}
	category.ID = id
	return nil
}

// GetCategory retrieves a category by ID.
func (s *store) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	c, err := scanCategory(s.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", id, mapError(err))
	}
	return c, nil
}

// GetCategoryByName retrieves a category by case-insensitive name.
func (s *store) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	c, err := scanCategory(s.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = ?`, strings.TrimSpace(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to get category %q: %w", name, mapError(err))
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func (s *store) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory overwrites the mutable fields of a category.
func (s *store) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, color = ?, icon = ?, is_default = ?, tax_deductible = ?, monthly_budget = ?
		WHERE id = ?`,
		strings.TrimSpace(category.Name), category.Color, category.Icon, category.IsDefault,
		category.TaxDeductible, category.MonthlyBudget, category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", mapError(err))
	}
	return affectOne(res, "category", category.ID)
}

// DeleteCategory removes a category. References must be cleared first.
func (s *store) DeleteCategory(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", mapError(err))
	}
	return affectOne(res, "category", id)
}

// CategoryUsage counts the transactions and rules referencing a category.
func (s *store) CategoryUsage(ctx context.Context, id int64) (service.CategoryUsage, error) {
	var usage service.CategoryUsage
	if err := validateContext(ctx); err != nil {
		return usage, err
	}

	err := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE category_id = ?),
			(SELECT COUNT(*) FROM rules WHERE category_id = ?)`, id, id).
		Scan(&usage.Transactions, &usage.Rules)
	if err != nil {
		return usage, fmt.Errorf("failed to count category usage: %w", mapError(err))
	}
	return usage, nil
}
