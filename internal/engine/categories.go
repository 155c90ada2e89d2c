package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/storage"
)

// DefaultCategories are created by SeedDefaults for an empty profile.
var DefaultCategories = []CategoryInput{
	{Name: "Groceries", Color: "#22c55e", Icon: "cart"},
	{Name: "Dining", Color: "#f97316", Icon: "utensils"},
	{Name: "Transport", Color: "#3b82f6", Icon: "car"},
	{Name: "Utilities", Color: "#eab308", Icon: "bolt"},
	{Name: "Housing", Color: "#8b5cf6", Icon: "home"},
	{Name: "Income", Color: "#10b981", Icon: "wallet"},
	{Name: "Transfer", Color: "#64748b", Icon: "arrows"},
	{Name: "Fees", Color: "#ef4444", Icon: "receipt"},
	{Name: "Entertainment", Color: "#ec4899", Icon: "film"},
	{Name: "Shopping", Color: "#06b6d4", Icon: "bag"},
	{Name: "Health", Color: "#14b8a6", Icon: "heart"},
	{Name: "Subscriptions", Color: "#a855f7", Icon: "repeat"},
}

// SeedDefaults creates the default categories when the profile has none.
// It returns how many were created.
func (e *Engine) SeedDefaults(ctx context.Context) (int, error) {
	start := time.Now()
	created := 0

	err := e.write(ctx, func(tx service.Transaction) error {
		created = 0
		existing, err := tx.ListCategories(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		for _, in := range DefaultCategories {
			c := in.category()
			c.IsDefault = true
			if err := tx.CreateCategory(ctx, &c); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		created = 0
	}
	return created, e.finish("seed_defaults", start, err, common.Fields{"created": created})
}

// ListCategories returns every category ordered by name.
func (e *Engine) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := e.storage.ListCategories(ctx)
	if err != nil {
		return nil, common.AsError(err, "failed to list categories")
	}
	return categories, nil
}

// GetCategory returns one category.
func (e *Engine) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := e.storage.GetCategory(ctx, id)
	if err != nil {
		return nil, common.AsError(notFound(err, "category %d not found", id), "failed to get category")
	}
	return c, nil
}

// FindCategory looks a category up by case-insensitive name.
func (e *Engine) FindCategory(ctx context.Context, name string) (*model.Category, error) {
	c, err := e.storage.GetCategoryByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyString) {
			return nil, common.Validationf("category name is required")
		}
		return nil, common.AsError(notFound(err, "category %q not found", name), "failed to get category")
	}
	return c, nil
}

// CreateCategory adds a category. Names are unique regardless of case.
func (e *Engine) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		return nil, e.finish("create_category", start, err, nil)
	}

	c := in.category()
	err := e.write(ctx, func(tx service.Transaction) error {
		return categoryConflict(tx.CreateCategory(ctx, &c), c.Name)
	})
	if err != nil {
		return nil, e.finish("create_category", start, err, nil)
	}
	return &c, e.finish("create_category", start, nil, common.Fields{"category_id": c.ID})
}

// UpdateCategory replaces a category's attributes.
func (e *Engine) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*model.Category, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		return nil, e.finish("update_category", start, err, nil)
	}

	var c model.Category
	err := e.write(ctx, func(tx service.Transaction) error {
		existing, err := tx.GetCategory(ctx, id)
		if err != nil {
			return notFound(err, "category %d not found", id)
		}
		c = in.category()
		c.ID, c.CreatedAt = existing.ID, existing.CreatedAt
		return categoryConflict(tx.UpdateCategory(ctx, &c), c.Name)
	})
	if err != nil {
		return nil, e.finish("update_category", start, err, nil)
	}
	return &c, e.finish("update_category", start, nil, common.Fields{"category_id": id})
}

// DeleteResult reports what deleting a category cleared.
type DeleteResult struct {
	ClearedTransactions int64 `json:"cleared_transactions"`
	DeletedRules        int64 `json:"deleted_rules"`
}

// DeleteCategory removes a category. With DeleteBlock a category that is
// still referenced by transactions or rules is a conflict. With
// DeleteCascade those transactions become uncategorized and the rules are
// deleted.
func (e *Engine) DeleteCategory(ctx context.Context, id int64, policy model.DeletePolicy) (DeleteResult, error) {
	start := time.Now()
	var result DeleteResult

	if policy == "" {
		policy = model.DeleteBlock
	}
	if policy != model.DeleteBlock && policy != model.DeleteCascade {
		return result, e.finish("delete_category", start, common.Validationf("unknown delete policy %q", policy), nil)
	}

	err := e.write(ctx, func(tx service.Transaction) error {
		result = DeleteResult{}
		if _, err := tx.GetCategory(ctx, id); err != nil {
			return notFound(err, "category %d not found", id)
		}

		usage, err := tx.CategoryUsage(ctx, id)
		if err != nil {
			return err
		}
		if policy == model.DeleteBlock && (usage.Transactions > 0 || usage.Rules > 0) {
			return common.Conflictf("category %d is used by %d transactions and %d rules", id, usage.Transactions, usage.Rules)
		}

		if result.ClearedTransactions, err = tx.ClearCategory(ctx, id); err != nil {
			return err
		}
		if result.DeletedRules, err = tx.DeleteRulesByCategory(ctx, id); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, id)
	})
	if err != nil {
		result = DeleteResult{}
	}

	return result, e.finish("delete_category", start, err, common.Fields{
		"category_id":          id,
		"policy":               string(policy),
		"cleared_transactions": int(result.ClearedTransactions),
		"deleted_rules":        int(result.DeletedRules),
	})
}

func categoryConflict(err error, name string) error {
	if errors.Is(err, storage.ErrDuplicate) {
		return common.Conflictf("category %q already exists", name)
	}
	return err
}
