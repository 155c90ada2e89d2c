// Package service defines the persistence contract the engine is built on.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// TransactionFilter narrows transaction queries. Zero values mean no filter.
type TransactionFilter struct {
	From          *time.Time
	To            *time.Time
	ImportID      *int64
	CategoryID    *int64
	Source        *model.CategorySource
	Merchant      string
	Limit         int
	Offset        int
	Uncategorized bool
	NormalOnly    bool
}

// CategoryUsage counts what still references a category.
type CategoryUsage struct {
	Transactions int
	Rules        int
}

// Store holds every data operation. It is implemented both by the storage
// itself and by an open database transaction.
type Store interface {
	// Imports
	CreateImport(ctx context.Context, imp *model.Import) error
	GetImport(ctx context.Context, id int64) (*model.Import, error)
	ListImports(ctx context.Context) ([]model.Import, error)
	LatestImport(ctx context.Context) (*model.Import, error)
	DeleteImport(ctx context.Context, id int64) (int64, error)

	// Transactions
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	EachTransaction(ctx context.Context, filter TransactionFilter, fn func(*model.Transaction) error) error
	CountTransactions(ctx context.Context, filter TransactionFilter) (int, error)
	Fingerprints(ctx context.Context) ([]string, error)
	UpdateCategorization(ctx context.Context, id int64, categoryID *int64, source model.CategorySource, provenance *model.RuleProvenance) error
	UpdateCanonicalMerchant(ctx context.Context, id int64, canonical *string) error
	SetTransferPair(ctx context.Context, id int64, pairID *int64) error
	SetNote(ctx context.Context, id int64, note string) error
	SetTags(ctx context.Context, id int64, tags []string) error
	DeleteTransaction(ctx context.Context, id int64) error
	ClearCategory(ctx context.Context, categoryID int64) (int64, error)
	DetachRule(ctx context.Context, ruleID int64) error

	// Categories
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	CategoryUsage(ctx context.Context, id int64) (CategoryUsage, error)

	// Rules
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int64) error
	DeleteRulesByCategory(ctx context.Context, categoryID int64) (int64, error)

	// Merchant aliases
	CreateAlias(ctx context.Context, alias *model.MerchantAlias) error
	GetAlias(ctx context.Context, id int64) (*model.MerchantAlias, error)
	ListAliases(ctx context.Context) ([]model.MerchantAlias, error)
	UpdateAlias(ctx context.Context, alias *model.MerchantAlias) error
	DeleteAlias(ctx context.Context, id int64) error

	// Tags
	ListTags(ctx context.Context) ([]string, error)
}

// Storage is the persistence layer for one profile.
type Storage interface {
	Store
	BeginTx(ctx context.Context) (Transaction, error)
	// BeginReadTx starts a read-only transaction that does not wait for
	// writers. Callers must Rollback it.
	BeginReadTx(ctx context.Context) (Transaction, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Transaction is a Store bound to one open database transaction.
type Transaction interface {
	Store
	Commit() error
	Rollback() error
}
