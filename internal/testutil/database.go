// Package testutil provides shared fixtures for package tests: an in-memory
// migrated database and deterministic generated ledgers.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/storage"
)

// TestDB represents a test database with the categories seeded into it.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	Categories map[string]int64
	t          *testing.T
}

// SetupTestDB creates a migrated in-memory database and seeds the named
// categories. The database is closed when the test finishes.
//
// Example:
//
//	db := testutil.SetupTestDB(t, "Groceries", "Dining")
//	groceries := db.MustCategory("Groceries")
func SetupTestDB(t *testing.T, categoryNames ...string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, Categories: make(map[string]int64), t: t}
	for _, name := range categoryNames {
		cat := &model.Category{Name: name}
		if err := store.CreateCategory(ctx, cat); err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
		db.Categories[name] = cat.ID
	}
	return db
}

// MustCategory returns the ID of a seeded category or fails the test.
func (db *TestDB) MustCategory(name string) int64 {
	db.t.Helper()
	id, ok := db.Categories[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return id
}

// WithTransaction executes fn within a database transaction that is always
// rolled back afterwards.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
