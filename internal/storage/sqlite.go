// Package storage persists one profile's ledger in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate reports a unique constraint violation.
var ErrDuplicate = errors.New("duplicate entry")

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// store implements service.Store against either the database or an open
// transaction.
type store struct {
	q queryable
}

// SQLiteStorage implements service.Storage using SQLite. Writes share one
// connection; reads use a separate read-only pool when the database is a file.
type SQLiteStorage struct {
	store
	db     *sql.DB
	reader *sql.DB
	dbPath string
}

// readerConns bounds the read-only pool.
const readerConns = 4

var _ service.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (creating if needed) the SQLite database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewWithDB(db)
	s.dbPath = dbPath
	if dbPath == ":memory:" {
		return s, nil
	}

	// The writer has already put the file in WAL mode, so readers see a
	// snapshot without taking the write lock.
	reader, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open read-only database: %w", err)
	}
	reader.SetMaxOpenConns(readerConns)
	reader.SetMaxIdleConns(readerConns)
	if err := reader.Ping(); err != nil {
		_ = reader.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping read-only database: %w", err)
	}
	s.reader = reader
	return s, nil
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{store: store{q: db}, db: db, reader: db}
}

// Path returns the database file path, empty for wrapped handles.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connections.
func (s *SQLiteStorage) Close() error {
	if s.reader != nil && s.reader != s.db {
		if err := s.reader.Close(); err != nil {
			_ = s.db.Close()
			return fmt.Errorf("failed to close read-only database: %w", err)
		}
	}
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}

	return &sqliteTransaction{store: store{q: tx}, tx: tx}, nil
}

// BeginReadTx starts a transaction on the read pool. Every query in it sees
// the same snapshot.
func (s *SQLiteStorage) BeginReadTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", mapError(err))
	}

	return &sqliteTransaction{store: store{q: tx}, tx: tx}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	store
	tx *sql.Tx
}

func (t *sqliteTransaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// mapError translates driver errors into package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %v", common.ErrBusy, err)
		}
	}
	return err
}

// affectOne returns ErrNotFound when an update or delete touched no rows.
func affectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return affectNone(what, id)
	}
	return nil
}

func affectNone(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, common.ErrNotFound)
}
