package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

const importColumns = `id, batch_id, filename, source_type, account_label, account_type, created_at`

// CreateImport records a new import batch and sets its ID.
func (s *store) CreateImport(ctx context.Context, imp *model.Import) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateImport(imp); err != nil {
		return err
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now().UTC()
	}

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO imports (batch_id, filename, source_type, account_label, account_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		imp.BatchID, imp.Filename, imp.SourceType, imp.AccountLabel, string(imp.AccountType), imp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create import: %w", mapError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get import id: %w", err)
	}
	imp.ID = id
	return nil
}

func scanImport(row interface{ Scan(...any) error }) (*model.Import, error) {
	var imp model.Import
	var accountType string
	if err := row.Scan(&imp.ID, &imp.BatchID, &imp.Filename, &imp.SourceType,
		&imp.AccountLabel, &accountType, &imp.CreatedAt); err != nil {
		return nil, err
	}
	imp.AccountType = model.AccountType(accountType)
	return &imp, nil
}

// GetImport retrieves an import batch by ID.
func (s *store) GetImport(ctx context.Context, id int64) (*model.Import, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	imp, err := scanImport(s.q.QueryRowContext(ctx,
		`SELECT `+importColumns+` FROM imports WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get import %d: %w", id, mapError(err))
	}
	return imp, nil
}

// ListImports returns every import batch, newest first.
func (s *store) ListImports(ctx context.Context) ([]model.Import, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+importColumns+` FROM imports ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var imports []model.Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imports = append(imports, *imp)
	}
	return imports, rows.Err()
}

// LatestImport returns the most recent import batch, or nil when there is none.
func (s *store) LatestImport(ctx context.Context) (*model.Import, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	imp, err := scanImport(s.q.QueryRowContext(ctx,
		`SELECT `+importColumns+` FROM imports ORDER BY created_at DESC, id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest import: %w", mapError(err))
	}
	return imp, nil
}

// DeleteImport removes an import batch and, by cascade, its transactions.
// It returns the number of transactions removed.
func (s *store) DeleteImport(ctx context.Context, id int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateID(id, "import id"); err != nil {
		return 0, err
	}

	var count int64
	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE import_id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count import transactions: %w", mapError(err))
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM imports WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete import: %w", mapError(err))
	}
	if err := affectOne(res, "import", id); err != nil {
		return 0, err
	}
	return count, nil
}
