package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/merchant"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

func scanAlias(row interface{ Scan(...any) error }) (*model.MerchantAlias, error) {
	var a model.MerchantAlias
	if err := row.Scan(&a.ID, &a.Alias, &a.Canonical); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAlias stores a merchant alias. The alias key is stored lowercased
// and trimmed; a clash with an existing alias is reported as ErrDuplicate.
func (s *store) CreateAlias(ctx context.Context, alias *model.MerchantAlias) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlias(alias); err != nil {
		return err
	}
	alias.Alias = merchant.AliasKey(alias.Alias)
	alias.Canonical = strings.TrimSpace(alias.Canonical)

	res, err := s.q.ExecContext(ctx,
		`INSERT INTO merchant_aliases (alias, canonical) VALUES (?, ?)`, alias.Alias, alias.Canonical)
	if err != nil {
		return fmt.Errorf("failed to create alias: %w", mapError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get alias id: %w", err)
	}
	alias.ID = id
	return nil
}

// GetAlias retrieves a merchant alias by ID.
func (s *store) GetAlias(ctx context.Context, id int64) (*model.MerchantAlias, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	a, err := scanAlias(s.q.QueryRowContext(ctx,
		`SELECT id, alias, canonical FROM merchant_aliases WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get alias %d: %w", id, mapError(err))
	}
	return a, nil
}

// ListAliases returns all merchant aliases ordered by alias.
func (s *store) ListAliases(ctx context.Context) ([]model.MerchantAlias, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT id, alias, canonical FROM merchant_aliases ORDER BY alias`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var aliases []model.MerchantAlias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, *a)
	}
	return aliases, rows.Err()
}

// UpdateAlias overwrites an alias and its canonical name.
func (s *store) UpdateAlias(ctx context.Context, alias *model.MerchantAlias) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlias(alias); err != nil {
		return err
	}
	alias.Alias = merchant.AliasKey(alias.Alias)
	alias.Canonical = strings.TrimSpace(alias.Canonical)

	res, err := s.q.ExecContext(ctx,
		`UPDATE merchant_aliases SET alias = ?, canonical = ? WHERE id = ?`,
		alias.Alias, alias.Canonical, alias.ID)
	if err != nil {
		return fmt.Errorf("failed to update alias: %w", mapError(err))
	}
	return affectOne(res, "alias", alias.ID)
}

// DeleteAlias removes a merchant alias.
func (s *store) DeleteAlias(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM merchant_aliases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alias: %w", mapError(err))
	}
	return affectOne(res, "alias", id)
}
