package storage

import (
	"context"
	"fmt"
)

// SetTags replaces the tag set of a transaction.
func (s *store) SetTags(ctx context.Context, id int64, tags []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	tags, err := NormalizeTags(tags)
	if err != nil {
		return err
	}

	var exists int
	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check transaction: %w", mapError(err))
	}
	if exists == 0 {
		return affectNone("transaction", id)
	}

	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM transaction_tags WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear tags: %w", mapError(err))
	}

	for _, tag := range tags {
		if _, err := s.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag); err != nil {
			return fmt.Errorf("failed to create tag %q: %w", tag, mapError(err))
		}
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO transaction_tags (transaction_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?`, id, tag); err != nil {
			return fmt.Errorf("failed to tag transaction: %w", mapError(err))
		}
	}

	if _, err := s.q.ExecContext(ctx, `
		DELETE FROM tags WHERE id NOT IN (SELECT DISTINCT tag_id FROM transaction_tags)`); err != nil {
		return fmt.Errorf("failed to prune tags: %w", mapError(err))
	}
	return nil
}

// ListTags returns every tag in use, sorted by name.
func (s *store) ListTags(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT g.name FROM tags g
		WHERE EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.tag_id = g.id)
		ORDER BY g.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}
