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

const dateLayout = "2006-01-02"

const transactionSelect = `
	SELECT t.id, t.import_id, t.posted_date, t.description_raw, t.description_norm,
		t.amount_cents, t.currency, t.merchant, t.merchant_canonical,
		t.category_id, t.category_source,
		t.rule_id, t.rule_pattern, t.rule_match_type, t.rule_priority,
		t.note, t.transaction_type, t.transfer_pair_id, t.fingerprint, t.created_at,
		i.account_label, i.account_type,
		(SELECT GROUP_CONCAT(g.name, char(31))
			FROM transaction_tags tt JOIN tags g ON g.id = tt.tag_id
			WHERE tt.transaction_id = t.id) AS tags
	FROM transactions t
	JOIN imports i ON i.id = t.import_id`

// InsertTransaction stores a new transaction and sets its ID.
// A fingerprint collision is reported as ErrDuplicate.
func (s *store) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if err := validateCategorization(txn.CategoryID, txn.CategorySource, txn.Provenance); err != nil {
		return err
	}
	if txn.Type == "" {
		txn.Type = model.TypeNormal
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	ruleID, pattern, matchType, priority := provenanceArgs(txn.Provenance)
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (
			import_id, posted_date, description_raw, description_norm, amount_cents,
			currency, merchant, merchant_canonical, category_id, category_source,
			rule_id, rule_pattern, rule_match_type, rule_priority,
			note, transaction_type, fingerprint, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ImportID, txn.PostedDate.UTC().Format(dateLayout), txn.DescriptionRaw, txn.DescriptionNorm,
		txn.AmountCents, txn.Currency, txn.Merchant, txn.MerchantCanonical, txn.CategoryID,
		string(txn.CategorySource), ruleID, pattern, matchType, priority,
		txn.Note, string(txn.Type), txn.Fingerprint, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", mapError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction id: %w", err)
	}
	txn.ID = id

	if len(txn.Tags) > 0 {
		return s.SetTags(ctx, id, txn.Tags)
	}
	return nil
}

func provenanceArgs(p *model.RuleProvenance) (ruleID, pattern, matchType, priority any) {
	if p == nil {
		return nil, nil, nil, nil
	}
	if p.RuleID > 0 {
		ruleID = p.RuleID
	}
	return ruleID, p.Pattern, string(p.MatchType), p.Priority
}

func scanTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	var (
		txn         model.Transaction
		postedDate  string
		canonical   sql.NullString
		categoryID  sql.NullInt64
		source      string
		ruleID      sql.NullInt64
		rulePattern sql.NullString
		ruleMatch   sql.NullString
		rulePrio    sql.NullInt64
		txnType     string
		pairID      sql.NullInt64
		accountType string
		tags        sql.NullString
	)

	err := row.Scan(
		&txn.ID, &txn.ImportID, &postedDate, &txn.DescriptionRaw, &txn.DescriptionNorm,
		&txn.AmountCents, &txn.Currency, &txn.Merchant, &canonical,
		&categoryID, &source,
		&ruleID, &rulePattern, &ruleMatch, &rulePrio,
		&txn.Note, &txnType, &pairID, &txn.Fingerprint, &txn.CreatedAt,
		&txn.AccountLabel, &accountType, &tags,
	)
	if err != nil {
		return nil, err
	}

	txn.PostedDate, err = time.ParseInLocation(dateLayout, postedDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid posted date %q: %w", postedDate, err)
	}
	if canonical.Valid {
		v := canonical.String
		txn.MerchantCanonical = &v
	}
	if categoryID.Valid {
		v := categoryID.Int64
		txn.CategoryID = &v
	}
	if rulePattern.Valid {
		txn.Provenance = &model.RuleProvenance{
			RuleID:    ruleID.Int64,
			Pattern:   rulePattern.String,
			MatchType: model.MatchType(ruleMatch.String),
			Priority:  int(rulePrio.Int64),
		}
	}
	if pairID.Valid {
		v := pairID.Int64
		txn.TransferPairID = &v
	}
	if tags.Valid && tags.String != "" {
		txn.Tags = strings.Split(tags.String, tagSeparator)
	}
	txn.CategorySource = model.CategorySource(source)
	txn.Type = model.TransactionType(txnType)
	txn.AccountType = model.AccountType(accountType)
	return &txn, nil
}

// GetTransaction retrieves a single transaction by ID.
func (s *store) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	txn, err := scanTransaction(s.q.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, mapError(err))
	}
	return txn, nil
}

// buildFilter turns a filter into a WHERE clause and its arguments.
func buildFilter(filter service.TransactionFilter) (string, []any) {
	var where []string
	var args []any

	if filter.From != nil {
		where = append(where, "t.posted_date >= ?")
		args = append(args, filter.From.UTC().Format(dateLayout))
	}
	if filter.To != nil {
		where = append(where, "t.posted_date <= ?")
		args = append(args, filter.To.UTC().Format(dateLayout))
	}
	if filter.ImportID != nil {
		where = append(where, "t.import_id = ?")
		args = append(args, *filter.ImportID)
	}
	if filter.CategoryID != nil {
		where = append(where, "t.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Source != nil {
		where = append(where, "t.category_source = ?")
		args = append(args, string(*filter.Source))
	}
	if filter.Uncategorized {
		where = append(where, "t.category_id IS NULL")
	}
	if filter.NormalOnly {
		where = append(where, "t.transaction_type = ?")
		args = append(args, string(model.TypeNormal))
	}
	if m := strings.TrimSpace(filter.Merchant); m != "" {
		where = append(where, "LOWER(TRIM(COALESCE(NULLIF(t.merchant_canonical, ''), t.merchant))) = ?")
		args = append(args, strings.ToLower(m))
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func transactionQuery(filter service.TransactionFilter) (string, []any) {
	clause, args := buildFilter(filter)
	query := transactionSelect + clause + " ORDER BY t.posted_date, t.id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	return query, args
}

// ListTransactions returns the transactions matching filter in date order.
func (s *store) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := s.EachTransaction(ctx, filter, func(txn *model.Transaction) error {
		txns = append(txns, *txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// EachTransaction streams the transactions matching filter to fn in date order.
// fn must not call back into the store while iteration is in progress.
func (s *store) EachTransaction(ctx context.Context, filter service.TransactionFilter, fn func(*model.Transaction) error) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: fn", ErrNilParameter)
	}

	query, args := transactionQuery(filter)
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return fmt.Errorf("failed to scan transaction: %w", err)
		}
		if err := fn(txn); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating transactions: %w", mapError(err))
	}
	return nil
}

// CountTransactions counts the transactions matching filter, ignoring paging.
func (s *store) CountTransactions(ctx context.Context, filter service.TransactionFilter) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	clause, args := buildFilter(filter)
	var count int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t`+clause, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", mapError(err))
	}
	return count, nil
}

// Fingerprints returns every fingerprint stored for the profile.
func (s *store) Fingerprints(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `SELECT fingerprint FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// UpdateCategorization writes category, source and provenance in one statement.
func (s *store) UpdateCategorization(ctx context.Context, id int64, categoryID *int64, source model.CategorySource, provenance *model.RuleProvenance) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategorization(categoryID, source, provenance); err != nil {
		return err
	}

	ruleID, pattern, matchType, priority := provenanceArgs(provenance)
	res, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET category_id = ?, category_source = ?,
			rule_id = ?, rule_pattern = ?, rule_match_type = ?, rule_priority = ?
		WHERE id = ?`,
		categoryID, string(source), ruleID, pattern, matchType, priority, id)
	if err != nil {
		return fmt.Errorf("failed to update categorization: %w", mapError(err))
	}
	return affectOne(res, "transaction", id)
}

// UpdateCanonicalMerchant sets or clears a transaction's canonical merchant.
func (s *store) UpdateCanonicalMerchant(ctx context.Context, id int64, canonical *string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET merchant_canonical = ? WHERE id = ?`, canonical, id)
	if err != nil {
		return fmt.Errorf("failed to update canonical merchant: %w", mapError(err))
	}
	return affectOne(res, "transaction", id)
}

// SetTransferPair marks a transaction as a transfer leg paired with pairID,
// or returns it to a normal transaction when pairID is nil.
func (s *store) SetTransferPair(ctx context.Context, id int64, pairID *int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	typ := model.TypeNormal
	if pairID != nil {
		if *pairID == id {
			return fmt.Errorf("%w: transaction %d cannot pair with itself", ErrInvalidTransaction, id)
		}
		typ = model.TypeTransfer
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET transaction_type = ?, transfer_pair_id = ? WHERE id = ?`, string(typ), pairID, id)
	if err != nil {
		return fmt.Errorf("failed to set transaction type: %w", mapError(err))
	}
	return affectOne(res, "transaction", id)
}

// SetNote replaces a transaction's note.
func (s *store) SetNote(ctx context.Context, id int64, note string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `UPDATE transactions SET note = ? WHERE id = ?`, note, id)
	if err != nil {
		return fmt.Errorf("failed to set note: %w", mapError(err))
	}
	return affectOne(res, "transaction", id)
}

// DeleteTransaction removes one transaction and its tag links.
func (s *store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", mapError(err))
	}
	return affectOne(res, "transaction", id)
}

// ClearCategory uncategorizes every transaction in a category and returns how many changed.
func (s *store) ClearCategory(ctx context.Context, categoryID int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET category_id = NULL, category_source = '',
			rule_id = NULL, rule_pattern = NULL, rule_match_type = NULL, rule_priority = NULL
		WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear category: %w", mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// DetachRule drops the rule id from provenance snapshots that reference it.
// The category and the rest of the snapshot are kept.
func (s *store) DetachRule(ctx context.Context, ruleID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET rule_id = NULL WHERE rule_id = ?`, ruleID); err != nil {
		return fmt.Errorf("failed to detach rule: %w", mapError(err))
	}
	return nil
}
