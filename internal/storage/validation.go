package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidID          = errors.New("id must be positive")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRule        = errors.New("invalid rule")
	ErrInvalidAlias       = errors.New("invalid merchant alias")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidImport      = errors.New("invalid import")
	ErrInvalidTag         = errors.New("invalid tag")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidID, paramName)
	}
	return nil
}

func validateImport(imp *model.Import) error {
	if imp == nil {
		return fmt.Errorf("%w: import", ErrNilParameter)
	}
	if imp.BatchID == "" {
		return fmt.Errorf("%w: missing batch id", ErrInvalidImport)
	}
	if !imp.AccountType.Valid() {
		return fmt.Errorf("%w: account type %q", ErrInvalidImport, imp.AccountType)
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	switch {
	case txn.ImportID <= 0:
		return fmt.Errorf("%w: missing import id", ErrInvalidTransaction)
	case txn.PostedDate.IsZero():
		return fmt.Errorf("%w: missing posted date", ErrInvalidTransaction)
	case strings.TrimSpace(txn.DescriptionRaw) == "":
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	case txn.Fingerprint == "":
		return fmt.Errorf("%w: missing fingerprint", ErrInvalidTransaction)
	case !txn.CategorySource.Valid():
		return fmt.Errorf("%w: category source %q", ErrInvalidTransaction, txn.CategorySource)
	case txn.Type != "" && !txn.Type.Valid():
		return fmt.Errorf("%w: type %q", ErrInvalidTransaction, txn.Type)
	}
	return nil
}

func validateCategorization(categoryID *int64, source model.CategorySource, prov *model.RuleProvenance) error {
	if !source.Valid() {
		return fmt.Errorf("%w: category source %q", ErrInvalidTransaction, source)
	}
	if (categoryID == nil) != (source == model.SourceNone) {
		return fmt.Errorf("%w: category and source must be set together", ErrInvalidTransaction)
	}
	if prov != nil && source != model.SourceRule {
		return fmt.Errorf("%w: provenance requires rule source", ErrInvalidTransaction)
	}
	return nil
}

func validateCategory(c *model.Category) error {
	if c == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	return nil
}

func validateRule(r *model.Rule) error {
	if r == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	switch {
	case strings.TrimSpace(r.Pattern) == "":
		return fmt.Errorf("%w: missing pattern", ErrInvalidRule)
	case !r.MatchType.Valid():
		return fmt.Errorf("%w: match type %q", ErrInvalidRule, r.MatchType)
	case r.CategoryID <= 0:
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	return nil
}

func validateAlias(a *model.MerchantAlias) error {
	if a == nil {
		return fmt.Errorf("%w: alias", ErrNilParameter)
	}
	if strings.TrimSpace(a.Alias) == "" || strings.TrimSpace(a.Canonical) == "" {
		return fmt.Errorf("%w: alias and canonical are required", ErrInvalidAlias)
	}
	return nil
}

// tagSeparator joins tag names in aggregated queries; tags may not contain it.
const tagSeparator = "\x1f"

// NormalizeTags trims, lowercases and de-duplicates tag names.
func NormalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(t, tagSeparator) || len(t) > 64 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTag, t)
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
