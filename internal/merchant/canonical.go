// Package merchant maps raw merchant strings to canonical display names.
package merchant

import (
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// AliasKey is the lookup form of an alias: trimmed and lowercased.
func AliasKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AliasMap resolves alias keys to canonical names.
type AliasMap map[string]string

// NewAliasMap indexes aliases by key.
func NewAliasMap(aliases []model.MerchantAlias) AliasMap {
	m := make(AliasMap, len(aliases))
	for _, a := range aliases {
		m[AliasKey(a.Alias)] = a.Canonical
	}
	return m
}

// Canonicalize returns the canonical name for raw, or raw itself when no
// alias matches.
func (m AliasMap) Canonicalize(raw string) string {
	if c, ok := m[AliasKey(raw)]; ok {
		return c
	}
	return raw
}

// CanonicalFor computes the merchant_canonical value of a transaction.
// Transactions without a merchant have no canonical name.
func (m AliasMap) CanonicalFor(merchant string) *string {
	if strings.TrimSpace(merchant) == "" {
		return nil
	}
	c := m.Canonicalize(merchant)
	return &c
}

// Canonicalize is a convenience for one-off lookups.
func Canonicalize(raw string, aliases []model.MerchantAlias) string {
	return NewAliasMap(aliases).Canonicalize(raw)
}

// SameName compares two nullable canonical names.
func SameName(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
