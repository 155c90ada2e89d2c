package model

import (
	"time"
)

// MatchType selects how a rule pattern is compared to a transaction.
type MatchType string

// Match type constants.
const (
	MatchContains MatchType = "contains"
	MatchExact    MatchType = "exact"
	MatchRegex    MatchType = "regex"
)

// Valid reports whether m is a known match type.
func (m MatchType) Valid() bool {
	switch m {
	case MatchContains, MatchExact, MatchRegex:
		return true
	}
	return false
}

// DefaultRulePriority is used when a caller does not choose a priority.
const DefaultRulePriority = 50

// Rule assigns a category to transactions whose text matches Pattern.
// Rules are evaluated by priority descending, then by ID ascending.
type Rule struct {
	CreatedAt  time.Time `json:"created_at"`
	Pattern    string    `json:"pattern"`
	MatchType  MatchType `json:"match_type"`
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Priority   int       `json:"priority"`
	IsActive   bool      `json:"is_active"`
}

// MerchantAlias maps a raw merchant string to its display name.
type MerchantAlias struct {
	Alias     string `json:"alias"`
	Canonical string `json:"canonical"`
	ID        int64  `json:"id"`
}
