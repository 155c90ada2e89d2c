// Package model defines the core data structures of the ledger engine.
package model

import (
	"strings"
	"time"
)

// CategorySource records who set a transaction's category.
type CategorySource string

// Category source constants. SourceNone means the transaction is uncategorized.
const (
	SourceNone   CategorySource = ""
	SourceRule   CategorySource = "rule"
	SourceManual CategorySource = "manual"
)

// Valid reports whether s is a known category source.
func (s CategorySource) Valid() bool {
	switch s {
	case SourceNone, SourceRule, SourceManual:
		return true
	}
	return false
}

// TransactionType separates ordinary income/expense rows from confirmed transfers.
type TransactionType string

const (
	// TypeNormal is an ordinary income or expense transaction.
	TypeNormal TransactionType = "normal"
	// TypeTransfer is one leg of a confirmed inter-account transfer.
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeNormal || t == TypeTransfer
}

// RuleProvenance is the denormalized snapshot of the rule that last set a category.
// It is only ever written together with the category it explains.
type RuleProvenance struct {
	Pattern   string    `json:"pattern"`
	MatchType MatchType `json:"match_type"`
	RuleID    int64     `json:"rule_id"`
	Priority  int       `json:"priority"`
}

// ProvenanceOf builds the provenance snapshot for a rule.
func ProvenanceOf(rule Rule) *RuleProvenance {
	return &RuleProvenance{
		RuleID:    rule.ID,
		Pattern:   rule.Pattern,
		MatchType: rule.MatchType,
		Priority:  rule.Priority,
	}
}

// Transaction represents a single imported ledger row.
type Transaction struct {
	PostedDate        time.Time       `json:"posted_date"`
	CreatedAt         time.Time       `json:"created_at"`
	CategoryID        *int64          `json:"category_id,omitempty"`
	MerchantCanonical *string         `json:"merchant_canonical,omitempty"`
	Provenance        *RuleProvenance `json:"provenance,omitempty"`
	TransferPairID    *int64          `json:"transfer_pair_id,omitempty"`
	DescriptionRaw    string          `json:"description_raw"`
	DescriptionNorm   string          `json:"description_norm"`
	Currency          string          `json:"currency"`
	Merchant          string          `json:"merchant"`
	CategorySource    CategorySource  `json:"category_source"`
	Note              string          `json:"note,omitempty"`
	Type              TransactionType `json:"transaction_type"`
	Fingerprint       string          `json:"fingerprint_hash"`
	AccountLabel      string          `json:"account_label,omitempty"`
	AccountType       AccountType     `json:"account_type,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
	ID                int64           `json:"id"`
	ImportID          int64           `json:"import_id"`
	AmountCents       int64           `json:"amount_cents"`
}

// DisplayMerchant returns the canonical merchant name when one is known.
func (t *Transaction) DisplayMerchant() string {
	if t.MerchantCanonical != nil && *t.MerchantCanonical != "" {
		return *t.MerchantCanonical
	}
	return t.Merchant
}

// MerchantKey is the case-folded merchant identity used for grouping.
func (t *Transaction) MerchantKey() string {
	return strings.ToLower(strings.TrimSpace(t.DisplayMerchant()))
}

// IsCategorized reports whether a category is assigned.
func (t *Transaction) IsCategorized() bool {
	return t.CategoryID != nil
}

// IsTransfer reports whether the transaction is a confirmed transfer leg.
func (t *Transaction) IsTransfer() bool {
	return t.Type == TypeTransfer
}

// PairedWith reports whether the transaction is a transfer leg whose
// counterpart is id.
func (t *Transaction) PairedWith(id int64) bool {
	return t.IsTransfer() && t.TransferPairID != nil && *t.TransferPairID == id
}

// SameCategory compares two nullable category ids.
func SameCategory(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SameProvenance compares two nullable provenance snapshots.
func SameProvenance(a, b *RuleProvenance) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
