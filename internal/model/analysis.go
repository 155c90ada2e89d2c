package model

import "time"

// FlagType names the kind of risk an audit flag reports.
type FlagType string

// Audit flag types.
const (
	FlagDuplicateLike  FlagType = "duplicate-like"
	FlagBankFee        FlagType = "bank-fee"
	FlagUnusuallyLarge FlagType = "unusually-large"
	FlagNewMerchant    FlagType = "new-merchant"
)

// Severity ranks audit flags.
type Severity string

// Severity levels.
const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// AuditFlag is a computed, never persisted risk annotation on one transaction.
type AuditFlag struct {
	Type        FlagType    `json:"flag_type"`
	Severity    Severity    `json:"severity"`
	Explanation string      `json:"explanation"`
	Transaction Transaction `json:"transaction"`
}

// TransferCandidate pairs a credit with a debit that look like two legs of one transfer.
type TransferCandidate struct {
	Reason        string      `json:"reason"`
	Credit        Transaction `json:"tx1"`
	Debit         Transaction `json:"tx2"`
	ConfidencePct int         `json:"confidence_pct"`
	DayDiff       int         `json:"day_diff"`
}

// ConfirmOutcome reports what ConfirmTransfer did.
type ConfirmOutcome string

// Confirm outcomes.
const (
	Confirmed        ConfirmOutcome = "confirmed"
	AlreadyConfirmed ConfirmOutcome = "no-op"
)

// RecurringPattern is the inferred cadence of a recurring group.
type RecurringPattern string

// Recurring cadences.
const (
	PatternWeekly   RecurringPattern = "weekly"
	PatternBiweekly RecurringPattern = "biweekly"
	PatternMonthly  RecurringPattern = "monthly"
)

// RecurringTransaction is a constituent reference inside a RecurringGroup.
type RecurringTransaction struct {
	PostedDate     time.Time `json:"posted_date"`
	DescriptionRaw string    `json:"description_raw"`
	ID             int64     `json:"id"`
	AmountCents    int64     `json:"amount_cents"`
}

// RecurringGroup is a merchant whose charges follow a regular cadence.
type RecurringGroup struct {
	LastDate       time.Time              `json:"last_date"`
	MerchantKey    string                 `json:"merchant_key"`
	Merchant       string                 `json:"merchant"`
	Pattern        RecurringPattern       `json:"pattern"`
	Transactions   []RecurringTransaction `json:"transactions"`
	AvgAmountCents int64                  `json:"avg_amount_cents"`
	Count          int                    `json:"count"`
}

// SuggestionSource explains why a rule was suggested.
type SuggestionSource string

// Suggestion sources.
const (
	SuggestFromManual        SuggestionSource = "manual_consistency"
	SuggestFromUncategorized SuggestionSource = "uncategorized_volume"
)

// RuleSuggestion proposes a rule mined from the ledger's history.
type RuleSuggestion struct {
	CategoryID *int64           `json:"category_id,omitempty"`
	Merchant   string           `json:"merchant"`
	MatchType  MatchType        `json:"match_type"`
	Pattern    string           `json:"pattern"`
	Source     SuggestionSource `json:"source"`
	Count      int              `json:"count"`
	TotalCents int64            `json:"total_cents"`
	AvgCents   int64            `json:"avg_cents"`
	Confidence int              `json:"confidence"`
}
