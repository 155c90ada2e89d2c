package model

import "time"

// AccountType describes the kind of account an import batch came from.
type AccountType string

// Account type constants. AccountUnknown is used when the importer did not say.
const (
	AccountUnknown  AccountType = ""
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountCredit   AccountType = "credit"
)

// Valid reports whether a is a known account type.
func (a AccountType) Valid() bool {
	switch a {
	case AccountUnknown, AccountChecking, AccountSavings, AccountCredit:
		return true
	}
	return false
}

// Import is one admission batch, usually one uploaded statement file.
type Import struct {
	CreatedAt    time.Time   `json:"created_at"`
	BatchID      string      `json:"batch_id"`
	Filename     string      `json:"filename"`
	SourceType   string      `json:"source_type"`
	AccountLabel string      `json:"account_label,omitempty"`
	AccountType  AccountType `json:"account_type,omitempty"`
	ID           int64       `json:"id"`
}
