package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/normalize"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a row has no currency column or an empty cell.
const DefaultCurrency = "USD"

// Row is one statement line keyed by column header.
type Row map[string]string

// ErrInvalidRow reports a row that cannot become a transaction.
var ErrInvalidRow = errors.New("invalid row")

// ErrInvalidMapping reports a column mapping that cannot produce drafts.
var ErrInvalidMapping = errors.New("invalid column mapping")

// ColumnMapping names the columns that hold each transaction field. Either
// Amount or at least one of Debit and Credit must be set.
type ColumnMapping struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Merchant    string `json:"merchant,omitempty"`
}

// Validate checks that the mapping names the required columns.
func (m ColumnMapping) Validate() error {
	switch {
	case m.Date == "":
		return fmt.Errorf("%w: date column is required", ErrInvalidMapping)
	case m.Description == "":
		return fmt.Errorf("%w: description column is required", ErrInvalidMapping)
	case m.Amount == "" && m.Debit == "" && m.Credit == "":
		return fmt.Errorf("%w: amount or debit/credit columns are required", ErrInvalidMapping)
	}
	return nil
}

// Draft is a parsed row ready to be stored.
type Draft struct {
	PostedDate      time.Time
	DescriptionRaw  string
	DescriptionNorm string
	Currency        string
	Merchant        string
	Fingerprint     string
	AmountCents     int64
}

// NewDraft fills the derived fields of a draft.
func NewDraft(date time.Time, descriptionRaw string, amountCents int64, currency, merchant string) Draft {
	date = normalize.DateOnly(date)
	if currency = strings.ToUpper(strings.TrimSpace(currency)); currency == "" {
		currency = DefaultCurrency
	}
	merchant = strings.TrimSpace(merchant)
	if merchant == "" {
		merchant = normalize.ExtractMerchant(descriptionRaw)
	}
	return Draft{
		PostedDate:      date,
		DescriptionRaw:  descriptionRaw,
		DescriptionNorm: normalize.Description(descriptionRaw),
		AmountCents:     amountCents,
		Currency:        currency,
		Merchant:        merchant,
		Fingerprint:     Fingerprint(date, descriptionRaw, amountCents),
	}
}

// Draft converts row into a draft using the mapping.
func (m ColumnMapping) Draft(row Row) (Draft, error) {
	rawDate := strings.TrimSpace(row[m.Date])
	date, err := normalize.ParseDate(rawDate)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}

	desc := strings.TrimSpace(row[m.Description])
	if desc == "" {
		return Draft{}, fmt.Errorf("%w: empty description", ErrInvalidRow)
	}

	var amount decimal.Decimal
	if m.Amount != "" {
		amount, err = normalize.ParseAmount(row[m.Amount])
	} else {
		amount, err = normalize.ParseSplitAmount(row[m.Debit], row[m.Credit])
	}
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}

	var merchant string
	if m.Merchant != "" && m.Merchant != m.Description {
		merchant = row[m.Merchant]
	}

	return NewDraft(date, desc, normalize.ToCents(amount), row[m.Currency], merchant), nil
}

// Header candidates per known source type, matched case-insensitively.
var presets = map[string]map[string][]string{
	"generic": {
		"date":        {"Date", "Transaction Date", "Posted Date", "Trans. Date", "Posting Date"},
		"description": {"Description", "Payee", "Memo", "Narrative", "Details", "Transaction Description"},
		"amount":      {"Amount", "Transaction Amount"},
		"debit":       {"Debit", "Withdrawal", "Withdrawals", "Money Out"},
		"credit":      {"Credit", "Deposit", "Deposits", "Money In"},
		"currency":    {"Currency", "Ccy"},
		"merchant":    {"Merchant", "Merchant Name"},
	},
	"chase": {
		"date":        {"Transaction Date"},
		"description": {"Description"},
		"amount":      {"Amount"},
	},
	"bofa": {
		"date":        {"Date"},
		"description": {"Description"},
		"amount":      {"Amount"},
	},
	"amex": {
		"date":        {"Date"},
		"description": {"Description"},
		"amount":      {"Amount"},
	},
}

// SourceTypes lists the source types DetectMapping understands.
func SourceTypes() []string {
	return []string{"amex", "bofa", "chase", "generic"}
}

// DetectMapping builds a mapping for a known source type from a CSV header.
func DetectMapping(sourceType string, headers []string) (ColumnMapping, error) {
	preset, ok := presets[strings.ToLower(sourceType)]
	if !ok {
		return ColumnMapping{}, fmt.Errorf("%w: unknown source type %q", ErrInvalidMapping, sourceType)
	}

	index := make(map[string]string, len(headers))
	for _, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = h
	}
	resolve := func(field string) string {
		for _, c := range preset[field] {
			if h, ok := index[strings.ToLower(c)]; ok {
				return h
			}
		}
		return ""
	}

	m := ColumnMapping{
		Date:        resolve("date"),
		Description: resolve("description"),
		Amount:      resolve("amount"),
		Currency:    resolve("currency"),
		Merchant:    resolve("merchant"),
	}
	if m.Amount == "" {
		m.Debit = resolve("debit")
		m.Credit = resolve("credit")
	}
	return m, m.Validate()
}
