// Package ofx reads OFX/QFX statements into ingest rows.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/ingest"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/aclindsa/ofxgo"
)

// Column names used in rows produced by this package.
const (
	ColDate        = "date"
	ColDescription = "description"
	ColAmount      = "amount"
	ColCurrency    = "currency"
	ColMerchant    = "merchant"
	ColFITID       = "fitid"
)

// Mapping is the column mapping that reads rows produced by Parse.
var Mapping = ingest.ColumnMapping{
	Date:        ColDate,
	Description: ColDescription,
	Amount:      ColAmount,
	Currency:    ColCurrency,
	Merchant:    ColMerchant,
}

// Statement is one account's transactions from an OFX file.
type Statement struct {
	AccountID   string
	AccountType model.AccountType
	Currency    string
	Rows        []ingest.Row
}

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes formatting issues real bank exports contain.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagRe.ReplaceAllString(content, "$1>")
}

// Parse reads every bank and credit card statement in an OFX/QFX file.
func Parse(ctx context.Context, reader io.Reader) ([]Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []Statement
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		s := Statement{
			AccountID:   string(stmt.BankAcctFrom.AcctID),
			AccountType: bankAccountType(stmt.BankAcctFrom.AcctType.String()),
			Currency:    stmt.CurDef.String(),
		}
		if stmt.BankTranList != nil {
			s.Rows = convert(stmt.BankTranList.Transactions, s.Currency)
		}
		statements = append(statements, s)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		s := Statement{
			AccountID:   string(stmt.CCAcctFrom.AcctID),
			AccountType: model.AccountCredit,
			Currency:    stmt.CurDef.String(),
		}
		if stmt.BankTranList != nil {
			s.Rows = convert(stmt.BankTranList.Transactions, s.Currency)
		}
		statements = append(statements, s)
	}

	total := 0
	for _, s := range statements {
		total += len(s.Rows)
	}
	slog.Info("Parsed OFX file", "statements", len(statements), "total_transactions", total)

	return statements, nil
}

// bankAccountType maps an OFX ACCTTYPE value such as "CHECKING".
func bankAccountType(t string) model.AccountType {
	switch strings.ToUpper(t) {
	case "CHECKING", "MONEYMRKT":
		return model.AccountChecking
	case "SAVINGS", "CD":
		return model.AccountSavings
	case "CREDITLINE":
		return model.AccountCredit
	}
	return model.AccountUnknown
}

func convert(txns []ofxgo.Transaction, currency string) []ingest.Row {
	rows := make([]ingest.Row, 0, len(txns))
	for _, tx := range txns {
		row := ingest.Row{
			ColDate:        tx.DtPosted.Time.UTC().Format("2006-01-02"),
			ColDescription: description(tx),
			ColAmount:      tx.TrnAmt.FloatString(4),
			ColCurrency:    currency,
			ColFITID:       string(tx.FiTID),
		}
		if tx.Payee != nil && tx.Payee.Name != "" {
			row[ColMerchant] = string(tx.Payee.Name)
		}
		rows = append(rows, row)
	}
	return rows
}

// description prefers NAME, falling back to MEMO when NAME says nothing.
func description(tx ofxgo.Transaction) string {
	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && (name == "" || isGenericDescription(name)) {
		name = strings.TrimSpace(string(tx.Memo))
	}
	if name == "" && tx.Payee != nil {
		name = strings.TrimSpace(string(tx.Payee.Name))
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
