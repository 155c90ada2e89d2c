package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>DEBIT
<MEMO>CHECK #1234 LANDLORD
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<PAYEE>
<NAME>Netflix
<ADDR1>100 Winchester Cir
<CITY>Los Gatos
<STATE>CA
<POSTALCODE>95032
<PHONE>8665797172
</PAYEE>
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParse(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{name: "valid bank statement", ofxData: sampleBankOFX, expectedCount: 3},
		{name: "valid credit card statement", ofxData: sampleCreditCardOFX, expectedCount: 2},
		{name: "invalid data", ofxData: "not an ofx file", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statements, err := Parse(context.Background(), strings.NewReader(tt.ofxData))
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, statements, 1)
			assert.Len(t, statements[0].Rows, tt.expectedCount)
		})
	}
}

func TestParseBankStatement(t *testing.T) {
	statements, err := Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, "1234567890", stmt.AccountID)
	assert.Equal(t, model.AccountChecking, stmt.AccountType)
	assert.Equal(t, "USD", stmt.Currency)

	first := stmt.Rows[0]
	assert.Equal(t, "2024-01-15", first[ColDate])
	assert.Equal(t, "STARBUCKS STORE #1234", first[ColDescription])
	assert.Equal(t, "-25.5000", first[ColAmount])
	assert.Equal(t, "2024011501", first[ColFITID])

	assert.Equal(t, "CHECK #1234 LANDLORD", stmt.Rows[2][ColDescription], "generic NAME falls back to MEMO")
}

func TestParseCreditCardStatement(t *testing.T) {
	statements, err := Parse(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, model.AccountCredit, stmt.AccountType)
	assert.Equal(t, "4111111111111111", stmt.AccountID)
	assert.Equal(t, "Netflix", stmt.Rows[1][ColMerchant])
	_, hasMerchant := stmt.Rows[0][ColMerchant]
	assert.False(t, hasMerchant)
}

func TestRowsDraftThroughMapping(t *testing.T) {
	statements, err := Parse(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)

	draft, err := Mapping.Draft(statements[0].Rows[0])
	require.NoError(t, err)
	assert.Equal(t, int64(-4599), draft.AmountCents)
	assert.Equal(t, "Amazon.Com", draft.Merchant)

	draft, err = Mapping.Draft(statements[0].Rows[1])
	require.NoError(t, err)
	assert.Equal(t, "Netflix", draft.Merchant)
}

func TestPreprocess(t *testing.T) {
	in := "\n\n<OFX>\n<SEVERITY>Info</SEVERITY>\n<CODE\n"
	out := preprocess(in)
	assert.True(t, strings.HasPrefix(out, "<OFX>"))
	assert.Contains(t, out, "<SEVERITY>INFO</SEVERITY>")
	assert.Contains(t, out, "<CODE>")
}

func TestBankAccountType(t *testing.T) {
	assert.Equal(t, model.AccountSavings, bankAccountType(ofxgo.AcctTypeSavings.String()))
	assert.Equal(t, model.AccountChecking, bankAccountType(ofxgo.AcctTypeChecking.String()))
	assert.Equal(t, model.AccountChecking, bankAccountType("MONEYMRKT"))
	assert.Equal(t, model.AccountCredit, bankAccountType(ofxgo.AcctTypeCreditLine.String()))
	assert.Equal(t, model.AccountUnknown, bankAccountType(""))
}
