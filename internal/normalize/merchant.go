package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var prefixRe = regexp.MustCompile(`(?i)^(?:` +
	`ONLINE (?:PAYMENT|PURCHASE|TRANSFER|BANKING TRANSFER)\s*[-–]?\s*|` +
	`DEBIT CARD (?:PURCHASE|PAYMENT)\s+|` +
	`DEBIT (?:CARD\s+)?PURCHASE\s+|` +
	`RECURRING (?:CHARGE|PAYMENT|PMT)\s+|` +
	`BILL PAYMENT\s+|` +
	`POS (?:PURCHASE|DEBIT|PMT|REFUND)?\s*|` +
	`ACH (?:DEBIT|CREDIT|PMT|PAYMENT|TRANSFER)?\s*|` +
	`WIRE (?:TRANSFER|PMT)\s+|` +
	`CHECK (?:CARD\s+)?PURCHASE\s+|` +
	`TST\s*\*\s*|` +
	`SQ\s*\*\s*|` +
	`PP\s*\*\s*|` +
	`PAYPAL\s*\*?\s*|` +
	`VENMO\s*\*?\s*|` +
	`APPLE\.COM/BILL\s+|` +
	`GOOGLE\s+PLAY\s+|` +
	`AMZN\s+MKTP\s+|` +
	`AMZN\s*\*\s*` +
	`)`)

// Applied repeatedly until the string stops changing.
var trailingNoise = []*regexp.Regexp{
	regexp.MustCompile(`\s+\d{2}/\d{2}(?:/\d{2,4})?$`),
	regexp.MustCompile(`\s+\d{2}-\d{2}(?:-\d{2,4})?$`),
	regexp.MustCompile(`\s+#\w[\w\-]*(?:\s.*)?$`),
	regexp.MustCompile(`(?i)\s+REF\s*#?\w+$`),
	regexp.MustCompile(`(?i)\s+TXN\s*#?\w*$`),
	regexp.MustCompile(`(?i)\s+PMT$`),
	regexp.MustCompile(`\s+\d{6,}$`),
	regexp.MustCompile(`\s+[A-Z]{2}\s+\d{5}(?:-\d{4})?$`),
	regexp.MustCompile(`\s+[A-Z]{2}$`),
}

var (
	digitRe      = regexp.MustCompile(`\d`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Description lowercases and collapses whitespace for the searchable form.
func Description(raw string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), " ")
}

// ExtractMerchant derives a clean title-cased merchant name from a bank
// description, e.g. "SQ *LOCAL COFFEE SHOP SF CA" becomes "Local Coffee Shop".
// It falls back to the trimmed input when nothing is left.
func ExtractMerchant(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	s = strings.TrimSpace(prefixRe.ReplaceAllString(s, ""))

	if before, after, ok := strings.Cut(s, "*"); ok {
		before = strings.TrimSpace(before)
		after = strings.TrimSpace(after)
		firstToken := ""
		if fields := strings.Fields(after); len(fields) > 0 {
			firstToken = fields[0]
		}

		switch {
		case after == "" || digitRe.MatchString(firstToken):
			s = before
		case !strings.Contains(after, " ") && len(after) <= 20:
			s = before + " " + after
		case strings.Contains(after, " "):
			s = before + " " + after
		default:
			s = before
		}
	}

	s = stripTrailingNoise(s)
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return strings.TrimSpace(raw)
	}
	return titleCase(s)
}

func stripTrailingNoise(s string) string {
	for prev := ""; prev != s; {
		prev = s
		for _, re := range trailingNoise {
			s = re.ReplaceAllString(s, "")
		}
	}
	s = strings.TrimRight(strings.TrimSpace(s), "*#")
	return strings.TrimSpace(s)
}

// titleCase upper-cases the first letter of each run of letters and
// lower-cases the rest, so "AMAZON.COM" becomes "Amazon.Com". An apostrophe
// inside a word does not start a new one.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = prevLetter && r == '\''
	}
	return b.String()
}
