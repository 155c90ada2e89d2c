// Package audit computes risk flags over a window of a profile's ledger.
// Flags are derived on demand and never stored.
package audit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// Config tunes the audit checks.
type Config struct {
	FeeKeywords     []string
	LargeMultiplier float64
	MinSample       int
}

// DefaultFeeKeywords are matched against the normalized description.
func DefaultFeeKeywords() []string {
	return []string{
		"fee",
		"overdraft",
		"nsf",
		"maintenance",
		"penalty",
		"interest",
		"service charge",
		"annual fee",
		"monthly fee",
		"atm fee",
		"wire fee",
		"foreign transaction",
		"returned item",
		"insufficient funds",
		"late payment",
		"finance charge",
	}
}

// DefaultConfig returns the standard audit thresholds.
func DefaultConfig() Config {
	return Config{FeeKeywords: DefaultFeeKeywords(), LargeMultiplier: 3.0, MinSample: 3}
}

// Window bounds a scan by posted date. Nil ends are open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether date falls inside the window, inclusive.
func (w Window) Contains(date time.Time) bool {
	if w.From != nil && date.Before(*w.From) {
		return false
	}
	if w.To != nil && date.After(*w.To) {
		return false
	}
	return true
}

// Scan runs every check over ledger, which must hold all of the profile's
// transactions up to the window end so first appearances are known.
func Scan(ledger []model.Transaction, w Window, cfg Config) []model.AuditFlag {
	seen := NewFirstSeen()
	var window []model.Transaction
	for i := range ledger {
		seen.Observe(&ledger[i])
		if w.Contains(ledger[i].PostedDate) {
			window = append(window, ledger[i])
		}
	}
	return ScanWindow(window, seen, w, cfg)
}

// ScanWindow runs the checks given the window's transactions and a
// first-seen index built over the whole ledger.
func ScanWindow(window []model.Transaction, seen *FirstSeen, w Window, cfg Config) []model.AuditFlag {
	var flags []model.AuditFlag
	flags = append(flags, duplicates(window)...)
	flags = append(flags, fees(window, compileKeywords(cfg.FeeKeywords))...)
	flags = append(flags, large(window, cfg)...)
	flags = append(flags, seen.NewMerchants(w)...)

	SortFlags(flags)
	return flags
}

// SortFlags orders flags newest first, then by type, then by transaction ID.
func SortFlags(flags []model.AuditFlag) {
	sort.SliceStable(flags, func(i, j int) bool {
		a, b := flags[i], flags[j]
		if !a.Transaction.PostedDate.Equal(b.Transaction.PostedDate) {
			return a.Transaction.PostedDate.After(b.Transaction.PostedDate)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Transaction.ID < b.Transaction.ID
	})
}

type dupKey struct {
	date   time.Time
	desc   string
	amount int64
}

func duplicates(window []model.Transaction) []model.AuditFlag {
	groups := make(map[dupKey][]int)
	var order []dupKey
	for i := range window {
		t := &window[i]
		if t.IsTransfer() {
			continue
		}
		k := dupKey{date: t.PostedDate, amount: t.AmountCents, desc: t.DescriptionNorm}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	var flags []model.AuditFlag
	for _, k := range order {
		members := groups[k]
		fingerprints := make(map[string]struct{}, len(members))
		for _, i := range members {
			fingerprints[window[i].Fingerprint] = struct{}{}
		}
		if len(members) < 2 || len(fingerprints) < 2 {
			continue
		}

		for _, i := range members {
			var peers []string
			for _, j := range members {
				if j != i {
					peers = append(peers, fmt.Sprint(window[j].ID))
				}
			}
			flags = append(flags, model.AuditFlag{
				Type:     model.FlagDuplicateLike,
				Severity: model.SeverityWarning,
				Explanation: fmt.Sprintf("same date (%s), amount (%s) and description as %d other transaction(s) [IDs: %s]",
					k.date.Format("2006-01-02"), model.FormatCents(model.AbsCents(k.amount)), len(peers), strings.Join(peers, ", ")),
				Transaction: window[i],
			})
		}
	}
	return flags
}

type keyword struct {
	re   *regexp.Regexp
	word string
}

// compileKeywords builds whole-word, case-insensitive matchers so "fee"
// does not match "coffee".
func compileKeywords(words []string) []keyword {
	out := make([]keyword, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, keyword{word: w, re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)})
	}
	return out
}

func fees(window []model.Transaction, keywords []keyword) []model.AuditFlag {
	var flags []model.AuditFlag
	for i := range window {
		desc := window[i].DescriptionNorm
		for _, kw := range keywords {
			if kw.re.MatchString(desc) {
				flags = append(flags, model.AuditFlag{
					Type:        model.FlagBankFee,
					Severity:    model.SeverityInfo,
					Explanation: fmt.Sprintf("description contains bank-fee keyword %q", kw.word),
					Transaction: window[i],
				})
				break
			}
		}
	}
	return flags
}
