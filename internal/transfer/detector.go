// Package transfer finds pairs of transactions that look like the two legs
// of a movement between a profile's own accounts.
package transfer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/normalize"
)

// Config tunes candidate detection.
type Config struct {
	AmountToleranceCents int64
	MaxDayDiff           int
}

// DefaultConfig returns the standard detection window.
func DefaultConfig() Config {
	return Config{AmountToleranceCents: 1, MaxDayDiff: 3}
}

var keywordRe = regexp.MustCompile(`(?i)\b(transfer|zelle|venmo|wire|ach|xfer|trf)\b`)

// Score components.
const (
	baseScore        = 50.0
	exactAmountBonus = 25.0
	nearAmountBonus  = 15.0
	dayBonus         = 20.0
	dayPenalty       = 6.0
	accountTypeBonus = 10.0
	keywordBonus     = 5.0
)

// Score computes the 0-100 confidence that a pair is a transfer. It never
// increases as the day gap or amount difference grows.
func Score(amountDiff int64, dayDiff int, typesDiffer, keyword bool, cfg Config) int {
	s := baseScore
	if amountDiff == 0 {
		s += exactAmountBonus
	} else {
		s += nearAmountBonus * (1 - float64(amountDiff)/float64(cfg.AmountToleranceCents+1))
	}
	s += math.Max(0, dayBonus-dayPenalty*float64(dayDiff))
	if typesDiffer {
		s += accountTypeBonus
	}
	if keyword {
		s += keywordBonus
	}
	return int(math.Round(math.Min(100, math.Max(0, s))))
}

func hasKeyword(t *model.Transaction) bool {
	text := t.DescriptionNorm
	if text == "" {
		text = t.DescriptionRaw
	}
	return keywordRe.MatchString(text)
}

// sameAccount reports whether two rows come from one account: the same
// import batch, or matching known account labels.
func sameAccount(a, b *model.Transaction) bool {
	if a.ImportID == b.ImportID {
		return true
	}
	la, lb := strings.TrimSpace(a.AccountLabel), strings.TrimSpace(b.AccountLabel)
	return la != "" && lb != "" && strings.EqualFold(la, lb)
}

func typesDiffer(a, b *model.Transaction) bool {
	return a.AccountType != model.AccountUnknown && b.AccountType != model.AccountUnknown &&
		a.AccountType != b.AccountType
}

// Detect pairs credits with debits of matching magnitude across accounts.
// Only normal transactions are considered. A transaction may appear in more
// than one candidate; the caller confirms at most one.
func Detect(txns []model.Transaction, cfg Config) []model.TransferCandidate {
	var credits, debits []*model.Transaction
	for i := range txns {
		t := &txns[i]
		if t.Type != model.TypeNormal && t.Type != "" {
			continue
		}
		switch {
		case t.AmountCents > 0:
			credits = append(credits, t)
		case t.AmountCents < 0:
			debits = append(debits, t)
		}
	}

	sort.Slice(debits, func(i, j int) bool {
		ai, aj := -debits[i].AmountCents, -debits[j].AmountCents
		if ai != aj {
			return ai < aj
		}
		return debits[i].ID < debits[j].ID
	})

	var out []model.TransferCandidate
	for _, credit := range credits {
		lo := credit.AmountCents - cfg.AmountToleranceCents
		start := sort.Search(len(debits), func(i int) bool { return -debits[i].AmountCents >= lo })

		for _, debit := range debits[start:] {
			diff := -debit.AmountCents - credit.AmountCents
			if diff > cfg.AmountToleranceCents {
				break
			}
			if diff < 0 {
				diff = -diff
			}
			if sameAccount(credit, debit) {
				continue
			}
			days := normalize.DaysBetween(credit.PostedDate, debit.PostedDate)
			if days > cfg.MaxDayDiff {
				continue
			}
			out = append(out, candidate(credit, debit, diff, days, cfg))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ConfidencePct != b.ConfidencePct {
			return a.ConfidencePct > b.ConfidencePct
		}
		if a.DayDiff != b.DayDiff {
			return a.DayDiff < b.DayDiff
		}
		if a.Credit.ID != b.Credit.ID {
			return a.Credit.ID < b.Credit.ID
		}
		return a.Debit.ID < b.Debit.ID
	})
	return out
}

func candidate(credit, debit *model.Transaction, diff int64, days int, cfg Config) model.TransferCandidate {
	differ := typesDiffer(credit, debit)
	keyword := hasKeyword(credit) || hasKeyword(debit)
	score := Score(diff, days, differ, keyword, cfg)

	parts := []string{"opposite-sign pair " + model.FormatCents(credit.AmountCents)}
	if diff > 0 {
		parts = append(parts, "amounts differ by "+model.FormatCents(diff))
	}
	if days == 0 {
		parts = append(parts, "same day")
	} else {
		parts = append(parts, fmt.Sprintf("%d day(s) apart", days))
	}
	if differ {
		parts = append(parts, fmt.Sprintf("%s to %s", debit.AccountType, credit.AccountType))
	}
	if keyword {
		parts = append(parts, "transfer keyword matched")
	}
	parts = append(parts, fmt.Sprintf("%d%% confidence", score))

	return model.TransferCandidate{
		Credit:        *credit,
		Debit:         *debit,
		ConfidencePct: score,
		DayDiff:       days,
		Reason:        strings.Join(parts, "; "),
	}
}
