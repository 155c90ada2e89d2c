// Package ingest converts statement rows into transaction drafts and
// decides which of them are new to a profile's ledger.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fingerprint is the stable dedup identity of a transaction:
// SHA-256 of "YYYY-MM-DD|<trimmed raw description>|<amount to 4 places>".
// The raw description is used so later normalization changes never
// create phantom duplicates.
func Fingerprint(date time.Time, descriptionRaw string, amountCents int64) string {
	canonical := date.Format("2006-01-02") + "|" +
		strings.TrimSpace(descriptionRaw) + "|" +
		decimal.New(amountCents, -2).StringFixed(4)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Decision is the outcome of admitting one draft.
type Decision int

const (
	// Inserted means the draft is new and should be stored.
	Inserted Decision = iota
	// SkippedDuplicate means the fingerprint is already in the ledger or batch.
	SkippedDuplicate
)

func (d Decision) String() string {
	if d == Inserted {
		return "inserted"
	}
	return "skipped_duplicate"
}

// FingerprintSet tracks fingerprints already present in a profile, including
// rows admitted earlier in the current batch.
type FingerprintSet map[string]struct{}

// NewFingerprintSet builds a set from existing fingerprints.
func NewFingerprintSet(existing []string) FingerprintSet {
	s := make(FingerprintSet, len(existing))
	for _, fp := range existing {
		s[fp] = struct{}{}
	}
	return s
}

// Contains reports whether fp has been seen.
func (s FingerprintSet) Contains(fp string) bool {
	_, ok := s[fp]
	return ok
}

// Admit decides whether draft is new. An inserted draft's fingerprint is
// recorded so a repeat within the same batch is skipped.
func Admit(draft Draft, seen FingerprintSet) Decision {
	if seen.Contains(draft.Fingerprint) {
		return SkippedDuplicate
	}
	seen[draft.Fingerprint] = struct{}{}
	return Inserted
}
