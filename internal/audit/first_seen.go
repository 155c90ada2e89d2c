package audit

import (
	"fmt"
	"sort"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// FirstSeen tracks the earliest transaction of each merchant. It is built
// incrementally so callers can stream the ledger through it.
type FirstSeen struct {
	first map[string]model.Transaction
}

// NewFirstSeen returns an empty index.
func NewFirstSeen() *FirstSeen {
	return &FirstSeen{first: make(map[string]model.Transaction)}
}

// Observe records txn if it is the earliest seen for its merchant, ordering
// by posted date then ID.
func (f *FirstSeen) Observe(txn *model.Transaction) {
	key := txn.MerchantKey()
	if key == "" {
		return
	}
	cur, ok := f.first[key]
	if !ok || txn.PostedDate.Before(cur.PostedDate) ||
		(txn.PostedDate.Equal(cur.PostedDate) && txn.ID < cur.ID) {
		f.first[key] = *txn
	}
}

// Len is the number of distinct merchants observed.
func (f *FirstSeen) Len() int {
	return len(f.first)
}

// NewMerchants flags merchants whose first transaction falls inside w.
func (f *FirstSeen) NewMerchants(w Window) []model.AuditFlag {
	keys := make([]string, 0, len(f.first))
	for k := range f.first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var flags []model.AuditFlag
	for _, k := range keys {
		t := f.first[k]
		if !w.Contains(t.PostedDate) {
			continue
		}
		flags = append(flags, model.AuditFlag{
			Type:     model.FlagNewMerchant,
			Severity: model.SeverityInfo,
			Explanation: fmt.Sprintf("first-ever transaction from %q (first seen %s)",
				t.DisplayMerchant(), t.PostedDate.Format("2006-01-02")),
			Transaction: t,
		})
	}
	return flags
}
