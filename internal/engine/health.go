package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/merchant"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/transfer"
)

// MerchantCount is a merchant and how many transactions carry it.
type MerchantCount struct {
	Merchant string `json:"merchant"`
	Count    int    `json:"count"`
}

// HealthReport summarizes data quality for one profile.
type HealthReport struct {
	LastImport              *time.Time      `json:"last_import,omitempty"`
	TopUnmappedMerchants    []MerchantCount `json:"top_unmapped_merchants"`
	Recommendations         []string        `json:"recommendations"`
	TotalTransactions       int             `json:"total_transactions"`
	Uncategorized           int             `json:"uncategorized"`
	UnmappedMerchants       int             `json:"unmapped_merchants"`
	ImportsMissingLabel     int             `json:"imports_missing_label"`
	PossibleDuplicateGroups int             `json:"possible_duplicate_groups"`
	TransferCandidates      int             `json:"transfer_candidates"`
	ActiveRules             int             `json:"active_rules"`
}

type healthDupKey struct {
	date     string
	merchant string
	amount   int64
}

// Health reports data quality metrics with plain-language recommendations.
func (e *Engine) Health(ctx context.Context) (HealthReport, error) {
	start := time.Now()
	var report HealthReport

	err := e.read(ctx, func(q service.Store) error {
		report = HealthReport{}

		aliasList, err := q.ListAliases(ctx)
		if err != nil {
			return err
		}
		aliases := merchant.NewAliasMap(aliasList)

		unmapped := make(map[string]int)
		dups := make(map[healthDupKey]int)
		var normal []model.Transaction

		err = q.EachTransaction(ctx, service.TransactionFilter{}, func(txn *model.Transaction) error {
			report.TotalTransactions++
			if !txn.IsCategorized() {
				report.Uncategorized++
			}
			if m := strings.TrimSpace(txn.Merchant); m != "" {
				if _, ok := aliases[merchant.AliasKey(m)]; !ok {
					report.UnmappedMerchants++
					unmapped[m]++
				}
			}
			dups[healthDupKey{
				date:     txn.PostedDate.Format("2006-01-02"),
				merchant: strings.ToLower(txn.Merchant),
				amount:   txn.AmountCents,
			}]++
			if !txn.IsTransfer() {
				normal = append(normal, *txn)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, n := range dups {
			if n > 1 {
				report.PossibleDuplicateGroups++
			}
		}
		report.TopUnmappedMerchants = topMerchants(unmapped, 5)
		report.TransferCandidates = len(transfer.Detect(normal, e.config.Transfer))

		rules, err := q.ListRules(ctx, true)
		if err != nil {
			return err
		}
		report.ActiveRules = len(rules)

		imports, err := q.ListImports(ctx)
		if err != nil {
			return err
		}
		for _, imp := range imports {
			if strings.TrimSpace(imp.AccountLabel) == "" {
				report.ImportsMissingLabel++
			}
		}
		if len(imports) > 0 {
			last := imports[0].CreatedAt
			report.LastImport = &last
		}
		return nil
	})
	if err != nil {
		return HealthReport{}, e.finish("health", start, err, nil)
	}

	report.Recommendations = recommendations(report)
	return report, e.finish("health", start, nil, common.Fields{"total_transactions": report.TotalTransactions})
}

func topMerchants(counts map[string]int, n int) []MerchantCount {
	out := make([]MerchantCount, 0, len(counts))
	for m, c := range counts {
		out = append(out, MerchantCount{Merchant: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Merchant < out[j].Merchant
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func recommendations(r HealthReport) []string {
	recs := []string{}
	if r.Uncategorized > 0 {
		recs = append(recs, "Categorize "+plural(r.Uncategorized, "uncategorized transaction"))
	}
	if r.UnmappedMerchants > 0 {
		recs = append(recs, "Add merchant aliases for "+plural(r.UnmappedMerchants, "unmapped merchant"))
	}
	if r.ImportsMissingLabel > 0 {
		recs = append(recs, "Label "+plural(r.ImportsMissingLabel, "import")+" with account names")
	}
	if r.TransferCandidates > 0 {
		recs = append(recs, "Review "+plural(r.TransferCandidates, "transfer candidate"))
	}
	if r.PossibleDuplicateGroups > 0 {
		recs = append(recs, "Check "+plural(r.PossibleDuplicateGroups, "possible duplicate group"))
	}
	return recs
}
