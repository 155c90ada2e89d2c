package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/ingest"
	"github.com/Veraticus/the-ledger-must-balance/internal/merchant"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/pattern"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/storage"
	"github.com/google/uuid"
)

// maxReportedInvalid bounds the per-row rejection details kept in a result.
const maxReportedInvalid = 50

// InvalidRow explains why one input row was not admitted.
type InvalidRow struct {
	Reason string `json:"reason"`
	Index  int    `json:"index"`
}

// AdmitResult summarizes one admission batch.
type AdmitResult struct {
	BatchID     string       `json:"batch_id"`
	InvalidRows []InvalidRow `json:"invalid_rows,omitempty"`
	ImportID    int64        `json:"import_id"`
	Inserted    int          `json:"inserted"`
	Skipped     int          `json:"skipped"`
	Invalid     int          `json:"invalid"`
}

// Admit stores the rows of one import batch. Rows whose fingerprint is
// already in the ledger, or earlier in the same batch, are skipped. Rows that
// cannot be parsed are counted as invalid and never abort the batch. Inserted
// rows are canonicalized and categorized in the same transaction.
func (e *Engine) Admit(ctx context.Context, req ImportRequest, rows []ingest.Row) (AdmitResult, error) {
	start := time.Now()
	var result AdmitResult

	if err := req.validate(); err != nil {
		return result, e.finish("admit", start, err, nil)
	}
	if req.BatchID == "" {
		req.BatchID = uuid.NewString()
	}
	if req.SourceType == "" {
		req.SourceType = "generic"
	}

	err := e.write(ctx, func(tx service.Transaction) error {
		result = AdmitResult{BatchID: req.BatchID}

		existing, err := tx.Fingerprints(ctx)
		if err != nil {
			return err
		}
		seen := ingest.NewFingerprintSet(existing)

		rules, err := tx.ListRules(ctx, true)
		if err != nil {
			return err
		}
		matcher := pattern.NewMatcher(rules)

		aliasList, err := tx.ListAliases(ctx)
		if err != nil {
			return err
		}
		aliases := merchant.NewAliasMap(aliasList)

		imp := &model.Import{
			BatchID:      req.BatchID,
			Filename:     req.Filename,
			SourceType:   req.SourceType,
			AccountLabel: req.AccountLabel,
			AccountType:  req.AccountType,
		}
		if err := tx.CreateImport(ctx, imp); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return common.Conflictf("import batch %s already exists", req.BatchID)
			}
			return err
		}
		result.ImportID = imp.ID

		for i, row := range rows {
			draft, err := req.Mapping.Draft(row)
			if err != nil {
				result.Invalid++
				if len(result.InvalidRows) < maxReportedInvalid {
					result.InvalidRows = append(result.InvalidRows, InvalidRow{Index: i, Reason: err.Error()})
				}
				continue
			}

			if ingest.Admit(draft, seen) == ingest.SkippedDuplicate {
				result.Skipped++
				continue
			}

			txn := transactionFromDraft(imp, draft)
			txn.MerchantCanonical = aliases.CanonicalFor(txn.Merchant)
			a := matcher.Assign(&txn)
			txn.CategoryID, txn.CategorySource, txn.Provenance = a.CategoryID, a.Source, a.Provenance

			if err := tx.InsertTransaction(ctx, &txn); err != nil {
				if errors.Is(err, storage.ErrDuplicate) {
					result.Skipped++
					continue
				}
				return err
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		result = AdmitResult{}
	}

	return result, e.finish("admit", start, err, common.Fields{
		"batch_id": req.BatchID,
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
		"invalid":  result.Invalid,
	})
}

func transactionFromDraft(imp *model.Import, d ingest.Draft) model.Transaction {
	return model.Transaction{
		ImportID:        imp.ID,
		PostedDate:      d.PostedDate,
		DescriptionRaw:  d.DescriptionRaw,
		DescriptionNorm: d.DescriptionNorm,
		AmountCents:     d.AmountCents,
		Currency:        d.Currency,
		Merchant:        d.Merchant,
		Fingerprint:     d.Fingerprint,
		Type:            model.TypeNormal,
		AccountLabel:    imp.AccountLabel,
		AccountType:     imp.AccountType,
	}
}
