package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/storage"
)

// maxNoteLength bounds free-text notes.
const maxNoteLength = 2000

// TransactionPage is one page of a filtered transaction listing.
type TransactionPage struct {
	Transactions []model.Transaction `json:"transactions"`
	Total        int                 `json:"total"`
}

// ListTransactions returns the transactions matching filter with the total
// count ignoring paging.
func (e *Engine) ListTransactions(ctx context.Context, filter service.TransactionFilter) (TransactionPage, error) {
	var page TransactionPage
	if filter.Limit < 0 || filter.Offset < 0 {
		return page, common.Validationf("limit and offset must not be negative")
	}

	err := e.read(ctx, func(q service.Store) error {
		var err error
		if page.Total, err = q.CountTransactions(ctx, filter); err != nil {
			return err
		}
		page.Transactions, err = q.ListTransactions(ctx, filter)
		return err
	})
	if err != nil {
		return TransactionPage{}, common.AsError(err, "failed to list transactions")
	}
	return page, nil
}

// GetTransaction returns one transaction.
func (e *Engine) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	txn, err := e.storage.GetTransaction(ctx, id)
	if err != nil {
		return nil, common.AsError(notFound(err, "transaction %d not found", id), "failed to get transaction")
	}
	return txn, nil
}

// SetManualCategory assigns a category by hand. Rule runs never override a
// manual category. A nil category returns the transaction to uncategorized,
// which makes it eligible for rules again.
func (e *Engine) SetManualCategory(ctx context.Context, id int64, categoryID *int64) (*model.Transaction, error) {
	start := time.Now()
	var txn *model.Transaction

	err := e.write(ctx, func(tx service.Transaction) error {
		if _, err := tx.GetTransaction(ctx, id); err != nil {
			return notFound(err, "transaction %d not found", id)
		}
		source := model.SourceNone
		if categoryID != nil {
			if err := requireCategory(ctx, tx, *categoryID); err != nil {
				return err
			}
			source = model.SourceManual
		}
		if err := tx.UpdateCategorization(ctx, id, categoryID, source, nil); err != nil {
			return err
		}
		var err error
		txn, err = tx.GetTransaction(ctx, id)
		return err
	})
	if err != nil {
		return nil, e.finish("set_manual_category", start, err, common.Fields{"transaction_id": id})
	}
	return txn, e.finish("set_manual_category", start, nil, common.Fields{"transaction_id": id})
}

// SetNote replaces a transaction's note.
func (e *Engine) SetNote(ctx context.Context, id int64, note string) error {
	start := time.Now()
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLength {
		return e.finish("set_note", start, common.Validationf("note exceeds %d characters", maxNoteLength), nil)
	}
	err := e.write(ctx, func(tx service.Transaction) error {
		return notFound(tx.SetNote(ctx, id, note), "transaction %d not found", id)
	})
	return e.finish("set_note", start, err, common.Fields{"transaction_id": id})
}

// SetTags replaces a transaction's tags. Tags are lowercased and de-duplicated.
func (e *Engine) SetTags(ctx context.Context, id int64, tags []string) ([]string, error) {
	start := time.Now()
	normalized, err := storage.NormalizeTags(tags)
	if err != nil {
		return nil, e.finish("set_tags", start, common.Validationf("%v", err), nil)
	}
	err = e.write(ctx, func(tx service.Transaction) error {
		return notFound(tx.SetTags(ctx, id, normalized), "transaction %d not found", id)
	})
	if err != nil {
		return nil, e.finish("set_tags", start, err, common.Fields{"transaction_id": id})
	}
	return normalized, e.finish("set_tags", start, nil, common.Fields{"transaction_id": id, "tags": len(normalized)})
}

// ListTags returns every tag in use.
func (e *Engine) ListTags(ctx context.Context) ([]string, error) {
	tags, err := e.storage.ListTags(ctx)
	if err != nil {
		return nil, common.AsError(err, "failed to list tags")
	}
	return tags, nil
}

// DeleteTransaction removes one transaction. Re-importing the same row later
// will admit it again.
func (e *Engine) DeleteTransaction(ctx context.Context, id int64) error {
	start := time.Now()
	err := e.write(ctx, func(tx service.Transaction) error {
		return notFound(tx.DeleteTransaction(ctx, id), "transaction %d not found", id)
	})
	return e.finish("delete_transaction", start, err, common.Fields{"transaction_id": id})
}

// ListImports returns every import batch, newest first.
func (e *Engine) ListImports(ctx context.Context) ([]model.Import, error) {
	imports, err := e.storage.ListImports(ctx)
	if err != nil {
		return nil, common.AsError(err, "failed to list imports")
	}
	return imports, nil
}

// DeleteImport removes an import batch with all of its transactions and
// returns how many transactions went with it.
func (e *Engine) DeleteImport(ctx context.Context, id int64) (int64, error) {
	start := time.Now()
	var removed int64

	err := e.write(ctx, func(tx service.Transaction) error {
		var err error
		removed, err = tx.DeleteImport(ctx, id)
		if errors.Is(err, storage.ErrInvalidID) {
			return common.Validationf("import id must be positive")
		}
		return notFound(err, "import %d not found", id)
	})
	if err != nil {
		removed = 0
	}
	return removed, e.finish("delete_import", start, err, common.Fields{"import_id": id, "removed": int(removed)})
}
