package engine

import (
	"context"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/transfer"
)

// TransferCandidates proposes credit/debit pairs that look like one
// transfer between two of the profile's accounts.
func (e *Engine) TransferCandidates(ctx context.Context) ([]model.TransferCandidate, error) {
	start := time.Now()
	var candidates []model.TransferCandidate

	err := e.read(ctx, func(q service.Store) error {
		txns, err := q.ListTransactions(ctx, service.TransactionFilter{NormalOnly: true})
		if err != nil {
			return err
		}
		candidates = transfer.Detect(txns, e.config.Transfer)
		return nil
	})
	if err != nil {
		return nil, e.finish("transfer_candidates", start, err, nil)
	}
	return candidates, e.finish("transfer_candidates", start, nil, common.Fields{"candidates": len(candidates)})
}

// ConfirmTransfer marks both transactions as transfer legs in one
// transaction. The argument order does not matter, and confirming an
// already confirmed pair is a no-op.
func (e *Engine) ConfirmTransfer(ctx context.Context, id1, id2 int64) (model.ConfirmOutcome, error) {
	start := time.Now()
	var outcome model.ConfirmOutcome

	err := e.write(ctx, func(tx service.Transaction) error {
		a, err := tx.GetTransaction(ctx, id1)
		if err != nil {
			return notFound(err, "transaction %d not found", id1)
		}
		b, err := tx.GetTransaction(ctx, id2)
		if err != nil {
			return notFound(err, "transaction %d not found", id2)
		}

		outcome, err = transfer.Decide(a, b)
		if err != nil || outcome == model.AlreadyConfirmed {
			return err
		}

		if err := tx.SetTransferPair(ctx, a.ID, &b.ID); err != nil {
			return err
		}
		return tx.SetTransferPair(ctx, b.ID, &a.ID)
	})
	if err != nil {
		return "", e.finish("confirm_transfer", start, err, common.Fields{"id1": id1, "id2": id2})
	}
	return outcome, e.finish("confirm_transfer", start, nil, common.Fields{"id1": id1, "id2": id2, "outcome": string(outcome)})
}

// UnconfirmTransfer returns both legs of a transfer to normal transactions.
// The two ids must name each other; unpairing two normal transactions is a
// no-op.
func (e *Engine) UnconfirmTransfer(ctx context.Context, id1, id2 int64) error {
	start := time.Now()
	err := e.write(ctx, func(tx service.Transaction) error {
		a, err := tx.GetTransaction(ctx, id1)
		if err != nil {
			return notFound(err, "transaction %d not found", id1)
		}
		b, err := tx.GetTransaction(ctx, id2)
		if err != nil {
			return notFound(err, "transaction %d not found", id2)
		}

		paired, err := transfer.DecideUnpair(a, b)
		if err != nil || !paired {
			return err
		}
		for _, id := range []int64{a.ID, b.ID} {
			if err := tx.SetTransferPair(ctx, id, nil); err != nil {
				return err
			}
		}
		return nil
	})
	return e.finish("unconfirm_transfer", start, err, common.Fields{"id1": id1, "id2": id2})
}
