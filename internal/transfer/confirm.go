package transfer

import (
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// Decide checks whether two loaded transactions may be confirmed as a
// transfer pair. It returns AlreadyConfirmed only when each leg already
// names the other as its counterpart, so confirming twice is a no-op.
func Decide(a, b *model.Transaction) (model.ConfirmOutcome, error) {
	if a.ID == b.ID {
		return "", common.Conflictf("cannot pair transaction %d with itself", a.ID)
	}
	if a.PairedWith(b.ID) && b.PairedWith(a.ID) {
		return model.AlreadyConfirmed, nil
	}
	for _, t := range []*model.Transaction{a, b} {
		if t.IsTransfer() {
			return "", common.Conflictf("transaction %d is already part of another transfer", t.ID)
		}
	}
	return model.Confirmed, nil
}

// DecideUnpair checks whether two loaded transactions may be returned to
// normal. Two normal transactions are a no-op, reported as false.
func DecideUnpair(a, b *model.Transaction) (bool, error) {
	if a.PairedWith(b.ID) && b.PairedWith(a.ID) {
		return true, nil
	}
	if !a.IsTransfer() && !b.IsTransfer() {
		return false, nil
	}
	return false, common.Conflictf("transactions %d and %d are not a confirmed transfer pair", a.ID, b.ID)
}
