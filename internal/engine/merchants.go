package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/merchant"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/storage"
)

// RebuildResult summarizes a canonical merchant rebuild.
type RebuildResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// RebuildCanonicalMerchants recomputes merchant_canonical for every
// transaction from the alias table. A second run updates nothing.
func (e *Engine) RebuildCanonicalMerchants(ctx context.Context) (RebuildResult, error) {
	start := time.Now()
	var result RebuildResult

	err := e.write(ctx, func(tx service.Transaction) error {
		var err error
		result, err = rebuildCanonical(ctx, tx)
		return err
	})
	if err != nil {
		result = RebuildResult{}
	}

	return result, e.finish("rebuild_canonical_merchants", start, err, common.Fields{
		"updated": result.Updated,
		"skipped": result.Skipped,
		"total":   result.Total,
	})
}

func rebuildCanonical(ctx context.Context, tx service.Store) (RebuildResult, error) {
	var result RebuildResult

	list, err := tx.ListAliases(ctx)
	if err != nil {
		return result, err
	}
	aliases := merchant.NewAliasMap(list)

	txns, err := tx.ListTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return result, err
	}
	result.Total = len(txns)

	for i := range txns {
		txn := &txns[i]
		canonical := aliases.CanonicalFor(txn.Merchant)
		if merchant.SameName(canonical, txn.MerchantCanonical) {
			continue
		}
		if err := tx.UpdateCanonicalMerchant(ctx, txn.ID, canonical); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Skipped++
			common.LogWarn("Failed to update canonical merchant", common.Fields{"transaction_id": txn.ID, "error": err.Error()})
			continue
		}
		result.Updated++
	}
	return result, nil
}

// ListAliases returns every merchant alias.
func (e *Engine) ListAliases(ctx context.Context) ([]model.MerchantAlias, error) {
	aliases, err := e.storage.ListAliases(ctx)
	if err != nil {
		return nil, common.AsError(err, "failed to list aliases")
	}
	return aliases, nil
}

// CreateAlias adds a merchant alias. It does not touch existing
// transactions; call RebuildCanonicalMerchants for that.
func (e *Engine) CreateAlias(ctx context.Context, in AliasInput) (*model.MerchantAlias, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		return nil, e.finish("create_alias", start, err, nil)
	}

	alias := model.MerchantAlias{Alias: in.Alias, Canonical: in.Canonical}
	err := e.write(ctx, func(tx service.Transaction) error {
		return aliasConflict(tx.CreateAlias(ctx, &alias), in.Alias)
	})
	if err != nil {
		return nil, e.finish("create_alias", start, err, nil)
	}
	return &alias, e.finish("create_alias", start, nil, common.Fields{"alias_id": alias.ID})
}

// UpdateAlias replaces an alias and its canonical name.
func (e *Engine) UpdateAlias(ctx context.Context, id int64, in AliasInput) (*model.MerchantAlias, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		return nil, e.finish("update_alias", start, err, nil)
	}

	alias := model.MerchantAlias{ID: id, Alias: in.Alias, Canonical: in.Canonical}
	err := e.write(ctx, func(tx service.Transaction) error {
		err := aliasConflict(tx.UpdateAlias(ctx, &alias), in.Alias)
		return notFound(err, "alias %d not found", id)
	})
	if err != nil {
		return nil, e.finish("update_alias", start, err, nil)
	}
	return &alias, e.finish("update_alias", start, nil, common.Fields{"alias_id": id})
}

// DeleteAlias removes a merchant alias.
func (e *Engine) DeleteAlias(ctx context.Context, id int64) error {
	start := time.Now()
	err := e.write(ctx, func(tx service.Transaction) error {
		return notFound(tx.DeleteAlias(ctx, id), "alias %d not found", id)
	})
	return e.finish("delete_alias", start, err, common.Fields{"alias_id": id})
}

func aliasConflict(err error, alias string) error {
	if errors.Is(err, storage.ErrDuplicate) {
		return common.Conflictf("alias %q already exists", merchant.AliasKey(alias))
	}
	return err
}
