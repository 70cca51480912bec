// Package ledger holds the stock counter operations. Every operation runs
// inside the caller's transaction: the entry row is locked, checked and
// written before the transaction commits, so a reservation and the order
// line that consumes it succeed or fail together.
package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/store"
)

// Ledger mutates inventory entries. It holds no state besides its logger.
type Ledger struct {
	log *zap.Logger
}

// New returns a Ledger. A nil logger is replaced by a no-op logger.
func New(log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{log: log.Named("ledger")}
}

// Reserve takes quantity units of productID. It fails with InsufficientStock
// when the entry holds fewer units, leaving the entry untouched.
func (l *Ledger) Reserve(ctx context.Context, tx store.InventoryTx, productID uint64, quantity int) error {
	if quantity <= 0 {
		return apperror.InvalidRequest("quantity must be positive, got %d", quantity)
	}
	e, err := lock(ctx, tx, productID)
	if err != nil {
		return err
	}
	if e.Stock < int64(quantity) {
		l.log.Debug("reservation rejected",
			zap.Uint64("product_id", productID),
			zap.Int64("stock", e.Stock),
			zap.Int("requested", quantity))
		return apperror.InsufficientStock(productID, quantity, e.Stock)
	}
	e.Stock -= int64(quantity)
	if err := tx.SaveInventory(ctx, e); err != nil {
		return apperror.Persistence("save inventory", err)
	}
	return nil
}

// Release returns quantity units to productID. It is the compensating
// action of Reserve.
func (l *Ledger) Release(ctx context.Context, tx store.InventoryTx, productID uint64, quantity int) error {
	if quantity <= 0 {
		return apperror.InvalidRequest("quantity must be positive, got %d", quantity)
	}
	e, err := lock(ctx, tx, productID)
	if err != nil {
		return err
	}
	e.Stock += int64(quantity)
	if err := tx.SaveInventory(ctx, e); err != nil {
		return apperror.Persistence("save inventory", err)
	}
	return nil
}

// Restock adds amount units and records at as the last restock time.
// Repeated calls add again and overwrite the timestamp.
func (l *Ledger) Restock(ctx context.Context, tx store.InventoryTx, productID uint64, amount int64, at time.Time) (int64, error) {
	if amount <= 0 {
		return 0, apperror.InvalidRequest("restock amount must be positive, got %d", amount)
	}
	e, err := lock(ctx, tx, productID)
	if err != nil {
		return 0, err
	}
	at = at.UTC()
	e.Stock += amount
	e.LastRestockAt = &at
	if err := tx.SaveInventory(ctx, e); err != nil {
		return 0, apperror.Persistence("save inventory", err)
	}
	l.log.Info("restocked",
		zap.Uint64("product_id", productID),
		zap.Int64("amount", amount),
		zap.Int64("stock", e.Stock))
	return e.Stock, nil
}

// SetStock overwrites the stock count of productID. The last restock time
// is left unchanged.
func (l *Ledger) SetStock(ctx context.Context, tx store.InventoryTx, productID uint64, stock int64) error {
	if stock < 0 {
		return apperror.InvalidRequest("stock must not be negative, got %d", stock)
	}
	e, err := lock(ctx, tx, productID)
	if err != nil {
		return err
	}
	e.Stock = stock
	if err := tx.SaveInventory(ctx, e); err != nil {
		return apperror.Persistence("save inventory", err)
	}
	return nil
}

func lock(ctx context.Context, tx store.InventoryTx, productID uint64) (model.InventoryEntry, error) {
	e, err := tx.LockInventory(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.InventoryEntry{}, apperror.NotFound("inventory entry for product %d not found", productID)
		}
		return model.InventoryEntry{}, apperror.Persistence("lock inventory", err)
	}
	return e, nil
}
