package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/storefront-orders/internal/model"
)

const catalogQuery = `SELECT i.product_id, i.stock, i.last_restock_at, p.name, p.is_active
               FROM inventory i
               JOIN products p ON p.id = i.product_id`

// LockInventory reads the inventory row of productID with FOR UPDATE. The
// row stays locked until the transaction ends.
func (t *sqlTx) LockInventory(ctx context.Context, productID uint64) (model.InventoryEntry, error) {
    var (
        e    model.InventoryEntry
        last sql.NullTime
    )
    err := t.tx.QueryRowContext(ctx,
        "SELECT product_id, stock, last_restock_at FROM inventory WHERE product_id=? FOR UPDATE",
        productID).Scan(&e.ProductID, &e.Stock, &last)
    if err != nil {
        return model.InventoryEntry{}, mapErr(err)
    }
    e.LastRestockAt = timePtr(last)
    return e, nil
}

// SaveInventory writes stock and last_restock_at back. The stock >= 0 CHECK
// constraint backs up the ledger's own check.
func (t *sqlTx) SaveInventory(ctx context.Context, e model.InventoryEntry) error {
    var last sql.NullTime
    if e.LastRestockAt != nil {
        last = sql.NullTime{Time: e.LastRestockAt.UTC(), Valid: true}
    }
    return affectedOne(t.tx.ExecContext(ctx,
        "UPDATE inventory SET stock=?, last_restock_at=? WHERE product_id=?",
        e.Stock, last, e.ProductID))
}

// LockLowStock locks and returns the inventory rows of active products with
// 0 < stock < threshold, ordered by product id.
func (t *sqlTx) LockLowStock(ctx context.Context, threshold int64) ([]model.CatalogEntry, error) {
    return t.catalog(ctx,
        catalogQuery+" WHERE p.is_active=1 AND i.stock > 0 AND i.stock < ? ORDER BY i.product_id FOR UPDATE",
        threshold)
}

func (t *sqlTx) ListCatalog(ctx context.Context, activeOnly bool) ([]model.CatalogEntry, error) {
    q := catalogQuery
    if activeOnly {
        q += " WHERE p.is_active=1"
    }
    return t.catalog(ctx, q+" ORDER BY i.product_id")
}

func (t *sqlTx) catalog(ctx context.Context, q string, args ...interface{}) ([]model.CatalogEntry, error) {
    rows, err := t.tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.CatalogEntry{}
    for rows.Next() {
        var (
            e    model.CatalogEntry
            last sql.NullTime
        )
        if err := rows.Scan(&e.ProductID, &e.Stock, &last, &e.ProductName, &e.IsActive); err != nil {
            return nil, err
        }
        e.LastRestockAt = timePtr(last)
        out = append(out, e)
    }
    return out, rows.Err()
}

func timePtr(nt sql.NullTime) *time.Time {
    if !nt.Valid {
        return nil
    }
    t := nt.Time.UTC()
    return &t
}
