package repository

import (
    "context"

    "github.com/iliyamo/storefront-orders/internal/model"
)

const productColumns = "id, name, price, is_active"

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanProduct(r rowScanner) (model.Product, error) {
    var p model.Product
    err := r.Scan(&p.ID, &p.Name, &p.Price, &p.IsActive)
    return p, err
}

// CreateProduct inserts the product and its inventory row (stock 0) and sets
// p.ID.
func (t *sqlTx) CreateProduct(ctx context.Context, p *model.Product) error {
    res, err := t.tx.ExecContext(ctx,
        "INSERT INTO products (name, price, is_active) VALUES (?,?,?)",
        p.Name, p.Price, p.IsActive)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    _, err = t.tx.ExecContext(ctx,
        "INSERT INTO inventory (product_id, stock) VALUES (?, 0)", p.ID)
    return mapErr(err)
}

func (t *sqlTx) GetProduct(ctx context.Context, id uint64) (model.Product, error) {
    p, err := scanProduct(t.tx.QueryRowContext(ctx,
        "SELECT "+productColumns+" FROM products WHERE id=? LIMIT 1", id))
    return p, mapErr(err)
}

// FindActiveProductByName returns the active product called name with the
// lowest id. Names are not unique.
func (t *sqlTx) FindActiveProductByName(ctx context.Context, name string) (model.Product, error) {
    p, err := scanProduct(t.tx.QueryRowContext(ctx,
        "SELECT "+productColumns+" FROM products WHERE name=? AND is_active=1 ORDER BY id LIMIT 1", name))
    return p, mapErr(err)
}

func (t *sqlTx) ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error) {
    q := "SELECT " + productColumns + " FROM products"
    if activeOnly {
        q += " WHERE is_active=1"
    }
    q += " ORDER BY id"
    rows, err := t.tx.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Product{}
    for rows.Next() {
        p, err := scanProduct(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}

func (t *sqlTx) UpdateProduct(ctx context.Context, p model.Product) error {
    return affectedOne(t.tx.ExecContext(ctx,
        "UPDATE products SET name=?, price=?, is_active=? WHERE id=?",
        p.Name, p.Price, p.IsActive, p.ID))
}
