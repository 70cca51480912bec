package repository

import (
    "context"

    "github.com/iliyamo/storefront-orders/internal/model"
)

const customerColumns = "id, name, email, phone"

// CreateCustomer inserts c and sets its ID. A duplicate email yields
// store.ErrConflict.
func (t *sqlTx) CreateCustomer(ctx context.Context, c *model.Customer) error {
    res, err := t.tx.ExecContext(ctx,
        "INSERT INTO customers (name, email, phone) VALUES (?,?,?)",
        c.Name, c.Email, c.Phone)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    c.ID = uint64(id)
    return nil
}

// GetCustomer fetches a customer by id.
func (t *sqlTx) GetCustomer(ctx context.Context, id uint64) (model.Customer, error) {
    var c model.Customer
    err := t.tx.QueryRowContext(ctx,
        "SELECT "+customerColumns+" FROM customers WHERE id=? LIMIT 1",
        id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
    return c, mapErr(err)
}

func (t *sqlTx) ListCustomers(ctx context.Context) ([]model.Customer, error) {
    rows, err := t.tx.QueryContext(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY id")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Customer{}
    for rows.Next() {
        var c model.Customer
        if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone); err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

func (t *sqlTx) UpdateCustomer(ctx context.Context, c model.Customer) error {
    return affectedOne(t.tx.ExecContext(ctx,
        "UPDATE customers SET name=?, email=?, phone=? WHERE id=?",
        c.Name, c.Email, c.Phone, c.ID))
}

// DeleteCustomer removes the customer; customer_accounts cascades. The
// orders foreign key is RESTRICT, so a customer with orders fails with
// store.ErrConflict.
func (t *sqlTx) DeleteCustomer(ctx context.Context, id uint64) error {
    return affectedOne(t.tx.ExecContext(ctx, "DELETE FROM customers WHERE id=?", id))
}
