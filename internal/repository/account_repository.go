package repository

import (
    "context"

    "github.com/iliyamo/storefront-orders/internal/model"
)

// CreateAccount inserts the account of a customer. A second account for the
// same customer or a taken username yields store.ErrConflict; a missing
// customer yields store.ErrNotFound through the foreign key.
func (t *sqlTx) CreateAccount(ctx context.Context, a model.Account) error {
    _, err := t.tx.ExecContext(ctx,
        "INSERT INTO customer_accounts (customer_id, username, password_hash) VALUES (?,?,?)",
        a.CustomerID, a.Username, a.PasswordHash)
    return mapErr(err)
}

func (t *sqlTx) GetAccount(ctx context.Context, customerID uint64) (model.Account, error) {
    var a model.Account
    err := t.tx.QueryRowContext(ctx,
        "SELECT customer_id, username, password_hash FROM customer_accounts WHERE customer_id=? LIMIT 1",
        customerID).Scan(&a.CustomerID, &a.Username, &a.PasswordHash)
    return a, mapErr(err)
}

func (t *sqlTx) UpdateAccount(ctx context.Context, a model.Account) error {
    return affectedOne(t.tx.ExecContext(ctx,
        "UPDATE customer_accounts SET username=?, password_hash=? WHERE customer_id=?",
        a.Username, a.PasswordHash, a.CustomerID))
}

func (t *sqlTx) DeleteAccount(ctx context.Context, customerID uint64) error {
    return affectedOne(t.tx.ExecContext(ctx, "DELETE FROM customer_accounts WHERE customer_id=?", customerID))
}
