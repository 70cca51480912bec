package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/store"
)

func (t *memTx) CreateCustomer(_ context.Context, c *model.Customer) error {
	if err := t.emailFree(c.Email, 0); err != nil {
		return err
	}
	id, err := t.nextID(tableCustomers)
	if err != nil {
		return err
	}
	c.ID = id
	cp := *c
	return t.txn.Insert(tableCustomers, &cp)
}

func (t *memTx) emailFree(email string, self uint64) error {
	raw, err := t.txn.First(tableCustomers, "email", strings.ToLower(email))
	if err != nil {
		return err
	}
	if raw != nil && raw.(*model.Customer).ID != self {
		return store.ErrConflict
	}
	return nil
}

func (t *memTx) GetCustomer(_ context.Context, id uint64) (model.Customer, error) {
	raw, err := t.first(tableCustomers, "id", id)
	if err != nil {
		return model.Customer{}, err
	}
	return *raw.(*model.Customer), nil
}

func (t *memTx) ListCustomers(_ context.Context) ([]model.Customer, error) {
	rows, err := t.all(tableCustomers, "id")
	if err != nil {
		return nil, err
	}
	out := make([]model.Customer, 0, len(rows))
	for _, raw := range rows {
		out = append(out, *raw.(*model.Customer))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) UpdateCustomer(ctx context.Context, c model.Customer) error {
	if _, err := t.GetCustomer(ctx, c.ID); err != nil {
		return err
	}
	if err := t.emailFree(c.Email, c.ID); err != nil {
		return err
	}
	return t.txn.Insert(tableCustomers, &c)
}

func (t *memTx) DeleteCustomer(ctx context.Context, id uint64) error {
	c, err := t.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	orders, err := t.txn.First(tableOrders, "customer", id)
	if err != nil {
		return err
	}
	if orders != nil {
		return store.ErrConflict
	}
	if _, err := t.txn.DeleteAll(tableAccounts, "id", id); err != nil {
		return err
	}
	return t.txn.Delete(tableCustomers, &c)
}

func (t *memTx) CreateAccount(ctx context.Context, a model.Account) error {
	if _, err := t.GetCustomer(ctx, a.CustomerID); err != nil {
		return err
	}
	existing, err := t.txn.First(tableAccounts, "id", a.CustomerID)
	if err != nil {
		return err
	}
	if existing != nil {
		return store.ErrConflict
	}
	if err := t.usernameFree(a.Username, 0); err != nil {
		return err
	}
	return t.txn.Insert(tableAccounts, &a)
}

func (t *memTx) usernameFree(username string, self uint64) error {
	raw, err := t.txn.First(tableAccounts, "username", username)
	if err != nil {
		return err
	}
	if raw != nil && raw.(*model.Account).CustomerID != self {
		return store.ErrConflict
	}
	return nil
}

func (t *memTx) GetAccount(_ context.Context, customerID uint64) (model.Account, error) {
	raw, err := t.first(tableAccounts, "id", customerID)
	if err != nil {
		return model.Account{}, err
	}
	return *raw.(*model.Account), nil
}

func (t *memTx) UpdateAccount(ctx context.Context, a model.Account) error {
	if _, err := t.GetAccount(ctx, a.CustomerID); err != nil {
		return err
	}
	if err := t.usernameFree(a.Username, a.CustomerID); err != nil {
		return err
	}
	return t.txn.Insert(tableAccounts, &a)
}

func (t *memTx) DeleteAccount(ctx context.Context, customerID uint64) error {
	a, err := t.GetAccount(ctx, customerID)
	if err != nil {
		return err
	}
	return t.txn.Delete(tableAccounts, &a)
}
