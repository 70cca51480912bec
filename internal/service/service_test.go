package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/ledger"
	"github.com/iliyamo/storefront-orders/internal/memstore"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/store"
	"github.com/iliyamo/storefront-orders/internal/utils"
)

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	st, err := memstore.New()
	require.NoError(t, err)
	return st
}

func TestCustomerCreateNormalisesEmail(t *testing.T) {
	svc := NewCustomerService(newStore(t), nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, CustomerInput{Name: " Ada ", Email: " Ada@Example.COM ", Phone: "555"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, "ada@example.com", c.Email)

	_, err = svc.Create(ctx, CustomerInput{Name: "Other", Email: "ADA@example.com"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestCustomerValidation(t *testing.T) {
	svc := NewCustomerService(newStore(t), nil)
	cases := map[string]CustomerInput{
		"missing name":  {Email: "a@example.com"},
		"missing email": {Name: "Ada"},
		"bad email":     {Name: "Ada", Email: "not-an-email"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, apperror.ErrInvalidRequest)
		})
	}
}

func TestCustomerUpdateAndList(t *testing.T) {
	svc := NewCustomerService(newStore(t), nil)
	ctx := context.Background()
	a, err := svc.Create(ctx, CustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CustomerInput{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	phone := "777"
	got, err := svc.Update(ctx, a.ID, CustomerPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "777", got.Phone)
	assert.Equal(t, "ada@example.com", got.Email)

	taken := "BOB@example.com"
	_, err = svc.Update(ctx, a.ID, CustomerPatch{Email: &taken})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.Update(ctx, 999, CustomerPatch{Phone: &phone})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}

func TestCustomerDelete(t *testing.T) {
	st := newStore(t)
	svc := NewCustomerService(st, nil)
	accounts := NewAccountService(st, bcrypt.MinCost, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, CustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = accounts.Create(ctx, AccountInput{CustomerID: c.ID, Username: "ada.lovelace", Password: strings.Repeat("p", 16)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err = svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = accounts.Get(ctx, c.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID), apperror.ErrNotFound)
}

func TestCustomerWithOrdersCannotBeDeleted(t *testing.T) {
	st := newStore(t)
	svc := NewCustomerService(st, nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, CustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	err = st.Update(ctx, func(tx store.Tx) error {
		p := &model.Product{Name: "Pen", Price: decimal.RequireFromString("1.00"), IsActive: true}
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		return tx.CreateOrder(ctx, &model.Order{
			CustomerID:         c.ID,
			PlacedAt:           now,
			ExpectedDeliveryAt: now.Add(model.DeliveryWindow),
			TotalAmount:        p.Price,
			Lines:              []model.OrderLine{{ProductID: p.ID, ProductName: p.Name, UnitPrice: p.Price, Quantity: 1}},
		})
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID), apperror.ErrConflict)
	_, err = svc.Get(ctx, c.ID)
	assert.NoError(t, err)
}

func TestAccountLifecycle(t *testing.T) {
	st := newStore(t)
	customers := NewCustomerService(st, nil)
	svc := NewAccountService(st, bcrypt.MinCost, nil)
	ctx := context.Background()

	c, err := customers.Create(ctx, CustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	pw := "correct horse battery"
	a, err := svc.Create(ctx, AccountInput{CustomerID: c.ID, Username: "ada.lovelace", Password: pw})
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(a.PasswordHash, pw))
	assert.NotContains(t, a.PasswordHash, pw)

	_, err = svc.Create(ctx, AccountInput{CustomerID: c.ID, Username: "another.name", Password: pw})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	newPw := "staple battery horse"
	u, err := svc.Update(ctx, c.ID, AccountUpdate{Password: newPw})
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace", u.Username)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, newPw))
	assert.False(t, utils.VerifyPassword(u.PasswordHash, pw))

	name := "countess.ada"
	u, err = svc.Update(ctx, c.ID, AccountUpdate{Username: &name, Password: newPw})
	require.NoError(t, err)
	assert.Equal(t, "countess.ada", u.Username)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "countess.ada", got.Username)

	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.ErrorIs(t, svc.Delete(ctx, c.ID), apperror.ErrNotFound)
}

func TestAccountValidation(t *testing.T) {
	st := newStore(t)
	svc := NewAccountService(st, bcrypt.MinCost, nil)
	ctx := context.Background()
	c, err := NewCustomerService(st, nil).Create(ctx, CustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, AccountInput{CustomerID: c.ID, Username: "short", Password: strings.Repeat("x", 16)})
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)

	_, err = svc.Create(ctx, AccountInput{CustomerID: c.ID, Username: "ada.lovelace", Password: strings.Repeat("x", 15)})
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)

	_, err = svc.Create(ctx, AccountInput{CustomerID: c.ID, Username: "ada.lovelace", Password: strings.Repeat("x", 73)})
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)

	_, err = svc.Create(ctx, AccountInput{CustomerID: 999, Username: "ada.lovelace", Password: strings.Repeat("x", 16)})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Update(ctx, c.ID, AccountUpdate{Password: strings.Repeat("x", 16)})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestProductCreateDefaults(t *testing.T) {
	svc := NewProductService(newStore(t), nil, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Name: "Pen", Price: decimal.RequireFromString("1.499")})
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, "1.5", p.Price.String())

	entry, err := svc.CatalogEntry(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), entry.Stock)
	assert.Nil(t, entry.LastRestockAt)
	assert.Equal(t, "Pen", entry.ProductName)

	_, err = svc.Create(ctx, ProductInput{Name: " ", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)
	_, err = svc.Create(ctx, ProductInput{Name: "Ink", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)
}

func TestProductDeactivationZeroesStock(t *testing.T) {
	svc := NewProductService(newStore(t), ledger.New(nil), nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Name: "Pen", Price: decimal.NewFromInt(2)})
	require.NoError(t, err)
	keep, err := svc.Create(ctx, ProductInput{Name: "Ink", Price: decimal.NewFromInt(3)})
	require.NoError(t, err)

	_, err = svc.SetStock(ctx, p.ID, 12)
	require.NoError(t, err)
	_, err = svc.SetStock(ctx, keep.ID, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, p.ID))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	entry, err := svc.CatalogEntry(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), entry.Stock)

	_, err = svc.SetStock(ctx, p.ID, 5)
	assert.ErrorIs(t, err, apperror.ErrProductUnavailable)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)

	all, err := svc.Catalog(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	activeCatalog, err := svc.Catalog(ctx, true)
	require.NoError(t, err)
	require.Len(t, activeCatalog, 1)
	assert.Equal(t, int64(7), activeCatalog[0].Stock)

	assert.ErrorIs(t, svc.Deactivate(ctx, 999), apperror.ErrNotFound)
}

func TestProductUpdate(t *testing.T) {
	svc := NewProductService(newStore(t), nil, nil)
	ctx := context.Background()
	p, err := svc.Create(ctx, ProductInput{Name: "Pen", Price: decimal.NewFromInt(2)})
	require.NoError(t, err)
	_, err = svc.SetStock(ctx, p.ID, 4)
	require.NoError(t, err)

	price := decimal.RequireFromString("2.50")
	name := "Fountain pen"
	got, err := svc.Update(ctx, p.ID, ProductPatch{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Fountain pen", got.Name)
	assert.True(t, got.Price.Equal(price))

	entry, err := svc.CatalogEntry(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.Stock, "stock survives an update that keeps the product active")

	_, err = svc.SetStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)
}
