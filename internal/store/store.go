// Package store declares the persistence contract used by the ledger,
// monitor and order services. A Store runs a function inside one
// transaction; everything the function does through the Tx commits or rolls
// back as a unit. Implementations: repository (MySQL) and memstore (go-memdb).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique or foreign key
// constraint (duplicate email, duplicate username, customer with orders).
var ErrConflict = errors.New("conflict")

// Store opens transactions. View runs fn read-only; Update runs fn in a
// read-write transaction and commits when fn returns nil. Any error from fn
// rolls the transaction back and is returned unchanged. A commit failure is
// returned wrapped.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx groups the per-aggregate operations available inside a transaction.
type Tx interface {
	CustomerTx
	ProductTx
	InventoryTx
	OrderTx
}

type CustomerTx interface {
	CreateCustomer(ctx context.Context, c *model.Customer) error
	GetCustomer(ctx context.Context, id uint64) (model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	UpdateCustomer(ctx context.Context, c model.Customer) error
	// DeleteCustomer removes the customer and its account.
	DeleteCustomer(ctx context.Context, id uint64) error

	CreateAccount(ctx context.Context, a model.Account) error
	GetAccount(ctx context.Context, customerID uint64) (model.Account, error)
	UpdateAccount(ctx context.Context, a model.Account) error
	DeleteAccount(ctx context.Context, customerID uint64) error
}

type ProductTx interface {
	// CreateProduct inserts the product and its inventory entry with zero stock.
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id uint64) (model.Product, error)
	// FindActiveProductByName returns the active product with the given name
	// and the lowest id.
	FindActiveProductByName(ctx context.Context, name string) (model.Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
}

type InventoryTx interface {
	// LockInventory returns the entry for productID and holds its row lock
	// until the transaction ends.
	LockInventory(ctx context.Context, productID uint64) (model.InventoryEntry, error)
	// SaveInventory overwrites stock and last_restock_at of an existing entry.
	SaveInventory(ctx context.Context, e model.InventoryEntry) error
	// LockLowStock returns, locked and ordered by product id, the entries of
	// active products with 0 < stock < threshold.
	LockLowStock(ctx context.Context, threshold int64) ([]model.CatalogEntry, error)
	ListCatalog(ctx context.Context, activeOnly bool) ([]model.CatalogEntry, error)
}

type OrderTx interface {
	// CreateOrder inserts the order header and its lines and sets o.ID and
	// the OrderID of every line.
	CreateOrder(ctx context.Context, o *model.Order) error
	// GetOrder returns the order with its lines ordered by position.
	GetOrder(ctx context.Context, id uint64) (model.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uint64) ([]model.Order, error)
	// ReplaceOrderLines deletes the existing lines of the order, inserts
	// lines and stores the new total.
	ReplaceOrderLines(ctx context.Context, orderID uint64, lines []model.OrderLine, total decimal.Decimal) error
	// DeleteOrder removes the order and its lines.
	DeleteOrder(ctx context.Context, id uint64) error
}

// Clock returns the current time. Services take a Clock so tests can pin it.
type Clock func() time.Time

// UTCNow is the production Clock.
func UTCNow() time.Time { return time.Now().UTC() }
