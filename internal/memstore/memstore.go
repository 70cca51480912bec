// Package memstore implements store.Store on top of hashicorp/go-memdb. Write
// transactions are serialised by go-memdb, so every Update runs with
// exclusive access to the whole database; reads run on a consistent
// snapshot. It backs STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/iliyamo/storefront-orders/internal/store"
)

const (
	tableCustomers = "customers"
	tableAccounts  = "accounts"
	tableProducts  = "products"
	tableInventory = "inventory"
	tableOrders    = "orders"
	tableLines     = "order_lines"
	tableSequences = "sequences"
)

// sequence is an auto-increment counter stored inside the database so that
// ids handed out by a rolled back transaction are reused.
type sequence struct {
	Name string
	Last uint64
}

func schema() *memdb.DBSchema {
	uintID := func(field string) *memdb.IndexSchema {
		return &memdb.IndexSchema{Name: "id", Unique: true, Indexer: &memdb.UintFieldIndex{Field: field}}
	}
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableCustomers: {
				Name: tableCustomers,
				Indexes: map[string]*memdb.IndexSchema{
					"id":    uintID("ID"),
					"email": {Name: "email", Unique: true, AllowMissing: true, Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true}},
				},
			},
			tableAccounts: {
				Name: tableAccounts,
				Indexes: map[string]*memdb.IndexSchema{
					"id":       uintID("CustomerID"),
					"username": {Name: "username", Unique: true, AllowMissing: true, Indexer: &memdb.StringFieldIndex{Field: "Username"}},
				},
			},
			tableProducts: {
				Name: tableProducts,
				Indexes: map[string]*memdb.IndexSchema{
					"id":   uintID("ID"),
					"name": {Name: "name", AllowMissing: true, Indexer: &memdb.StringFieldIndex{Field: "Name"}},
				},
			},
			tableInventory: {
				Name: tableInventory,
				Indexes: map[string]*memdb.IndexSchema{
					"id": uintID("ProductID"),
				},
			},
			tableOrders: {
				Name: tableOrders,
				Indexes: map[string]*memdb.IndexSchema{
					"id":       uintID("ID"),
					"customer": {Name: "customer", Indexer: &memdb.UintFieldIndex{Field: "CustomerID"}},
				},
			},
			tableLines: {
				Name: tableLines,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.UintFieldIndex{Field: "OrderID"},
							&memdb.UintFieldIndex{Field: "ProductID"},
						}},
					},
					"order": {Name: "order", Indexer: &memdb.UintFieldIndex{Field: "OrderID"}},
				},
			},
			tableSequences: {
				Name: tableSequences,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Name"}},
				},
			},
		},
	}
}

// Store is an in-memory store.Store.
type Store struct {
	db *memdb.MemDB
}

// New returns an empty Store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("memstore: %w", err)
	}
	return &Store{db: db}, nil
}

// View runs fn on a read-only snapshot.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()
	return fn(&memTx{txn: txn})
}

// Update runs fn in the single write transaction and commits when fn
// returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := s.db.Txn(true)
	committed := false
	defer func() {
		if !committed {
			txn.Abort()
		}
	}()
	if err := fn(&memTx{txn: txn}); err != nil {
		return err
	}
	// a cancelled request must not commit half-observed work
	if err := ctx.Err(); err != nil {
		return err
	}
	txn.Commit()
	committed = true
	return nil
}

// memTx implements store.Tx over one go-memdb transaction. Stored objects are
// never mutated in place; every write inserts a fresh copy. UintFieldIndex
// keys are varint encoded, so index order is not numeric order and list
// operations sort explicitly.
type memTx struct {
	txn *memdb.Txn
}

var _ store.Tx = (*memTx)(nil)

func (t *memTx) nextID(name string) (uint64, error) {
	raw, err := t.txn.First(tableSequences, "id", name)
	if err != nil {
		return 0, err
	}
	next := uint64(1)
	if raw != nil {
		next = raw.(*sequence).Last + 1
	}
	if err := t.txn.Insert(tableSequences, &sequence{Name: name, Last: next}); err != nil {
		return 0, err
	}
	return next, nil
}

func (t *memTx) first(table, index string, args ...interface{}) (interface{}, error) {
	raw, err := t.txn.First(table, index, args...)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, store.ErrNotFound
	}
	return raw, nil
}

func (t *memTx) all(table, index string, args ...interface{}) ([]interface{}, error) {
	it, err := t.txn.Get(table, index, args...)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw)
	}
	return out, nil
}
