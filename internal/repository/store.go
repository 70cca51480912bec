// Package repository implements store.Store on MySQL. Every method runs on
// the *sql.Tx opened by View or Update; inventory rows are read with
// SELECT ... FOR UPDATE so concurrent orders serialise on the rows they
// touch. Times are stored as UTC DATETIME values (see database.Open).
package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/storefront-orders/internal/store"
)

// Store is the MySQL store.Store.
type Store struct {
    db *sql.DB
}

// NewStore returns a Store bound to db.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

var _ store.Store = (*Store)(nil)

// View runs fn in a transaction that is always rolled back. It is not READ
// ONLY: MySQL rejects the FOR UPDATE reads some views reuse.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("begin read tx: %w", err)
    }
    defer tx.Rollback()
    return fn(&sqlTx{tx: tx})
}

// Update runs fn in a read-write transaction and commits when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("begin tx: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&sqlTx{tx: tx}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit: %w", err)
    }
    committed = true
    return nil
}

// sqlTx implements store.Tx. Its methods are spread over the
// *_repository.go files, one per table group.
type sqlTx struct {
    tx *sql.Tx
}

var _ store.Tx = (*sqlTx)(nil)

// affectedOne maps an UPDATE/DELETE result that touched no row to
// store.ErrNotFound. database.Open sets clientFoundRows so an UPDATE that
// matches a row without changing it still counts.
func affectedOne(res sql.Result, err error) error {
    if err != nil {
        return mapErr(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return store.ErrNotFound
    }
    return nil
}
