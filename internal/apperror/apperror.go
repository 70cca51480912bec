// Package apperror defines the failure kinds surfaced by the order and
// inventory services. Handlers translate a Kind into an HTTP status; callers
// compare with errors.Is against the exported sentinels.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidRequest     Kind = "invalid_request"
	KindProductUnavailable Kind = "product_unavailable"
	KindInsufficientStock  Kind = "insufficient_stock"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindPersistence        Kind = "persistence_failure"
)

// Error is the concrete error returned by the service layer. ProductID and
// Quantity are set for stock and product failures so callers can report
// which line of an order was rejected.
type Error struct {
	Kind      Kind
	Message   string
	ProductID uint64
	Quantity  int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same kind, so
// errors.Is(err, ErrNotFound) works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest}
	ErrProductUnavailable = &Error{Kind: KindProductUnavailable}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrPersistence        = &Error{Kind: KindPersistence}
)

func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// ProductUnavailable reports a product reference that does not resolve to an
// active product. ref is the id or name the caller supplied.
func ProductUnavailable(ref string) *Error {
	return &Error{Kind: KindProductUnavailable, Message: fmt.Sprintf("product %s is not available", ref)}
}

// InsufficientStock names the product and the quantity that could not be reserved.
func InsufficientStock(productID uint64, requested int, available int64) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for product %d: available %d, requested %d", productID, available, requested),
		ProductID: productID,
		Quantity:  requested,
	}
}

// Persistence wraps a store failure. Errors that already carry a kind are
// returned unchanged so a rollback caused by a domain failure keeps its kind.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}

// KindOf returns the kind carried by err, or KindPersistence for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}
