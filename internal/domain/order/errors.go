package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrEmptyCart is returned when placing an order with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when no order matches the reference.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateOrderRef is returned by Repository.Create when the order
	// reference collides. PlaceOrder retries on it.
	ErrDuplicateOrderRef = errors.New("duplicate order reference")
	// ErrStatusConflict is returned when a concurrent update changed the
	// status first.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrInvalidPaymentMethod is returned for unsupported payment methods.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrInvalidStatus is returned for unknown status names.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidShipping is returned when shipping details are incomplete.
	ErrInvalidShipping = errors.New("invalid shipping details")
	// ErrCartChanged is returned when the cart was modified or checked out
	// by another request while an order was being placed from it.
	ErrCartChanged = errors.New("cart changed during checkout")
)

// ProductUnavailableError indicates a cart entry references a product that
// was deleted or is out of stock.
type ProductUnavailableError struct {
	ProductID string
	Reason    string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is unavailable: %s", e.ProductID, e.Reason)
}

// InvalidTransitionError indicates a status change outside the lattice.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// CancellationNotAllowedError indicates the order is past the cancellable
// stage.
type CancellationNotAllowedError struct {
	Status Status
}

func (e *CancellationNotAllowedError) Error() string {
	return fmt.Sprintf("order cannot be cancelled in status %s", e.Status)
}

// PersistenceError wraps a storage failure that aborted an operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
