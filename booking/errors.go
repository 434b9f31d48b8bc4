package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned by an OrderStore when an order with the same
	// idempotency key already exists.
	ErrDuplicateKey   = errors.New("order with this idempotency key already exists")
	ErrOrderNotFound  = errors.New("order not found")
	ErrStatusConflict = errors.New("order is not in the expected sync status")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid booking event: %s %s", e.Field, e.Reason)
}

// StoreError wraps a failure of the order store that is expected to clear on
// redelivery.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

type permanent interface {
	Permanent() bool
}

func isPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p) && p.Permanent()
}
