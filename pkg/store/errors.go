package store

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
	ErrConflict      = errors.New("transaction conflict")
	ErrClosed        = errors.New("store is closed")

	// ErrTooLarge is returned by a transaction that has grown past what the
	// backend can commit at once.
	ErrTooLarge = errors.New("transaction too large")

	// ErrInvalidQuad is returned when a term appears in a position RDF does not
	// allow, such as a literal subject or a blank node predicate.
	ErrInvalidQuad = errors.New("invalid quad")
)

// StorageError reports a failure of the underlying storage. The operation's
// transaction has been rolled back by the time the error reaches the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageFailure reports whether err came from the storage substrate.
func IsStorageFailure(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// classify wraps substrate errors in a StorageError and passes caller errors
// (invalid input, closed store) through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var dropped *droppedContextError
	if errors.Is(err, ErrInvalidQuad) || errors.Is(err, rdf.ErrMalformedTerm) ||
		errors.Is(err, ErrClosed) || IsStorageFailure(err) || errors.As(err, &dropped) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
