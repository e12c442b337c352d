package store

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// engine is the state shared by the store components: the storage handle,
// the term codec and the ambient logger/observer.
type engine struct {
	storage    Storage
	encoder    TermEncoder
	decoder    TermDecoder
	logger     *zap.Logger
	observer   Observer
	maxRetries int
	closed     atomic.Bool
}

// update runs fn in a write transaction. fn may run more than once when the
// commit conflicts with a concurrent writer, so it must only assign results.
func (e *engine) update(op string, fn func(txn Transaction) error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	start := time.Now()

	var err error
	for attempt := 0; ; attempt++ {
		err = e.runUpdate(fn)
		if !errors.Is(err, ErrConflict) || attempt >= e.maxRetries {
			break
		}
		e.observer.OnConflict(op)
		e.logger.Debug("write conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1))
	}

	err = classify(op, err)
	e.observer.OnOperation(op, time.Since(start), err)
	switch {
	case errors.Is(err, ErrTooLarge):
		e.logger.Debug("transaction too large", zap.String("op", op))
	case IsStorageFailure(err):
		e.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	}
	return err
}

// reject reports an operation refused before it reached storage
func (e *engine) reject(op string, err error) error {
	e.observer.OnOperation(op, 0, err)
	return err
}

func (e *engine) runUpdate(fn func(txn Transaction) error) error {
	txn, err := e.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := fn(txn); err != nil {
		return err
	}

	return txn.Commit()
}

// view runs fn in a read-only snapshot transaction.
func (e *engine) view(op string, fn func(txn Transaction) error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	start := time.Now()

	err := func() error {
		txn, err := e.storage.Begin(false)
		if err != nil {
			return err
		}
		defer txn.Rollback()
		return fn(txn)
	}()

	err = classify(op, err)
	e.observer.OnOperation(op, time.Since(start), err)
	return err
}

// encode encodes a term without touching storage
func (e *engine) encode(term rdf.Term) (EncodedTerm, string, error) {
	if err := rdf.ValidateTerm(term); err != nil {
		return EncodedTerm{}, "", err
	}
	return e.encoder.EncodeTerm(term)
}

// storeString stores the serialized form of an encoded term in the id2str table
func (e *engine) storeString(txn Transaction, encoded EncodedTerm, serialized string) error {
	value := []byte(serialized)

	// Check if already exists to avoid unnecessary writes
	existing, err := txn.Get(TableID2Str, encoded[:])
	if err == nil {
		if !bytes.Equal(existing, value) {
			return fmt.Errorf("hash collision between %q and %q", existing, serialized)
		}
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	return txn.Set(TableID2Str, encoded[:], value)
}

// decodeTerm decodes an encoded term back to an rdf.Term
func (e *engine) decodeTerm(txn Transaction, encoded EncodedTerm) (rdf.Term, error) {
	if term, ok := e.decoder.Cached(encoded); ok {
		return term, nil
	}

	str, err := txn.Get(TableID2Str, encoded[:])
	if err != nil {
		return nil, fmt.Errorf("failed to load %s term: %w", encoded.Type(), err)
	}

	return e.decoder.DecodeTerm(encoded, string(str))
}
