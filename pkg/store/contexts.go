package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// ContextManager tracks which contexts exist and how many quads each holds.
// A context may exist without any quads.
type ContextManager struct {
	*engine
	statements *StatementStore
}

// purgeChunk is the number of quads a chunked removal deletes per
// transaction before it backs off on ErrTooLarge.
const purgeChunk = 1000

// Ensure creates the context if it does not exist yet and reports whether it
// was created.
func (c *ContextManager) Ensure(ctx rdf.Term) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, c.reject("ensure_context", err)
	}
	enc, str, err := c.encode(ctx)
	if err != nil {
		return false, c.reject("ensure_context", err)
	}

	var created bool
	err = c.afterDrops(func() error {
		return c.update("ensure_context", func(txn Transaction) error {
			if err := checkLive(txn, enc); err != nil {
				return err
			}
			if err := c.storeString(txn, enc, str); err != nil {
				return err
			}
			var err error
			created, err = c.ensureInTxn(txn, enc)
			return err
		})
	})
	if err != nil {
		return false, err
	}
	if created {
		c.logger.Debug("context created", zap.Stringer("context", ctx))
	}
	return created, nil
}

// Remove deletes the context and every quad scoped to it. It returns how many
// quads the context held and false when the context did not exist.
//
// The removal is a single transaction when the backend can hold it. A context
// too large for that is marked dropped and its rows are purged in chunks;
// readers stop seeing its quads as soon as the mark commits, and an
// interrupted purge resumes on the next Open.
func (c *ContextManager) Remove(ctx rdf.Term) (int, bool, error) {
	if err := validateContext(ctx); err != nil {
		return 0, false, c.reject("remove_context", err)
	}
	enc, _, err := c.encode(ctx)
	if err != nil {
		return 0, false, c.reject("remove_context", err)
	}

	var (
		existed bool
		removed int
	)
	err = c.update("remove_context", func(txn Transaction) error {
		existed, removed = false, 0
		_, err := txn.Get(TableContexts, enc[:])
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true

		for _, part := range []*partition{resourcePartition, literalPartition} {
			n, err := c.statements.deleteMatchingInTxn(txn, part, contextPattern(enc), 0)
			if err != nil {
				return err
			}
			removed += n
		}

		return txn.Delete(TableContexts, enc[:])
	})
	if errors.Is(err, ErrTooLarge) {
		c.logger.Info("context too large for one transaction, dropping in chunks",
			zap.Stringer("context", ctx))
		existed, removed, err = c.drop(enc)
	}
	if err != nil {
		return 0, false, err
	}
	if !existed {
		// A drop interrupted earlier may still hold rows of this context
		if _, err := c.purge(enc); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	c.observer.OnQuads("remove", removed)
	c.logger.Debug("context removed",
		zap.Stringer("context", ctx),
		zap.Int("quads", removed))
	return removed, true, nil
}

// drop unregisters the context and marks it dropped in one transaction, then
// purges its rows. It returns the quad count the context held.
func (c *ContextManager) drop(enc EncodedTerm) (bool, int, error) {
	var (
		existed bool
		count   uint64
	)
	err := c.update("drop_context", func(txn Transaction) error {
		existed = false
		var err error
		count, err = readCount(txn, enc)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		if err := txn.Set(TableDroppedContexts, enc[:], []byte{}); err != nil {
			return err
		}
		return txn.Delete(TableContexts, enc[:])
	})
	if err != nil || !existed {
		return existed, 0, err
	}
	removed := int(count) // #nosec G115 - bounded by the quads actually stored
	if _, err := c.purge(enc); err != nil {
		return true, removed, err
	}
	return true, removed, nil
}

// purge deletes the rows of a dropped context in chunks and clears the mark
// once none are left. Purging a context that is not marked is a no-op.
func (c *ContextManager) purge(enc EncodedTerm) (int, error) {
	chunk, total := purgeChunk, 0
	for {
		var (
			n    int
			done bool
		)
		err := c.update("purge_context", func(txn Transaction) error {
			n, done = 0, false
			dropped, err := isDropped(txn, enc)
			if err != nil {
				return err
			}
			if !dropped {
				done = true
				return nil
			}
			for _, part := range []*partition{resourcePartition, literalPartition} {
				matches, err := collectMatches(txn, part, contextPattern(enc), chunk-n, true)
				if err != nil {
					return err
				}
				if err := c.statements.deleteRows(txn, part, matches); err != nil {
					return err
				}
				n += len(matches)
				if n >= chunk {
					return nil
				}
			}
			done = true
			return txn.Delete(TableDroppedContexts, enc[:])
		})
		if errors.Is(err, ErrTooLarge) && chunk > 1 {
			chunk /= 2
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
		if done {
			return total, nil
		}
	}
}

// resumeDrops finishes purges that were interrupted before the store closed
func (c *ContextManager) resumeDrops() error {
	var pending []EncodedTerm
	err := c.view("resume_drops", func(txn Transaction) error {
		pending = pending[:0]
		it, err := txn.Scan(TableDroppedContexts, nil)
		if err != nil {
			return err
		}
		defer it.Close()

		for it.Next() {
			var enc EncodedTerm
			if len(it.Key()) != EncodedTermSize {
				return fmt.Errorf("invalid dropped context key length %d", len(it.Key()))
			}
			copy(enc[:], it.Key())
			pending = append(pending, enc)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, enc := range pending {
		n, err := c.purge(enc)
		if err != nil {
			return err
		}
		c.logger.Info("resumed context drop", zap.Int("quads", n))
	}
	return nil
}

// afterDrops runs write and, when write meets a context whose drop is still
// being purged, finishes that purge and runs write again.
func (c *ContextManager) afterDrops(write func() error) error {
	for attempt := 0; ; attempt++ {
		err := write()
		var dropped *droppedContextError
		if !errors.As(err, &dropped) || attempt >= c.maxRetries {
			return err
		}
		if _, err := c.purge(dropped.context); err != nil {
			return err
		}
	}
}

// droppedContextError is returned by a write into a context whose rows are
// still being purged.
type droppedContextError struct {
	context EncodedTerm
}

func (e *droppedContextError) Error() string {
	return fmt.Sprintf("context %x is still being dropped", e.context[:])
}

// checkLive fails with a droppedContextError when the context is marked
// dropped
func checkLive(txn Transaction, enc EncodedTerm) error {
	dropped, err := isDropped(txn, enc)
	if err != nil {
		return err
	}
	if dropped {
		return &droppedContextError{context: enc}
	}
	return nil
}

func isDropped(txn Transaction, enc EncodedTerm) (bool, error) {
	_, err := txn.Get(TableDroppedContexts, enc[:])
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func contextPattern(enc EncodedTerm) encodedPattern {
	pattern := encodedPattern{}
	pattern.bound[posContext] = true
	pattern.terms[posContext] = enc
	return pattern
}

// Exists reports whether the context is registered
func (c *ContextManager) Exists(ctx rdf.Term) (bool, error) {
	enc, _, err := c.encode(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = c.view("context_exists", func(txn Transaction) error {
		_, err := txn.Get(TableContexts, enc[:])
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		exists = err == nil
		return err
	})
	return exists, err
}

// TripleCount returns the number of quads scoped to the context, or 0 when
// the context does not exist. The count is maintained on every write.
func (c *ContextManager) TripleCount(ctx rdf.Term) (uint64, error) {
	enc, _, err := c.encode(ctx)
	if err != nil {
		return 0, err
	}

	var count uint64
	err = c.view("triple_count", func(txn Transaction) error {
		var err error
		count, err = readCount(txn, enc)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	return count, err
}

// Total sums the quad counts of all contexts, i.e. the number of distinct
// (triple, context) pairs in the store.
func (c *ContextManager) Total() (uint64, error) {
	var total uint64
	err := c.view("len", func(txn Transaction) error {
		total = 0
		it, err := txn.Scan(TableContexts, nil)
		if err != nil {
			return err
		}
		defer it.Close()

		for it.Next() {
			value, err := it.Value()
			if err != nil {
				return err
			}
			n, err := decodeCount(value)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	return total, err
}

// List yields every registered context from a single snapshot. Each range
// over the sequence reads a fresh snapshot.
func (c *ContextManager) List() iter.Seq2[rdf.Term, error] {
	return func(yield func(rdf.Term, error) bool) {
		if c.closed.Load() {
			yield(nil, ErrClosed)
			return
		}
		txn, err := c.storage.Begin(false)
		if err != nil {
			yield(nil, classify("list_contexts", err))
			return
		}
		defer txn.Rollback()

		it, err := txn.Scan(TableContexts, nil)
		if err != nil {
			yield(nil, classify("list_contexts", err))
			return
		}
		defer it.Close()

		for it.Next() {
			var enc EncodedTerm
			if len(it.Key()) != EncodedTermSize {
				yield(nil, classify("list_contexts", fmt.Errorf("invalid context key length %d", len(it.Key()))))
				return
			}
			copy(enc[:], it.Key())
			term, err := c.decodeTerm(txn, enc)
			if err != nil {
				yield(nil, classify("list_contexts", err))
				return
			}
			if !yield(term, nil) {
				return
			}
		}
	}
}

// ensureInTxn registers the context with a zero count if it is new
func (c *ContextManager) ensureInTxn(txn Transaction, enc EncodedTerm) (bool, error) {
	_, err := txn.Get(TableContexts, enc[:])
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return true, txn.Set(TableContexts, enc[:], encodeCount(0))
}

// adjustCount applies delta to the stored quad count of a context
func (c *ContextManager) adjustCount(txn Transaction, enc EncodedTerm, delta int) error {
	count, err := readCount(txn, enc)
	if err != nil {
		return err
	}
	switch {
	case delta >= 0:
		count += uint64(delta)
	case uint64(-delta) > count:
		return fmt.Errorf("context count underflow: %d - %d", count, -delta)
	default:
		count -= uint64(-delta)
	}
	return txn.Set(TableContexts, enc[:], encodeCount(count))
}

func readCount(txn Transaction, enc EncodedTerm) (uint64, error) {
	value, err := txn.Get(TableContexts, enc[:])
	if err != nil {
		return 0, err
	}
	return decodeCount(value)
}

func encodeCount(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func decodeCount(value []byte) (uint64, error) {
	if len(value) != 8 {
		return 0, fmt.Errorf("invalid context count of %d bytes", len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}
