package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// StatementStore holds the indexed quads, split into a resource partition and
// a literal partition by object kind.
type StatementStore struct {
	*engine
	contexts *ContextManager
}

// Statement is a stored quad together with its statement id
type Statement struct {
	ID   uuid.UUID
	Quad *rdf.Quad
}

// validateQuad checks that every term is well formed and sits in a position
// RDF allows.
func validateQuad(quad *rdf.Quad) error {
	if quad == nil {
		return fmt.Errorf("%w: nil quad", ErrInvalidQuad)
	}
	for _, term := range []rdf.Term{quad.Subject, quad.Predicate, quad.Object, quad.Context} {
		if err := rdf.ValidateTerm(term); err != nil {
			return err
		}
	}
	if quad.Subject.Type() == rdf.TermTypeLiteral {
		return fmt.Errorf("%w: literal subject %s", ErrInvalidQuad, quad.Subject)
	}
	if quad.Predicate.Type() != rdf.TermTypeURI {
		return fmt.Errorf("%w: predicate %s is not a URI reference", ErrInvalidQuad, quad.Predicate)
	}
	return validateContext(quad.Context)
}

func validateContext(ctx rdf.Term) error {
	if err := rdf.ValidateTerm(ctx); err != nil {
		return err
	}
	if ctx.Type() == rdf.TermTypeLiteral {
		return fmt.Errorf("%w: literal context %s", ErrInvalidQuad, ctx)
	}
	return nil
}

// Add inserts a quad, creating its context when needed. Adding a quad that is
// already stored is a no-op and reports false.
func (s *StatementStore) Add(quad *rdf.Quad) (bool, error) {
	if err := validateQuad(quad); err != nil {
		return false, s.reject("add", err)
	}

	var added bool
	err := s.contexts.afterDrops(func() error {
		return s.update("add", func(txn Transaction) error {
			var err error
			added, err = s.insertQuadInTxn(txn, quad)
			return err
		})
	})
	if err != nil {
		return false, err
	}
	if added {
		s.observer.OnQuads("add", 1)
	}
	return added, nil
}

// AddBatch inserts quads in a single transaction. Either all quads are
// applied or none are. It returns how many quads were new.
func (s *StatementStore) AddBatch(quads []*rdf.Quad) (int, error) {
	for _, quad := range quads {
		if err := validateQuad(quad); err != nil {
			return 0, s.reject("add_batch", err)
		}
	}

	var added int
	err := s.contexts.afterDrops(func() error {
		return s.update("add_batch", func(txn Transaction) error {
			added = 0
			for _, quad := range quads {
				ok, err := s.insertQuadInTxn(txn, quad)
				if err != nil {
					return err
				}
				if ok {
					added++
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	s.observer.OnQuads("add", added)
	return added, nil
}

// insertQuadInTxn inserts a quad within an existing transaction
func (s *StatementStore) insertQuadInTxn(txn Transaction, quad *rdf.Quad) (bool, error) {
	var (
		terms      quadTerms
		serialized [4]string
	)
	for pos, term := range []rdf.Term{quad.Subject, quad.Predicate, quad.Object, quad.Context} {
		enc, str, err := s.encoder.EncodeTerm(term)
		if err != nil {
			return false, fmt.Errorf("failed to encode %s: %w", term, err)
		}
		terms[pos] = enc
		serialized[pos] = str
	}

	if err := checkLive(txn, terms[posContext]); err != nil {
		return false, err
	}

	part := partitionFor(quad.Object)
	primary := part.primary()
	primaryKey := s.encoder.EncodeQuadKey(primary.arrange(terms)...)

	// Uniqueness: the primary index holds one row per quad
	_, err := txn.Get(primary.table, primaryKey)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	for pos := range terms {
		if err := s.storeString(txn, terms[pos], serialized[pos]); err != nil {
			return false, err
		}
	}

	if _, err := s.contexts.ensureInTxn(txn, terms[posContext]); err != nil {
		return false, err
	}

	id := uuid.New()
	if err := txn.Set(primary.table, primaryKey, id[:]); err != nil {
		return false, err
	}

	// Empty value for the secondary index entries
	emptyValue := []byte{}
	for _, ix := range part.indexes[1:] {
		if err := txn.Set(ix.table, s.encoder.EncodeQuadKey(ix.arrange(terms)...), emptyValue); err != nil {
			return false, err
		}
	}

	if err := s.contexts.adjustCount(txn, terms[posContext], 1); err != nil {
		return false, err
	}

	return true, nil
}

// Remove deletes every quad matching the pattern and returns how many were
// removed. Matching nothing is not an error.
//
// The removal is a single transaction when the backend can hold it. Otherwise
// the matches are removed in chunks, each chunk atomic, and a concurrent
// reader may observe a partly applied removal.
func (s *StatementStore) Remove(pattern *Pattern) (int, error) {
	encoded, err := s.encodePattern(pattern)
	if err != nil {
		return 0, s.reject("remove", err)
	}
	parts := partitionsFor(pattern.components()[posObject])

	var removed int
	err = s.update("remove", func(txn Transaction) error {
		removed = 0
		for _, part := range parts {
			n, err := s.deleteMatchingInTxn(txn, part, encoded, 0)
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})
	if errors.Is(err, ErrTooLarge) {
		s.logger.Info("removal too large for one transaction, removing in chunks")
		removed, err = s.removeInChunks(parts, encoded)
		s.observer.OnQuads("remove", removed)
		return removed, err
	}
	if err != nil {
		return 0, err
	}
	s.observer.OnQuads("remove", removed)
	return removed, nil
}

// removeInChunks removes the matches of pattern a chunk per transaction,
// halving the chunk whenever the backend rejects it as too large.
func (s *StatementStore) removeInChunks(parts []*partition, pattern encodedPattern) (int, error) {
	chunk, total := purgeChunk, 0
	for {
		var n int
		err := s.update("remove_chunk", func(txn Transaction) error {
			n = 0
			for _, part := range parts {
				m, err := s.deleteMatchingInTxn(txn, part, pattern, chunk-n)
				if err != nil {
					return err
				}
				n += m
				if n >= chunk {
					break
				}
			}
			return nil
		})
		if errors.Is(err, ErrTooLarge) && chunk > 1 {
			chunk /= 2
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
		if n < chunk {
			return total, nil
		}
	}
}

// deleteMatchingInTxn removes up to limit matching quads of one partition,
// all of them when limit is 0, and keeps the per-context counts in step.
func (s *StatementStore) deleteMatchingInTxn(txn Transaction, part *partition, pattern encodedPattern, limit int) (int, error) {
	matches, err := collectMatches(txn, part, pattern, limit, false)
	if err != nil {
		return 0, err
	}
	if err := s.deleteRows(txn, part, matches); err != nil {
		return 0, err
	}

	perContext := make(map[EncodedTerm]int)
	for _, terms := range matches {
		perContext[terms[posContext]]++
	}
	for ctx, n := range perContext {
		if err := s.contexts.adjustCount(txn, ctx, -n); err != nil {
			return 0, err
		}
	}

	// Note: id2str entries are kept, they may be referenced by other quads

	return len(matches), nil
}

// collectMatches gathers up to limit matches before anything is deleted: a
// write transaction may only have one open iterator and must not be modified
// while it is being scanned. Purging includes rows of dropped contexts.
func collectMatches(txn Transaction, part *partition, pattern encodedPattern, limit int, purging bool) ([]quadTerms, error) {
	scanner, err := newQuadScanner(txn, part, pattern)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()
	scanner.purging = purging

	var matches []quadTerms
	for (limit <= 0 || len(matches) < limit) && scanner.Next() {
		matches = append(matches, scanner.Terms())
	}
	return matches, scanner.Err()
}

// deleteRows deletes the quads from every index of the partition
func (s *StatementStore) deleteRows(txn Transaction, part *partition, matches []quadTerms) error {
	for _, terms := range matches {
		for _, ix := range part.indexes {
			if err := txn.Delete(ix.table, s.encoder.EncodeQuadKey(ix.arrange(terms)...)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Contains checks if a quad exists in the store
func (s *StatementStore) Contains(quad *rdf.Quad) (bool, error) {
	if err := validateQuad(quad); err != nil {
		return false, s.reject("contains", err)
	}

	var found bool
	err := s.view("contains", func(txn Transaction) error {
		terms, err := s.encodeQuad(quad)
		if err != nil {
			return err
		}
		dropped, err := isDropped(txn, terms[posContext])
		if err != nil || dropped {
			found = false
			return err
		}
		primary := partitionFor(quad.Object).primary()
		_, err = txn.Get(primary.table, s.encoder.EncodeQuadKey(primary.arrange(terms)...))
		if errors.Is(err, ErrNotFound) {
			found = false
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

func (s *StatementStore) encodeQuad(quad *rdf.Quad) (quadTerms, error) {
	var terms quadTerms
	for pos, term := range []rdf.Term{quad.Subject, quad.Predicate, quad.Object, quad.Context} {
		enc, _, err := s.encode(term)
		if err != nil {
			return terms, err
		}
		terms[pos] = enc
	}
	return terms, nil
}
