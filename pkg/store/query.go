package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// QuadIterator iterates over quads matching a pattern, one row per stored quad
type QuadIterator interface {
	Next() bool
	Quad() (*rdf.Quad, error)
	Statement() (*Statement, error)
	Err() error
	Close() error
}

// TripleResult is a triple together with every context it occurs in
type TripleResult struct {
	Triple   *rdf.Triple
	Contexts []rdf.Term
}

// TripleIterator iterates over distinct triples matching a pattern. A triple
// stored in several contexts is reported once with all of its contexts.
type TripleIterator interface {
	Next() bool
	Result() (*TripleResult, error)
	Err() error
	Close() error
}

// Match returns an iterator over the quads matching pattern. The iterator
// reads from one snapshot and must be closed.
func (s *StatementStore) Match(pattern *Pattern) (QuadIterator, error) {
	c, err := s.openCursor("match", pattern)
	if err != nil {
		return nil, err
	}
	return &quadIterator{cursor: c}, nil
}

// Query returns an iterator over the distinct triples matching pattern. The
// iterator reads from one snapshot and must be closed.
func (s *StatementStore) Query(pattern *Pattern) (TripleIterator, error) {
	c, err := s.openCursor("query", pattern)
	if err != nil {
		return nil, err
	}
	return &tripleIterator{cursor: c}, nil
}

// cursor walks the partitions a pattern can match, one scanner at a time,
// inside a single read transaction.
type cursor struct {
	store   *StatementStore
	op      string
	txn     Transaction
	pattern encodedPattern
	parts   []*partition
	part    int
	scanner *quadScanner
	err     error
	closed  bool
}

func (s *StatementStore) openCursor(op string, pattern *Pattern) (*cursor, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	encoded, err := s.encodePattern(pattern)
	if err != nil {
		return nil, err
	}
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, classify(op, err)
	}
	return &cursor{
		store:   s,
		op:      op,
		txn:     txn,
		pattern: encoded,
		parts:   partitionsFor(pattern.components()[posObject]),
	}, nil
}

// next returns the encoded components of the next matching quad
func (c *cursor) next() (quadTerms, *partition, bool) {
	for !c.closed && c.err == nil && c.part < len(c.parts) {
		if c.scanner == nil {
			scanner, err := newQuadScanner(c.txn, c.parts[c.part], c.pattern)
			if err != nil {
				c.err = classify(c.op, err)
				return quadTerms{}, nil, false
			}
			c.scanner = scanner
		}
		if c.scanner.Next() {
			return c.scanner.Terms(), c.parts[c.part], true
		}
		if err := c.scanner.Err(); err != nil {
			c.err = classify(c.op, err)
			return quadTerms{}, nil, false
		}
		_ = c.scanner.Close() // #nosec G104 - exhausted scanner
		c.scanner = nil
		c.part++
	}
	return quadTerms{}, nil, false
}

func (c *cursor) decode(enc EncodedTerm) (rdf.Term, error) {
	term, err := c.store.decodeTerm(c.txn, enc)
	if err != nil {
		return nil, classify(c.op, err)
	}
	return term, nil
}

func (c *cursor) decodeTriple(terms quadTerms) (*rdf.Triple, error) {
	var decoded [3]rdf.Term
	for pos := posSubject; pos <= posObject; pos++ {
		term, err := c.decode(terms[pos])
		if err != nil {
			return nil, err
		}
		decoded[pos] = term
	}
	return rdf.NewTriple(decoded[posSubject], decoded[posPredicate], decoded[posObject]), nil
}

func (c *cursor) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.scanner != nil {
		_ = c.scanner.Close() // #nosec G104 - iterator close error less critical than transaction rollback error
		c.scanner = nil
	}
	return c.txn.Rollback()
}

// quadIterator implements QuadIterator
type quadIterator struct {
	*cursor
	current quadTerms
	source  *partition
}

func (qi *quadIterator) Next() bool {
	terms, part, ok := qi.next()
	if ok {
		qi.current, qi.source = terms, part
	}
	return ok
}

func (qi *quadIterator) Quad() (*rdf.Quad, error) {
	if qi.closed {
		return nil, fmt.Errorf("iterator closed")
	}
	if qi.source == nil {
		return nil, fmt.Errorf("no current quad")
	}
	triple, err := qi.decodeTriple(qi.current)
	if err != nil {
		return nil, err
	}
	ctx, err := qi.decode(qi.current[posContext])
	if err != nil {
		return nil, err
	}
	return rdf.NewQuad(triple.Subject, triple.Predicate, triple.Object, ctx), nil
}

// Statement returns the current quad with its statement id, read from the
// primary index.
func (qi *quadIterator) Statement() (*Statement, error) {
	quad, err := qi.Quad()
	if err != nil {
		return nil, err
	}
	primary := qi.source.primary()
	value, err := qi.txn.Get(primary.table, qi.store.encoder.EncodeQuadKey(primary.arrange(qi.current)...))
	if err != nil {
		return nil, classify(qi.op, fmt.Errorf("failed to load statement id: %w", err))
	}
	id, err := uuid.FromBytes(value)
	if err != nil {
		return nil, classify(qi.op, fmt.Errorf("invalid statement id: %w", err))
	}
	return &Statement{ID: id, Quad: quad}, nil
}

func (qi *quadIterator) Err() error {
	return qi.err
}

func (qi *quadIterator) Close() error {
	return qi.close()
}

// tripleIterator implements TripleIterator. With a wildcard context the
// selected index keeps the context last, so every context of a triple is
// found in adjacent keys.
type tripleIterator struct {
	*cursor
	triple   quadTerms
	contexts []EncodedTerm
	pending  quadTerms
	hasNext  bool
	valid    bool
}

func (ti *tripleIterator) Next() bool {
	first, ok := ti.pending, ti.hasNext
	if !ok {
		first, _, ok = ti.next()
	}
	ti.hasNext = false
	if !ok {
		ti.valid = false
		return false
	}

	ti.triple = first
	ti.contexts = append(ti.contexts[:0], first[posContext])
	for {
		terms, _, ok := ti.next()
		if !ok {
			break
		}
		if !terms.sameTriple(first) {
			ti.pending, ti.hasNext = terms, true
			break
		}
		ti.contexts = append(ti.contexts, terms[posContext])
	}
	ti.valid = true
	return true
}

func (ti *tripleIterator) Result() (*TripleResult, error) {
	if ti.closed {
		return nil, fmt.Errorf("iterator closed")
	}
	if !ti.valid {
		return nil, fmt.Errorf("no current triple")
	}
	triple, err := ti.decodeTriple(ti.triple)
	if err != nil {
		return nil, err
	}
	contexts := make([]rdf.Term, 0, len(ti.contexts))
	for _, enc := range ti.contexts {
		ctx, err := ti.decode(enc)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, ctx)
	}
	return &TripleResult{Triple: triple, Contexts: contexts}, nil
}

func (ti *tripleIterator) Err() error {
	return ti.err
}

func (ti *tripleIterator) Close() error {
	return ti.close()
}
