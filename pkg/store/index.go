package store

import (
	"fmt"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// position identifies a quad component
type position int

const (
	posSubject position = iota
	posPredicate
	posObject
	posContext
)

// quadTerms holds the encoded components of a quad in S, P, O, C order
type quadTerms [4]EncodedTerm

func (q quadTerms) sameTriple(other quadTerms) bool {
	return q[posSubject] == other[posSubject] &&
		q[posPredicate] == other[posPredicate] &&
		q[posObject] == other[posObject]
}

// index is one key permutation of a partition
type index struct {
	table Table
	order [4]position
}

// arrange returns the quad components in this index's key order
func (ix index) arrange(terms quadTerms) []EncodedTerm {
	out := make([]EncodedTerm, len(ix.order))
	for i, pos := range ix.order {
		out[i] = terms[pos]
	}
	return out
}

// split maps a key of this index back to S, P, O, C order
func (ix index) split(key []byte) (quadTerms, error) {
	var terms quadTerms
	if len(key) != len(ix.order)*EncodedTermSize {
		return terms, fmt.Errorf("invalid key length %d in %s", len(key), ix.table)
	}
	for i, pos := range ix.order {
		offset := i * EncodedTermSize
		copy(terms[pos][:], key[offset:offset+EncodedTermSize])
	}
	return terms, nil
}

// leadingBound counts how many leading key positions are bound
func (ix index) leadingBound(bound [4]bool) int {
	n := 0
	for _, pos := range ix.order {
		if !bound[pos] {
			break
		}
		n++
	}
	return n
}

// partition is a set of six permutation indexes over quads of one object kind.
// The first index is the primary one and stores the statement id.
type partition struct {
	name    string
	indexes [6]index
}

func (p *partition) primary() index {
	return p.indexes[0]
}

// selectIndex chooses the index with the longest bound key prefix. The
// context-last indexes come first so that a wildcard context always keeps
// identical triples adjacent in key order.
func (p *partition) selectIndex(bound [4]bool) index {
	best := p.indexes[0]
	bestLen := best.leadingBound(bound)
	for _, ix := range p.indexes[1:] {
		if n := ix.leadingBound(bound); n > bestLen {
			best, bestLen = ix, n
		}
	}
	return best
}

func newPartition(name string, spoc, posc, ospc, cspo, cpos, cosp Table) *partition {
	s, p, o, c := posSubject, posPredicate, posObject, posContext
	return &partition{
		name: name,
		indexes: [6]index{
			{spoc, [4]position{s, p, o, c}},
			{posc, [4]position{p, o, s, c}},
			{ospc, [4]position{o, s, p, c}},
			{cspo, [4]position{c, s, p, o}},
			{cpos, [4]position{c, p, o, s}},
			{cosp, [4]position{c, o, s, p}},
		},
	}
}

var (
	resourcePartition = newPartition("resource",
		TableResSPOC, TableResPOSC, TableResOSPC, TableResCSPO, TableResCPOS, TableResCOSP)
	literalPartition = newPartition("literal",
		TableLitSPOC, TableLitPOSC, TableLitOSPC, TableLitCSPO, TableLitCPOS, TableLitCOSP)
)

// partitionFor routes a concrete object to its partition
func partitionFor(object rdf.Term) *partition {
	if object.Type() == rdf.TermTypeLiteral {
		return literalPartition
	}
	return resourcePartition
}

// partitionsFor lists the partitions an object pattern can match
func partitionsFor(object rdf.Term) []*partition {
	if object == nil {
		return []*partition{resourcePartition, literalPartition}
	}
	return []*partition{partitionFor(object)}
}

// Pattern is a quad pattern; nil components are wildcards.
type Pattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
	Context   rdf.Term
}

func (p *Pattern) components() [4]rdf.Term {
	if p == nil {
		return [4]rdf.Term{}
	}
	return [4]rdf.Term{p.Subject, p.Predicate, p.Object, p.Context}
}

// encodedPattern is a Pattern with its bound components encoded
type encodedPattern struct {
	bound [4]bool
	terms quadTerms
}

func (e *engine) encodePattern(p *Pattern) (encodedPattern, error) {
	var ep encodedPattern
	for pos, term := range p.components() {
		if term == nil {
			continue
		}
		enc, _, err := e.encode(term)
		if err != nil {
			return ep, err
		}
		ep.bound[pos] = true
		ep.terms[pos] = enc
	}
	return ep, nil
}

func (ep encodedPattern) matches(terms quadTerms) bool {
	for pos := range ep.bound {
		if ep.bound[pos] && ep.terms[pos] != terms[pos] {
			return false
		}
	}
	return true
}

// prefix builds the scan prefix from the leading bound components of ix
func (ep encodedPattern) prefix(ix index) []byte {
	var prefix []byte
	for _, pos := range ix.order {
		if !ep.bound[pos] {
			// Stop at first wildcard
			break
		}
		prefix = append(prefix, ep.terms[pos][:]...)
	}
	return prefix
}

// quadScanner walks one partition index and yields quads matching a pattern.
// Quads of a dropped context are skipped unless the scanner purges them.
type quadScanner struct {
	txn     Transaction
	it      Iterator
	ix      index
	pattern encodedPattern
	purging bool
	dropped map[EncodedTerm]bool
	current quadTerms
	err     error
}

func newQuadScanner(txn Transaction, part *partition, pattern encodedPattern) (*quadScanner, error) {
	ix := part.selectIndex(pattern.bound)
	it, err := txn.Scan(ix.table, pattern.prefix(ix))
	if err != nil {
		return nil, err
	}
	return &quadScanner{
		txn:     txn,
		it:      it,
		ix:      ix,
		pattern: pattern,
		dropped: make(map[EncodedTerm]bool),
	}, nil
}

func (qs *quadScanner) Next() bool {
	if qs.err != nil {
		return false
	}
	for qs.it.Next() {
		terms, err := qs.ix.split(qs.it.Key())
		if err != nil {
			qs.err = err
			return false
		}
		// Bound components past the scanned prefix are checked here
		if !qs.pattern.matches(terms) {
			continue
		}
		if !qs.purging {
			dropped, err := qs.isDropped(terms[posContext])
			if err != nil {
				qs.err = err
				return false
			}
			if dropped {
				continue
			}
		}
		qs.current = terms
		return true
	}
	return false
}

func (qs *quadScanner) isDropped(ctx EncodedTerm) (bool, error) {
	if dropped, ok := qs.dropped[ctx]; ok {
		return dropped, nil
	}
	dropped, err := isDropped(qs.txn, ctx)
	if err != nil {
		return false, err
	}
	qs.dropped[ctx] = dropped
	return dropped, nil
}

func (qs *quadScanner) Terms() quadTerms {
	return qs.current
}

func (qs *quadScanner) Err() error {
	return qs.err
}

func (qs *quadScanner) Close() error {
	return qs.it.Close()
}
