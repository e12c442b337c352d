package encoding

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// TermDecoder decodes RDF terms from their id2str form. Decoded terms are
// kept in a bounded cache keyed by encoded term; terms are immutable, so a
// cached entry never goes stale.
type TermDecoder struct {
	encoder *TermEncoder
	cache   *ristretto.Cache[string, rdf.Term]
}

// NewTermDecoder creates a term decoder caching up to maxTerms decoded terms.
// A maxTerms of zero disables the cache.
func NewTermDecoder(maxTerms int64) (*TermDecoder, error) {
	d := &TermDecoder{encoder: NewTermEncoder()}
	if maxTerms <= 0 {
		return d, nil
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, rdf.Term]{
		NumCounters:        maxTerms * 10,
		MaxCost:            maxTerms,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create term cache: %w", err)
	}
	d.cache = cache
	return d, nil
}

// DecodeTerm parses the serialized form of an encoded term and checks that it
// really belongs to the key it was stored under.
func (d *TermDecoder) DecodeTerm(encoded EncodedTerm, serialized string) (rdf.Term, error) {
	termType := GetTermType(encoded)

	term, err := rdf.ParseTerm(serialized)
	if err != nil {
		return nil, fmt.Errorf("corrupt %s term: %w", termType, err)
	}
	if term.Type() != termType {
		return nil, fmt.Errorf("stored %s term has type %s", termType, term.Type())
	}
	hash := d.encoder.Hash128(serialized)
	if [16]byte(encoded[1:]) != hash {
		return nil, fmt.Errorf("stored term %s does not match its key", serialized)
	}

	if d.cache != nil {
		d.cache.Set(string(encoded[:]), term, 1)
	}
	return term, nil
}

// Cached returns a previously decoded term
func (d *TermDecoder) Cached(encoded EncodedTerm) (rdf.Term, bool) {
	if d.cache == nil {
		return nil, false
	}
	return d.cache.Get(string(encoded[:]))
}

// Wait blocks until pending cache writes are applied
func (d *TermDecoder) Wait() {
	if d.cache != nil {
		d.cache.Wait()
	}
}

// Close stops the cache goroutines
func (d *TermDecoder) Close() {
	if d.cache != nil {
		d.cache.Close()
	}
}
