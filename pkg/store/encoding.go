package store

import (
	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// EncodedTermSize is the width of an encoded term: a type byte followed by a
// 128-bit hash of the serialized term.
const EncodedTermSize = 17

// EncodedTerm represents a term encoded as a type byte followed by 16 bytes of hash.
// Every index key is a concatenation of four encoded terms.
type EncodedTerm [EncodedTermSize]byte

// Type returns the term type recorded in the first byte
func (e EncodedTerm) Type() rdf.TermType {
	return rdf.TermType(e[0])
}

// TermEncoder handles encoding of RDF terms into a compact binary format
type TermEncoder interface {
	// EncodeTerm encodes an RDF term into a fixed-size byte array.
	// Returns the encoded term and the serialized form to store in the id2str table.
	EncodeTerm(term rdf.Term) (EncodedTerm, string, error)

	// EncodeQuadKey encodes a quad key for one of the indexes
	// Returns a big-endian byte array for lexicographic sorting
	EncodeQuadKey(terms ...EncodedTerm) []byte
}

// TermDecoder handles decoding of RDF terms from binary format
type TermDecoder interface {
	// DecodeTerm decodes an encoded term back to an rdf.Term using the
	// serialized form read from the id2str table
	DecodeTerm(encoded EncodedTerm, serialized string) (rdf.Term, error)

	// Cached returns a previously decoded term, if any
	Cached(encoded EncodedTerm) (rdf.Term, bool)

	// Close releases decoder resources
	Close()
}
