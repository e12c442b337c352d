package encoding

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

// EncodedTermSize is the width of an encoded term (type byte + 128-bit hash)
const EncodedTermSize = store.EncodedTermSize

// EncodedTerm is a term encoded as its type byte followed by the 128-bit
// xxhash3 of its serialized form
type EncodedTerm = store.EncodedTerm

// TermEncoder encodes RDF terms into fixed-width index keys
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// Hash128 computes a 128-bit xxhash3 hash of the input string
func (e *TermEncoder) Hash128(s string) [16]byte {
	hash := xxh3.HashString128(s)
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeTerm encodes an RDF term into a fixed-size byte array.
// Returns the encoded term and the serialized form to store in the id2str
// table. Every term is hashed over its full N-Triples form, so literals with
// the same value but a different language or datatype never collide.
func (e *TermEncoder) EncodeTerm(term rdf.Term) (EncodedTerm, string, error) {
	var encoded EncodedTerm
	if err := rdf.ValidateTerm(term); err != nil {
		return encoded, "", err
	}

	serialized := rdf.SerializeTerm(term)
	encoded[0] = byte(term.Type())
	hash := e.Hash128(serialized)
	copy(encoded[1:], hash[:])

	return encoded, serialized, nil
}

// EncodeQuadKey concatenates encoded terms into an index key.
// Returns a big-endian byte array for lexicographic sorting
func (e *TermEncoder) EncodeQuadKey(terms ...EncodedTerm) []byte {
	result := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, term := range terms {
		result = append(result, term[:]...)
	}
	return result
}

// GetTermType extracts the type from an encoded term
func GetTermType(encoded EncodedTerm) rdf.TermType {
	return rdf.TermType(encoded[0])
}
