package rdf

import (
	"fmt"
)

// TermType represents the type of an RDF term
type TermType byte

const (
	TermTypeURI TermType = iota + 1
	TermTypeBlankNode
	TermTypeLiteral
)

func (t TermType) String() string {
	switch t {
	case TermTypeURI:
		return "uri"
	case TermTypeBlankNode:
		return "bnode"
	case TermTypeLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term represents an RDF term (URI reference, blank node, or literal).
// Terms are immutable once constructed.
type Term interface {
	Type() TermType
	String() string
	Equals(other Term) bool
}

// URIRef represents a URI reference
type URIRef struct {
	IRI string
}

func NewURIRef(iri string) *URIRef {
	return &URIRef{IRI: iri}
}

func (u *URIRef) Type() TermType {
	return TermTypeURI
}

func (u *URIRef) String() string {
	return SerializeTerm(u)
}

func (u *URIRef) Equals(other Term) bool {
	if ou, ok := other.(*URIRef); ok && ou != nil {
		return u.IRI == ou.IRI
	}
	return false
}

// BlankNode represents a blank node
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

func (b *BlankNode) Type() TermType {
	return TermTypeBlankNode
}

func (b *BlankNode) String() string {
	return SerializeTerm(b)
}

func (b *BlankNode) Equals(other Term) bool {
	if ob, ok := other.(*BlankNode); ok && ob != nil {
		return b.ID == ob.ID
	}
	return false
}

// Literal represents an RDF literal. Language and Datatype are both optional;
// two literals are equal only when value, language and datatype all match.
type Literal struct {
	Value    string
	Language string
	Datatype *URIRef
}

func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

func NewLangLiteral(value, language string) *Literal {
	return &Literal{Value: value, Language: language}
}

func NewTypedLiteral(value string, datatype *URIRef) *Literal {
	return &Literal{Value: value, Datatype: datatype}
}

func (l *Literal) Type() TermType {
	return TermTypeLiteral
}

func (l *Literal) String() string {
	return SerializeTerm(l)
}

func (l *Literal) Equals(other Term) bool {
	ol, ok := other.(*Literal)
	if !ok || ol == nil {
		return false
	}
	if l.Value != ol.Value || l.Language != ol.Language {
		return false
	}
	if l.Datatype == nil || ol.Datatype == nil {
		return l.Datatype == nil && ol.Datatype == nil
	}
	return l.Datatype.Equals(ol.Datatype)
}

// Equal reports whether two terms are equal. Two nil terms are equal.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

// MatchesWildcard reports whether value matches pattern. A nil pattern
// matches anything.
func MatchesWildcard(pattern, value Term) bool {
	if pattern == nil {
		return true
	}
	return Equal(pattern, value)
}

// Triple represents an RDF triple (subject, predicate, object)
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) *Triple {
	return &Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// Equals reports whether both triples hold equal terms in every position.
func (t *Triple) Equals(other *Triple) bool {
	if other == nil {
		return false
	}
	return Equal(t.Subject, other.Subject) &&
		Equal(t.Predicate, other.Predicate) &&
		Equal(t.Object, other.Object)
}

// Quad represents a triple scoped to a context (named graph)
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Context   Term
}

func NewQuad(subject, predicate, object, context Term) *Quad {
	return &Quad{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Context:   context,
	}
}

// Triple returns the quad without its context.
func (q *Quad) Triple() *Triple {
	return NewTriple(q.Subject, q.Predicate, q.Object)
}

func (q *Quad) String() string {
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Context)
}
