package rdf

import (
	"testing"
)

// ===== URIRef Tests =====

func TestURIRef_Type(t *testing.T) {
	node := NewURIRef("http://example.org/resource")
	if node.Type() != TermTypeURI {
		t.Errorf("Expected TermTypeURI, got %v", node.Type())
	}
}

func TestURIRef_String(t *testing.T) {
	node := NewURIRef("http://example.org/resource")
	expected := "<http://example.org/resource>"
	if node.String() != expected {
		t.Errorf("Expected %s, got %s", expected, node.String())
	}
}

func TestURIRef_Equals(t *testing.T) {
	node1 := NewURIRef("http://example.org/resource")
	node2 := NewURIRef("http://example.org/resource")
	node3 := NewURIRef("http://example.org/different")

	if !node1.Equals(node2) {
		t.Error("Expected equal URIRefs to be equal")
	}

	if node1.Equals(node3) {
		t.Error("Expected different URIRefs to not be equal")
	}

	// Same lexical content, different kind
	if node1.Equals(NewLiteral("http://example.org/resource")) {
		t.Error("URIRef should not equal Literal")
	}
}

// ===== BlankNode Tests =====

func TestBlankNode_Type(t *testing.T) {
	node := NewBlankNode("b1")
	if node.Type() != TermTypeBlankNode {
		t.Errorf("Expected TermTypeBlankNode, got %v", node.Type())
	}
}

func TestBlankNode_String(t *testing.T) {
	node := NewBlankNode("b1")
	expected := "_:b1"
	if node.String() != expected {
		t.Errorf("Expected %s, got %s", expected, node.String())
	}
}

func TestBlankNode_Equals(t *testing.T) {
	node1 := NewBlankNode("b1")
	node2 := NewBlankNode("b1")
	node3 := NewBlankNode("b2")

	if !node1.Equals(node2) {
		t.Error("Expected equal BlankNodes to be equal")
	}

	if node1.Equals(node3) {
		t.Error("Expected different BlankNodes to not be equal")
	}

	if node1.Equals(NewURIRef("b1")) {
		t.Error("BlankNode should not equal URIRef")
	}
}

// ===== Literal Tests =====

func TestLiteral_Type(t *testing.T) {
	literal := NewLiteral("test")
	if literal.Type() != TermTypeLiteral {
		t.Errorf("Expected TermTypeLiteral, got %v", literal.Type())
	}
}

func TestLiteral_String(t *testing.T) {
	tests := []struct {
		name     string
		literal  *Literal
		expected string
	}{
		{
			name:     "plain literal",
			literal:  NewLiteral("hello"),
			expected: "\"hello\"",
		},
		{
			name:     "literal with language",
			literal:  NewLangLiteral("hello", "en"),
			expected: "\"hello\"@en",
		},
		{
			name:     "literal with datatype",
			literal:  NewTypedLiteral("42", XSDInteger),
			expected: "\"42\"^^<http://www.w3.org/2001/XMLSchema#integer>",
		},
		{
			name:     "quotes and newlines are escaped",
			literal:  NewLiteral("say \"hi\"\nbye"),
			expected: `"say \"hi\"\nbye"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.literal.String()
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestLiteral_Equals(t *testing.T) {
	lit1 := NewLiteral("hello")
	lit2 := NewLiteral("hello")
	lit3 := NewLiteral("world")

	if !lit1.Equals(lit2) {
		t.Error("Expected equal plain literals to be equal")
	}

	if lit1.Equals(lit3) {
		t.Error("Expected different plain literals to not be equal")
	}

	// Language-tagged literals
	litLang1 := NewLangLiteral("hello", "en")
	litLang2 := NewLangLiteral("hello", "en")
	litLang3 := NewLangLiteral("hello", "fr")

	if !litLang1.Equals(litLang2) {
		t.Error("Expected equal language-tagged literals to be equal")
	}

	if litLang1.Equals(litLang3) {
		t.Error("Expected literals with different languages to not be equal")
	}

	if litLang1.Equals(lit1) {
		t.Error("Language-tagged literal should not equal plain literal")
	}

	// Typed literals
	litType1 := NewTypedLiteral("42", XSDInteger)
	litType2 := NewTypedLiteral("42", XSDInteger)
	litType3 := NewTypedLiteral("42", XSDString)

	if !litType1.Equals(litType2) {
		t.Error("Expected equal typed literals to be equal")
	}

	if litType1.Equals(litType3) {
		t.Error("Expected literals with different datatypes to not be equal")
	}

	if litType1.Equals(NewLiteral("42")) {
		t.Error("Typed literal should not equal plain literal with the same value")
	}

	// Language and datatype must both match
	both := &Literal{Value: "hello", Language: "en", Datatype: RDFLangStr}
	if both.Equals(litLang1) {
		t.Error("Literal with language and datatype should not equal language-only literal")
	}
}

// ===== Wildcard Tests =====

func TestMatchesWildcard(t *testing.T) {
	value := NewURIRef("http://example.org/s")

	if !MatchesWildcard(nil, value) {
		t.Error("nil pattern should match anything")
	}
	if !MatchesWildcard(NewURIRef("http://example.org/s"), value) {
		t.Error("equal pattern should match")
	}
	if MatchesWildcard(NewURIRef("http://example.org/other"), value) {
		t.Error("different pattern should not match")
	}
	if MatchesWildcard(NewLiteral("http://example.org/s"), value) {
		t.Error("pattern of a different kind should not match")
	}
}

// ===== Triple Tests =====

func TestTriple_String(t *testing.T) {
	subject := NewURIRef("http://example.org/subject")
	predicate := NewURIRef("http://example.org/predicate")
	object := NewLiteral("value")

	triple := NewTriple(subject, predicate, object)
	expected := "<http://example.org/subject> <http://example.org/predicate> \"value\" ."

	if triple.String() != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, triple.String())
	}
}

func TestTriple_Equals(t *testing.T) {
	a := NewTriple(NewURIRef("http://example.org/s"), NewURIRef("http://example.org/p"), NewLiteral("o"))
	b := NewTriple(NewURIRef("http://example.org/s"), NewURIRef("http://example.org/p"), NewLiteral("o"))
	c := NewTriple(NewURIRef("http://example.org/s"), NewURIRef("http://example.org/p"), NewLangLiteral("o", "en"))

	if !a.Equals(b) {
		t.Error("Expected equal triples to be equal")
	}
	if a.Equals(c) {
		t.Error("Expected triples with different objects to differ")
	}
}

// ===== Quad Tests =====

func TestQuad_String(t *testing.T) {
	subject := NewURIRef("http://example.org/subject")
	predicate := NewURIRef("http://example.org/predicate")
	object := NewLiteral("value")
	context := NewURIRef("http://example.org/graph")

	quad := NewQuad(subject, predicate, object, context)
	expected := "<http://example.org/subject> <http://example.org/predicate> \"value\" <http://example.org/graph> ."

	if quad.String() != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, quad.String())
	}

	if !quad.Triple().Equals(NewTriple(subject, predicate, object)) {
		t.Error("Quad.Triple should drop only the context")
	}
}

// ===== XSD Datatype Constants Tests =====

func TestXSDConstants(t *testing.T) {
	constants := map[string]*URIRef{
		"XSDString":   XSDString,
		"XSDInteger":  XSDInteger,
		"XSDDecimal":  XSDDecimal,
		"XSDDouble":   XSDDouble,
		"XSDBoolean":  XSDBoolean,
		"XSDDateTime": XSDDateTime,
		"XSDDate":     XSDDate,
	}

	for name, constant := range constants {
		if constant == nil {
			t.Errorf("%s constant is nil", name)
			continue
		}
		if len(constant.IRI) < len(XSDNamespace) || constant.IRI[:len(XSDNamespace)] != XSDNamespace {
			t.Errorf("%s constant doesn't start with XSD namespace: %s", name, constant.IRI)
		}
	}
}

// ===== Edge Case Tests =====

func TestLiteral_EmptyString(t *testing.T) {
	lit := NewLiteral("")
	if lit.String() != "\"\"" {
		t.Errorf("Expected \"\", got %s", lit.String())
	}
}

func TestURIRef_EmptyIRI(t *testing.T) {
	node := NewURIRef("")
	if node.String() != "<>" {
		t.Errorf("Expected <>, got %s", node.String())
	}
}
