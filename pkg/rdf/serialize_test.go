package rdf

import (
	"errors"
	"testing"
)

func TestSerializeParseRoundTrip(t *testing.T) {
	terms := []Term{
		NewURIRef("http://example.org/resource"),
		NewURIRef(""),
		NewURIRef("http://example.org/with space/and<angle>"),
		NewURIRef("http://example.org/ünïcødé"),
		NewBlankNode("b1"),
		NewBlankNode("node.with.dots"),
		NewLiteral(""),
		NewLiteral("hello"),
		NewLiteral("line1\nline2\r\n\ttabbed"),
		NewLiteral(`back\slash and "quotes"`),
		NewLiteral("control \x01\x7f chars"),
		NewLiteral("3.14159265358979323846264338327950288419716939937510"),
		NewLiteral("emoji 🙂 and ünïcødé"),
		NewLangLiteral("bonjour", "fr"),
		NewLangLiteral("hello", "en-GB"),
		NewTypedLiteral("42", XSDInteger),
		NewTypedLiteral("0.1000000000000000055511151231257827", XSDDecimal),
		NewTypedLiteral("x", NewURIRef("http://example.org/dt#weird type")),
		&Literal{Value: "both", Language: "en", Datatype: RDFLangStr},
	}

	for _, term := range terms {
		raw := SerializeTerm(term)
		parsed, err := ParseTerm(raw)
		if err != nil {
			t.Errorf("ParseTerm(%q) failed: %v", raw, err)
			continue
		}
		if !parsed.Equals(term) {
			t.Errorf("round trip mismatch: %#v -> %q -> %#v", term, raw, parsed)
		}
		if SerializeTerm(parsed) != raw {
			t.Errorf("serialization not stable for %q", raw)
		}
	}
}

func TestParseTerm(t *testing.T) {
	tests := []struct {
		input    string
		expected Term
	}{
		{`<http://example.org/s>`, NewURIRef("http://example.org/s")},
		{`<http://example.org/A>`, NewURIRef("http://example.org/A")},
		{`_:abc`, NewBlankNode("abc")},
		{`"plain"`, NewLiteral("plain")},
		{`"esc\t\"\'\\"`, NewLiteral("esc\t\"'\\")},
		{`"café"`, NewLiteral("café")},
		{`"smile \U0001F642"`, NewLiteral("smile 🙂")},
		{`"chat"@fr`, NewLangLiteral("chat", "fr")},
		{`"1"^^<http://www.w3.org/2001/XMLSchema#integer>`, NewTypedLiteral("1", XSDInteger)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			term, err := ParseTerm(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !term.Equals(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, term)
			}
		})
	}
}

func TestParseTerm_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"<http://example.org/s",
		"<http://example.org/a b>",
		`"unterminated`,
		`"bad \q escape"`,
		`"bad \u12 escape"`,
		`"surrogate \uD800"`,
		"\"raw\nbreak\"",
		`"x"@`,
		`"x"@1en`,
		`"x"@en-`,
		`"x"^^http://example.org/dt`,
		"_:",
		"_x",
		"<http://example.org/s> ",
		`"x" trailing`,
	}

	for _, input := range inputs {
		_, err := ParseTerm(input)
		if err == nil {
			t.Errorf("ParseTerm(%q): expected error", input)
			continue
		}
		if !errors.Is(err, ErrMalformedTerm) {
			t.Errorf("ParseTerm(%q): expected ErrMalformedTerm, got %v", input, err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("ParseTerm(%q): expected *ParseError, got %T", input, err)
		}
	}
}

func TestReadTerm_Consumed(t *testing.T) {
	tests := []struct {
		input    string
		consumed int
	}{
		{`<http://example.org/s> <http://example.org/p>`, 22},
		{`_:b1 .`, 4},
		{`_:b1.`, 4},
		{`"v"@en .`, 6},
		{`"v" .`, 3},
	}

	for _, tt := range tests {
		_, n, err := ReadTerm(tt.input)
		if err != nil {
			t.Errorf("ReadTerm(%q) failed: %v", tt.input, err)
			continue
		}
		if n != tt.consumed {
			t.Errorf("ReadTerm(%q): expected %d bytes consumed, got %d", tt.input, tt.consumed, n)
		}
	}
}

func TestValidateTerm(t *testing.T) {
	valid := []Term{
		NewURIRef("http://example.org/s"),
		NewBlankNode("b1"),
		NewLiteral("x"),
		NewLangLiteral("x", "en-US"),
	}
	for _, term := range valid {
		if err := ValidateTerm(term); err != nil {
			t.Errorf("ValidateTerm(%v) unexpected error: %v", term, err)
		}
	}

	invalid := []Term{
		nil,
		(*URIRef)(nil),
		NewBlankNode(""),
		NewBlankNode("has space"),
		NewBlankNode("ends."),
		NewLangLiteral("x", "not a tag"),
	}
	for _, term := range invalid {
		err := ValidateTerm(term)
		if !errors.Is(err, ErrMalformedTerm) {
			t.Errorf("ValidateTerm(%#v): expected ErrMalformedTerm, got %v", term, err)
		}
	}
}
