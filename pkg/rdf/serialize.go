package rdf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrMalformedTerm is returned (wrapped) whenever a serialized term cannot be parsed
// or a constructed term cannot be represented faithfully.
var ErrMalformedTerm = errors.New("malformed term")

// ParseError describes where and why parsing a term failed.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed term at offset %d: %s", e.Offset, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedTerm
}

// iriForbidden lists the ASCII characters that may not appear raw inside <...>
const iriForbidden = "<>\"{}|^`\\"

// SerializeTerm renders a term in N-Triples term syntax. Characters that cannot
// appear raw are escaped so that ParseTerm(SerializeTerm(t)) reproduces t exactly.
func SerializeTerm(term Term) string {
	var sb strings.Builder
	writeTerm(&sb, term)
	return sb.String()
}

func writeTerm(sb *strings.Builder, term Term) {
	switch t := term.(type) {
	case *URIRef:
		writeIRI(sb, t.IRI)
	case *BlankNode:
		sb.WriteString("_:")
		sb.WriteString(t.ID)
	case *Literal:
		sb.WriteByte('"')
		writeLiteralValue(sb, t.Value)
		sb.WriteByte('"')
		if t.Language != "" {
			sb.WriteByte('@')
			sb.WriteString(t.Language)
		}
		if t.Datatype != nil {
			sb.WriteString("^^")
			writeIRI(sb, t.Datatype.IRI)
		}
	}
}

func writeIRI(sb *strings.Builder, iri string) {
	sb.WriteByte('<')
	// Escaped characters are all ASCII, so walking bytes keeps any other
	// byte sequence intact.
	for i := 0; i < len(iri); i++ {
		b := iri[i]
		if b <= 0x20 || strings.IndexByte(iriForbidden, b) >= 0 {
			fmt.Fprintf(sb, "\\u%04X", b)
			continue
		}
		sb.WriteByte(b)
	}
	sb.WriteByte('>')
}

func writeLiteralValue(sb *strings.Builder, value string) {
	for i := 0; i < len(value); i++ {
		b := value[i]
		switch b {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if b < 0x20 || b == 0x7f {
				fmt.Fprintf(sb, "\\u%04X", b)
				continue
			}
			sb.WriteByte(b)
		}
	}
}

// ParseTerm parses a single term in N-Triples term syntax. The whole input must
// be consumed; leading or trailing characters are rejected.
func ParseTerm(raw string) (Term, error) {
	if raw == "" {
		return nil, &ParseError{Input: raw, Reason: "empty input"}
	}
	term, n, err := ReadTerm(raw)
	if err != nil {
		return nil, err
	}
	if n != len(raw) {
		return nil, &ParseError{Input: raw, Offset: n, Reason: "unexpected trailing characters"}
	}
	return term, nil
}

// ReadTerm parses the term at the start of input and returns it together with
// the number of bytes consumed. It is the building block for line-based formats.
func ReadTerm(input string) (Term, int, error) {
	r := &termReader{input: input}
	term, err := r.readTerm()
	if err != nil {
		return nil, r.pos, err
	}
	return term, r.pos, nil
}

type termReader struct {
	input string
	pos   int
}

func (r *termReader) fail(format string, args ...any) error {
	return &ParseError{Input: r.input, Offset: r.pos, Reason: fmt.Sprintf(format, args...)}
}

func (r *termReader) readTerm() (Term, error) {
	if r.pos >= len(r.input) {
		return nil, r.fail("unexpected end of input")
	}
	switch r.input[r.pos] {
	case '<':
		iri, err := r.readIRI()
		if err != nil {
			return nil, err
		}
		return NewURIRef(iri), nil
	case '_':
		return r.readBlankNode()
	case '"':
		return r.readLiteral()
	default:
		return nil, r.fail("unexpected character %q", r.input[r.pos])
	}
}

func (r *termReader) readIRI() (string, error) {
	r.pos++ // skip '<'
	var sb strings.Builder
	for r.pos < len(r.input) {
		b := r.input[r.pos]
		switch {
		case b == '>':
			r.pos++
			return sb.String(), nil
		case b == '\\':
			if err := r.readUnicodeEscape(&sb); err != nil {
				return "", err
			}
		case b <= 0x20 || strings.IndexByte(iriForbidden, b) >= 0:
			return "", r.fail("character %q not allowed in IRI", b)
		default:
			sb.WriteByte(b)
			r.pos++
		}
	}
	return "", r.fail("unterminated IRI")
}

// readUnicodeEscape handles \uXXXX and \UXXXXXXXX with r.pos at the backslash.
func (r *termReader) readUnicodeEscape(sb *strings.Builder) error {
	if r.pos+1 >= len(r.input) {
		return r.fail("incomplete escape sequence")
	}
	var width int
	switch r.input[r.pos+1] {
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return r.fail("invalid escape sequence \\%c", r.input[r.pos+1])
	}
	start := r.pos + 2
	if start+width > len(r.input) {
		return r.fail("incomplete unicode escape")
	}
	code, err := strconv.ParseUint(r.input[start:start+width], 16, 32)
	if err != nil {
		return r.fail("invalid unicode escape %q", r.input[start:start+width])
	}
	if code > utf8.MaxRune || (code >= 0xD800 && code <= 0xDFFF) {
		return r.fail("unicode escape %q is not a valid code point", r.input[start:start+width])
	}
	if code < utf8.RuneSelf {
		sb.WriteByte(byte(code))
	} else {
		sb.WriteRune(rune(code))
	}
	r.pos = start + width
	return nil
}

func (r *termReader) readBlankNode() (Term, error) {
	if !strings.HasPrefix(r.input[r.pos:], "_:") {
		return nil, r.fail("expected '_:'")
	}
	r.pos += 2
	start := r.pos
	for r.pos < len(r.input) && !isLabelTerminator(r.input[r.pos]) {
		r.pos++
	}
	// A label cannot end with '.'; the dot belongs to the statement.
	for r.pos > start && r.input[r.pos-1] == '.' {
		r.pos--
	}
	if r.pos == start {
		return nil, r.fail("empty blank node label")
	}
	return NewBlankNode(r.input[start:r.pos]), nil
}

func isLabelTerminator(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '<' || b == '"'
}

func (r *termReader) readLiteral() (Term, error) {
	r.pos++ // skip opening quote
	var sb strings.Builder
	closed := false
	for r.pos < len(r.input) && !closed {
		b := r.input[r.pos]
		switch b {
		case '"':
			r.pos++
			closed = true
		case '\n', '\r':
			return nil, r.fail("raw line break in literal")
		case '\\':
			if err := r.readStringEscape(&sb); err != nil {
				return nil, err
			}
		default:
			sb.WriteByte(b)
			r.pos++
		}
	}
	if !closed {
		return nil, r.fail("unterminated literal")
	}

	lit := NewLiteral(sb.String())
	if r.pos < len(r.input) && r.input[r.pos] == '@' {
		r.pos++
		start := r.pos
		for r.pos < len(r.input) && isLangChar(r.input[r.pos]) {
			r.pos++
		}
		lang := r.input[start:r.pos]
		if !validLanguageTag(lang) {
			r.pos = start
			return nil, r.fail("invalid language tag %q", lang)
		}
		lit.Language = lang
	}
	if strings.HasPrefix(r.input[r.pos:], "^^") {
		r.pos += 2
		if r.pos >= len(r.input) || r.input[r.pos] != '<' {
			return nil, r.fail("expected datatype IRI after '^^'")
		}
		iri, err := r.readIRI()
		if err != nil {
			return nil, err
		}
		lit.Datatype = NewURIRef(iri)
	}
	return lit, nil
}

func (r *termReader) readStringEscape(sb *strings.Builder) error {
	if r.pos+1 >= len(r.input) {
		return r.fail("incomplete escape sequence")
	}
	switch c := r.input[r.pos+1]; c {
	case 't':
		sb.WriteByte('\t')
	case 'b':
		sb.WriteByte('\b')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 'f':
		sb.WriteByte('\f')
	case '"', '\'', '\\':
		sb.WriteByte(c)
	case 'u', 'U':
		return r.readUnicodeEscape(sb)
	default:
		return r.fail("invalid escape sequence \\%c", c)
	}
	r.pos += 2
	return nil
}

func isLangChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-'
}

// validLanguageTag checks the BCP47-shaped form [a-zA-Z]+ ('-' [a-zA-Z0-9]+)*.
func validLanguageTag(tag string) bool {
	if tag == "" {
		return false
	}
	for i, part := range strings.Split(tag, "-") {
		if part == "" {
			return false
		}
		for j := 0; j < len(part); j++ {
			b := part[j]
			alpha := (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
			if i == 0 && !alpha {
				return false
			}
			if !alpha && !(b >= '0' && b <= '9') {
				return false
			}
		}
	}
	return true
}

// ValidateTerm rejects terms that cannot be stored and read back unchanged.
func ValidateTerm(term Term) error {
	switch t := term.(type) {
	case *URIRef:
		if t == nil {
			return fmt.Errorf("%w: nil URI reference", ErrMalformedTerm)
		}
		return nil
	case *BlankNode:
		if t == nil || t.ID == "" {
			return fmt.Errorf("%w: empty blank node id", ErrMalformedTerm)
		}
		for i := 0; i < len(t.ID); i++ {
			if isLabelTerminator(t.ID[i]) {
				return fmt.Errorf("%w: blank node id %q contains %q", ErrMalformedTerm, t.ID, t.ID[i])
			}
		}
		if strings.HasSuffix(t.ID, ".") {
			return fmt.Errorf("%w: blank node id %q ends with '.'", ErrMalformedTerm, t.ID)
		}
		return nil
	case *Literal:
		if t == nil {
			return fmt.Errorf("%w: nil literal", ErrMalformedTerm)
		}
		if t.Language != "" && !validLanguageTag(t.Language) {
			return fmt.Errorf("%w: invalid language tag %q", ErrMalformedTerm, t.Language)
		}
		return nil
	case nil:
		return fmt.Errorf("%w: nil term", ErrMalformedTerm)
	default:
		return fmt.Errorf("%w: unsupported term type %T", ErrMalformedTerm, term)
	}
}
