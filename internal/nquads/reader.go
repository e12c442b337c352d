package nquads

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// maxLineSize bounds a single N-Quads line
const maxLineSize = 16 * 1024 * 1024

// SyntaxError reports a malformed line
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Reader reads quads from an N-Quads document, one statement per line.
// N-Triples lines are accepted and yield quads with a nil Context.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a new N-Quads reader
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Read returns the next quad, or io.EOF at the end of the document
func (r *Reader) Read() (*rdf.Quad, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		quad, err := ParseLine(line)
		if err != nil {
			return nil, &SyntaxError{Line: r.line, Err: err}
		}
		return quad, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// ReadAll reads every remaining quad
func (r *Reader) ReadAll() ([]*rdf.Quad, error) {
	var quads []*rdf.Quad
	for {
		quad, err := r.Read()
		if errors.Is(err, io.EOF) {
			return quads, nil
		}
		if err != nil {
			return nil, err
		}
		quads = append(quads, quad)
	}
}

// Parse parses a whole N-Quads document
func Parse(input string) ([]*rdf.Quad, error) {
	return NewReader(strings.NewReader(input)).ReadAll()
}

// ParseLine parses a single statement: subject predicate object [context] .
func ParseLine(line string) (*rdf.Quad, error) {
	var terms []rdf.Term
	rest := line
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return nil, fmt.Errorf("%w: missing terminating '.'", rdf.ErrMalformedTerm)
		}
		if rest[0] == '.' {
			break
		}
		if len(terms) == 4 {
			return nil, fmt.Errorf("%w: too many terms", rdf.ErrMalformedTerm)
		}
		term, n, err := rdf.ReadTerm(rest)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
		rest = rest[n:]
	}

	trailing := strings.TrimSpace(rest[1:])
	if trailing != "" && trailing[0] != '#' {
		return nil, fmt.Errorf("%w: unexpected %q after '.'", rdf.ErrMalformedTerm, trailing)
	}
	if len(terms) < 3 {
		return nil, fmt.Errorf("%w: expected at least 3 terms, got %d", rdf.ErrMalformedTerm, len(terms))
	}

	quad := rdf.NewQuad(terms[0], terms[1], terms[2], nil)
	if len(terms) == 4 {
		quad.Context = terms[3]
	}
	return quad, nil
}
