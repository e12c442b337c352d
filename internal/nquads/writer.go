package nquads

import (
	"bufio"
	"io"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// Writer writes quads as N-Quads lines
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a new N-Quads writer; call Flush when done
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes one quad. A nil Context writes an N-Triples line.
func (w *Writer) Write(quad *rdf.Quad) error {
	terms := []rdf.Term{quad.Subject, quad.Predicate, quad.Object}
	if quad.Context != nil {
		terms = append(terms, quad.Context)
	}
	for _, term := range terms {
		if _, err := w.w.WriteString(rdf.SerializeTerm(term)); err != nil {
			return err
		}
		if err := w.w.WriteByte(' '); err != nil {
			return err
		}
	}
	_, err := w.w.WriteString(".\n")
	return err
}

// Flush writes any buffered data to the underlying writer
func (w *Writer) Flush() error {
	return w.w.Flush()
}
