package main

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

// wildcard is the command line spelling of a pattern wildcard
const wildcard = "*"

// parseTerm reads a term in N-Triples syntax or as a prefixed name expanded
// through the store's namespace bindings.
func parseTerm(s *store.Store, arg string) (rdf.Term, error) {
	if arg == "" {
		return nil, fmt.Errorf("%w: empty term", rdf.ErrMalformedTerm)
	}
	switch arg[0] {
	case '<', '"', '_':
		return rdf.ParseTerm(arg)
	}
	if arg == "a" {
		return rdf.RDFType, nil
	}

	prefix, local, ok := strings.Cut(arg, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q is neither a term nor a prefixed name", rdf.ErrMalformedTerm, arg)
	}
	namespace, found, err := s.Namespace(prefix)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("unknown prefix %q", prefix)
	}
	term := rdf.NewURIRef(namespace + local)
	if err := rdf.ValidateTerm(term); err != nil {
		return nil, err
	}
	return term, nil
}

// parsePattern is parseTerm with "*" mapped to a wildcard
func parsePattern(s *store.Store, arg string) (rdf.Term, error) {
	if arg == wildcard {
		return nil, nil
	}
	return parseTerm(s, arg)
}

// parseTriplePattern reads up to three pattern components; missing ones are
// wildcards.
func parseTriplePattern(s *store.Store, args []string) (*rdf.Triple, error) {
	var terms [3]rdf.Term
	for i, arg := range args {
		term, err := parsePattern(s, arg)
		if err != nil {
			return nil, err
		}
		terms[i] = term
	}
	return rdf.NewTriple(terms[0], terms[1], terms[2]), nil
}

// termFormatter prints URIs as prefixed names when a binding covers them
type termFormatter struct {
	bindings []store.Binding
}

func newTermFormatter(s *store.Store) (*termFormatter, error) {
	f := &termFormatter{}
	for b, err := range s.Namespaces() {
		if err != nil {
			return nil, err
		}
		f.bindings = append(f.bindings, b)
	}
	return f, nil
}

func (f *termFormatter) format(term rdf.Term) string {
	uri, ok := term.(*rdf.URIRef)
	if !ok {
		return term.String()
	}
	var match *store.Binding
	for i := range f.bindings {
		b := &f.bindings[i]
		if strings.HasPrefix(uri.IRI, b.URI) && (match == nil || len(b.URI) > len(match.URI)) {
			match = b
		}
	}
	if match == nil {
		return term.String()
	}
	local := strings.TrimPrefix(uri.IRI, match.URI)
	if !isPlainLocalName(local) {
		return term.String()
	}
	return match.Prefix + ":" + local
}

func isPlainLocalName(local string) bool {
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
