package store_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

func TestFixedNamespacesSeeded(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		for _, b := range store.FixedNamespaces {
			ns, found, err := s.Namespace(b.Prefix)
			require.NoError(t, err)
			assert.True(t, found, b.Prefix)
			assert.Equal(t, b.URI, ns)

			prefix, found, err := s.Prefix(b.URI)
			require.NoError(t, err)
			assert.True(t, found, b.URI)
			assert.Equal(t, b.Prefix, prefix)
		}

		var prefixes []string
		for b, err := range s.Namespaces() {
			require.NoError(t, err)
			prefixes = append(prefixes, b.Prefix)
			assert.True(t, b.Fixed, b.Prefix)
		}
		assert.Equal(t, []string{"rdf", "rdfs", "xml", "xsd"}, prefixes)
	})
}

func TestFixedNamespaceProtection(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		r := s.NamespaceRegistry()

		bound, err := s.Bind("rdf", "http://example.org/fake-rdf#", true)
		require.NoError(t, err)
		assert.False(t, bound)

		prefix, found, err := s.Prefix(rdf.RDFNamespace)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "rdf", prefix)

		_, found, err = s.Prefix("http://example.org/fake-rdf#")
		require.NoError(t, err)
		assert.False(t, found)

		// A fixed URI cannot be claimed by another prefix either
		bound, err = s.Bind("myxsd", rdf.XSDNamespace, true)
		require.NoError(t, err)
		assert.False(t, bound)

		removed, err := r.Unbind("rdfs")
		require.NoError(t, err)
		assert.False(t, removed)

		// Rebinding the identical pair is accepted and changes nothing
		bound, err = s.Bind("xsd", rdf.XSDNamespace, false)
		require.NoError(t, err)
		assert.True(t, bound)
	})
}

func TestBindOverride(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		const (
			first  = "http://example.org/first/"
			second = "http://example.org/second/"
		)

		bound, err := s.Bind("ex", first, false)
		require.NoError(t, err)
		require.True(t, bound)

		bound, err = s.Bind("ex", second, false)
		require.NoError(t, err)
		assert.False(t, bound)
		ns, _, err := s.Namespace("ex")
		require.NoError(t, err)
		assert.Equal(t, first, ns)

		bound, err = s.Bind("ex", second, true)
		require.NoError(t, err)
		assert.True(t, bound)
		ns, _, err = s.Namespace("ex")
		require.NoError(t, err)
		assert.Equal(t, second, ns)

		// The replaced URI no longer maps back to the prefix
		_, found, err := s.Prefix(first)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestBindURIIsUnique(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		const ns = "http://example.org/"

		_, err := s.Bind("ex", ns, false)
		require.NoError(t, err)

		bound, err := s.Bind("example", ns, false)
		require.NoError(t, err)
		assert.False(t, bound)

		bound, err = s.Bind("example", ns, true)
		require.NoError(t, err)
		assert.True(t, bound)

		prefix, _, err := s.Prefix(ns)
		require.NoError(t, err)
		assert.Equal(t, "example", prefix)

		_, found, err := s.Namespace("ex")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestBindEdgeCases(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		bound, err := s.Bind("ex", "", true)
		require.NoError(t, err)
		assert.False(t, bound)

		bound, err = s.Bind("", "http://example.org/default#", false)
		require.NoError(t, err)
		assert.True(t, bound)

		ns, found, err := s.Namespace("")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "http://example.org/default#", ns)
	})
}

func TestUnbind(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		r := s.NamespaceRegistry()

		_, err := s.Bind("ex", "http://example.org/", false)
		require.NoError(t, err)

		removed, err := r.Unbind("ex")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = r.Unbind("ex")
		require.NoError(t, err)
		assert.False(t, removed)

		_, found, err := s.Prefix("http://example.org/")
		require.NoError(t, err)
		assert.False(t, found)

		// The URI is free again
		bound, err := s.Bind("other", "http://example.org/", false)
		require.NoError(t, err)
		assert.True(t, bound)
	})
}

func TestRegistryFixedBind(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		r := s.NamespaceRegistry()

		_, err := r.Bind("ex", "http://example.org/", false, false)
		require.NoError(t, err)

		// Promote the existing binding to fixed
		bound, err := r.Bind("ex", "http://example.org/", false, true)
		require.NoError(t, err)
		assert.True(t, bound)

		bound, err = r.Bind("ex", "http://example.org/v2/", true, false)
		require.NoError(t, err)
		assert.False(t, bound)

		removed, err := r.Unbind("ex")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestSeededNamespaces(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		ns, found, err := s.Namespace("owl")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, rdf.OWLNamespace, ns)

		// Seeds never displace fixed bindings
		ns, _, err = s.Namespace("xsd")
		require.NoError(t, err)
		assert.Equal(t, rdf.XSDNamespace, ns)

		var bindings []store.Binding
		for b, err := range s.Namespaces() {
			require.NoError(t, err)
			bindings = append(bindings, b)
		}
		idx := slices.IndexFunc(bindings, func(b store.Binding) bool { return b.Prefix == "owl" })
		require.GreaterOrEqual(t, idx, 0)
		assert.False(t, bindings[idx].Fixed)
	}, store.WithNamespaces(
		store.Binding{Prefix: "owl", URI: rdf.OWLNamespace},
		store.Binding{Prefix: "xsd", URI: "http://example.org/not-xsd#"},
	))
}
