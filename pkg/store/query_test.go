package store_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

func sampleQuads() []*rdf.Quad {
	alice, bob, carol := uri("alice"), uri("bob"), uri("carol")
	knows, name := uri("knows"), uri("name")
	g1, g2 := uri("g1"), rdf.NewBlankNode("g2")
	return []*rdf.Quad{
		rdf.NewQuad(alice, knows, bob, g1),
		rdf.NewQuad(alice, knows, bob, g2),
		rdf.NewQuad(bob, knows, carol, g1),
		rdf.NewQuad(carol, knows, alice, g2),
		rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), g1),
		rdf.NewQuad(alice, name, rdf.NewLangLiteral("Alice", "en"), g2),
		rdf.NewQuad(bob, name, rdf.NewLiteral("Bob"), g2),
		rdf.NewQuad(rdf.NewBlankNode("x"), knows, rdf.NewBlankNode("y"), g1),
		rdf.NewQuad(rdf.NewBlankNode("x"), name, rdf.NewLiteral("bob"), g1),
	}
}

// TestMatchAllPatterns checks every combination of bound and wildcard
// components against a brute force filter.
func TestMatchAllPatterns(t *testing.T) {
	quads := sampleQuads()

	forEachBackend(t, func(t *testing.T, s *store.Store) {
		_, err := s.AddQuads(quads)
		require.NoError(t, err)

		for _, ref := range quads {
			refTerms := [4]rdf.Term{ref.Subject, ref.Predicate, ref.Object, ref.Context}
			for mask := 0; mask < 16; mask++ {
				var bound [4]rdf.Term
				for pos := range bound {
					if mask&(1<<pos) != 0 {
						bound[pos] = refTerms[pos]
					}
				}
				pattern := &store.Pattern{Subject: bound[0], Predicate: bound[1], Object: bound[2], Context: bound[3]}

				var expected []string
				for _, q := range quads {
					terms := [4]rdf.Term{q.Subject, q.Predicate, q.Object, q.Context}
					ok := true
					for pos := range terms {
						if bound[pos] != nil && !bound[pos].Equals(terms[pos]) {
							ok = false
						}
					}
					if ok {
						expected = append(expected, q.String())
					}
				}
				sort.Strings(expected)

				assert.Equal(t, expected, collectQuads(t, s, pattern), "ref %s mask %04b", ref, mask)
			}
		}
	})
}

func TestTriplesMatchesQuads(t *testing.T) {
	quads := sampleQuads()

	forEachBackend(t, func(t *testing.T, s *store.Store) {
		_, err := s.AddQuads(quads)
		require.NoError(t, err)

		patterns := []*rdf.Triple{
			nil,
			rdf.NewTriple(uri("alice"), nil, nil),
			rdf.NewTriple(nil, uri("knows"), nil),
			rdf.NewTriple(nil, nil, uri("bob")),
			rdf.NewTriple(nil, uri("name"), rdf.NewLiteral("Alice")),
			rdf.NewTriple(uri("alice"), nil, uri("bob")),
		}
		for _, pattern := range patterns {
			expected := make(map[string][]string)
			for _, q := range quads {
				if pattern != nil && !(rdf.MatchesWildcard(pattern.Subject, q.Subject) &&
					rdf.MatchesWildcard(pattern.Predicate, q.Predicate) &&
					rdf.MatchesWildcard(pattern.Object, q.Object)) {
					continue
				}
				key := q.Triple().String()
				expected[key] = append(expected[key], q.Context.String())
			}

			got := make(map[string][]string)
			for _, result := range collectTriples(t, s, pattern, nil) {
				key := result.Triple.String()
				assert.NotContains(t, got, key, "duplicate triple for %v", pattern)
				got[key] = termStrings(result.Contexts)
			}
			for key := range expected {
				sort.Strings(expected[key])
			}
			assert.Equal(t, expected, got, fmt.Sprintf("pattern %v", pattern))
		}
	})
}

func TestTriplesIsRestartable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		seq := s.Triples(nil, nil)

		count := func() int {
			n := 0
			for _, err := range seq {
				require.NoError(t, err)
				n++
			}
			return n
		}
		assert.Equal(t, 0, count())

		_, err := s.Add(rdf.NewTriple(uri("s"), uri("p"), uri("o")), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, count())

		for range seq {
			break
		}
	})
}

func TestIteratorSnapshot(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		_, err := s.Add(rdf.NewTriple(uri("s"), uri("p"), uri("o1")), nil)
		require.NoError(t, err)

		it, err := s.Statements().Match(nil)
		require.NoError(t, err)
		defer it.Close()

		// Writes after the iterator opened are not visible to it
		_, err = s.Add(rdf.NewTriple(uri("s"), uri("p"), uri("o2")), nil)
		require.NoError(t, err)

		n := 0
		for it.Next() {
			n++
		}
		require.NoError(t, it.Err())
		assert.Equal(t, 1, n)

		require.NoError(t, it.Close())
		assert.False(t, it.Next())
		_, err = it.Quad()
		assert.Error(t, err)
	})
}

func TestStatementIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		quad := rdf.NewQuad(uri("s"), uri("p"), rdf.NewLiteral("o"), uri("g"))
		_, err := s.Statements().Add(quad)
		require.NoError(t, err)

		statementID := func() string {
			it, err := s.Statements().Match(&store.Pattern{Subject: quad.Subject})
			require.NoError(t, err)
			defer it.Close()
			require.True(t, it.Next())
			st, err := it.Statement()
			require.NoError(t, err)
			assert.Equal(t, quad.String(), st.Quad.String())
			assert.False(t, it.Next())
			return st.ID.String()
		}

		first := statementID()
		assert.Equal(t, first, statementID())

		// Adding again keeps the original statement
		_, err = s.Statements().Add(quad)
		require.NoError(t, err)
		assert.Equal(t, first, statementID())

		_, err = s.Remove(quad.Triple(), quad.Context)
		require.NoError(t, err)
		_, err = s.Statements().Add(quad)
		require.NoError(t, err)
		assert.NotEqual(t, first, statementID())
	})
}

func TestContains(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *store.Store) {
		quad := rdf.NewQuad(uri("s"), uri("p"), rdf.NewLiteral("o"), uri("g"))

		ok, err := s.Statements().Contains(quad)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Statements().Add(quad)
		require.NoError(t, err)

		ok, err = s.Statements().Contains(quad)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Statements().Contains(rdf.NewQuad(uri("s"), uri("p"), rdf.NewLiteral("o"), uri("other")))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
