package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a demo with sample data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			return runDemo(s, cmd.OutOrStdout())
		})
	},
}

func runDemo(s *store.Store, out io.Writer) error {
	fmt.Fprintln(out, "=== quadstore demo ===")
	fmt.Fprintln(out)

	if _, err := s.Bind("foaf", "http://xmlns.com/foaf/0.1/", false); err != nil {
		return err
	}
	if _, err := s.Bind("ex", "http://example.org/", false); err != nil {
		return err
	}

	alice := rdf.NewURIRef("http://example.org/alice")
	bob := rdf.NewURIRef("http://example.org/bob")
	carol := rdf.NewURIRef("http://example.org/carol")

	knows := rdf.NewURIRef("http://xmlns.com/foaf/0.1/knows")
	name := rdf.NewURIRef("http://xmlns.com/foaf/0.1/name")
	age := rdf.NewURIRef("http://xmlns.com/foaf/0.1/age")

	fmt.Fprintln(out, "Inserting sample data into the default context...")
	triples := []*rdf.Triple{
		rdf.NewTriple(alice, name, rdf.NewLiteral("Alice")),
		rdf.NewTriple(alice, age, rdf.NewTypedLiteral("30", rdf.XSDInteger)),
		rdf.NewTriple(alice, knows, bob),

		rdf.NewTriple(bob, name, rdf.NewLiteral("Bob")),
		rdf.NewTriple(bob, age, rdf.NewTypedLiteral("25", rdf.XSDInteger)),
		rdf.NewTriple(bob, knows, carol),

		rdf.NewTriple(carol, name, rdf.NewLiteral("Carol")),
		rdf.NewTriple(carol, age, rdf.NewTypedLiteral("28", rdf.XSDInteger)),
	}
	for _, triple := range triples {
		if _, err := s.Add(triple, nil); err != nil {
			return fmt.Errorf("failed to insert triple: %w", err)
		}
		fmt.Fprintf(out, "  + %s\n", triple)
	}

	fmt.Fprintln(out, "\nInserting data into named contexts...")
	graph1 := rdf.NewURIRef("http://example.org/graph1")
	graph2 := rdf.NewURIRef("http://example.org/graph2")

	quads := []*rdf.Quad{
		rdf.NewQuad(alice, knows, bob, graph1),
		rdf.NewQuad(alice, knows, bob, graph2),
		rdf.NewQuad(alice, name, rdf.NewLangLiteral("Alice", "en"), graph1),
		rdf.NewQuad(carol, name, rdf.NewLangLiteral("Carole", "fr"), graph2),
	}
	if _, err := s.AddQuads(quads); err != nil {
		return fmt.Errorf("failed to insert quads: %w", err)
	}
	for _, quad := range quads {
		fmt.Fprintf(out, "  + %s\n", quad)
	}

	total, err := s.Len(nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal (triple, context) pairs: %d\n", total)

	f, err := newTermFormatter(s)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nWho knows whom, in which contexts:")
	for result, err := range s.Triples(rdf.NewTriple(nil, knows, nil), nil) {
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s %s %s  in", f.format(result.Triple.Subject), f.format(result.Triple.Predicate), f.format(result.Triple.Object))
		for _, ctx := range result.Contexts {
			fmt.Fprintf(out, " %s", f.format(ctx))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "\nContexts:")
	for ctx, err := range s.Contexts(nil) {
		if err != nil {
			return err
		}
		n, err := s.Len(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s (%d quads)\n", f.format(ctx), n)
	}

	removed, err := s.RemoveContext(graph2)
	if err != nil {
		return err
	}
	total, err = s.Len(nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nRemoved %s: %v, pairs left: %d\n", f.format(graph2), removed, total)
	return nil
}
