package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/quadstore/internal/nquads"
	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

var (
	bindOverride bool
	loadContext  string
	loadBatch    int
	dumpContext  string
)

var addCmd = &cobra.Command{
	Use:   "add SUBJECT PREDICATE OBJECT [CONTEXT]",
	Short: "Add a triple to a context (default context when omitted)",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			terms := make([]rdf.Term, len(args))
			for i, arg := range args {
				term, err := parseTerm(s, arg)
				if err != nil {
					return err
				}
				terms[i] = term
			}
			var ctx rdf.Term
			if len(terms) == 4 {
				ctx = terms[3]
			}
			added, err := s.Add(rdf.NewTriple(terms[0], terms[1], terms[2]), ctx)
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintln(cmd.OutOrStdout(), "added")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "already present")
			}
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [SUBJECT [PREDICATE [OBJECT [CONTEXT]]]]",
	Short: "Remove every quad matching a pattern",
	Long:  `Missing components and "*" are wildcards. Without a context the pattern applies to all contexts.`,
	Args:  cobra.MaximumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			pattern, ctx, err := parseQuadPattern(s, args)
			if err != nil {
				return err
			}
			removed, err := s.Remove(pattern, ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d quads\n", removed)
			return nil
		})
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [SUBJECT [PREDICATE [OBJECT [CONTEXT]]]]",
	Short: "List triples matching a pattern with the contexts they occur in",
	Args:  cobra.MaximumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			pattern, ctx, err := parseQuadPattern(s, args)
			if err != nil {
				return err
			}
			f, err := newTermFormatter(s)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			count := 0
			for result, err := range s.Triples(pattern, ctx) {
				if err != nil {
					return err
				}
				contexts := make([]string, len(result.Contexts))
				for i, c := range result.Contexts {
					contexts[i] = f.format(c)
				}
				fmt.Fprintf(out, "%s %s %s  [%s]\n",
					f.format(result.Triple.Subject),
					f.format(result.Triple.Predicate),
					f.format(result.Triple.Object),
					strings.Join(contexts, ", "))
				count++
			}
			fmt.Fprintf(out, "%d triples\n", count)
			return nil
		})
	},
}

var contextsCmd = &cobra.Command{
	Use:   "contexts [SUBJECT PREDICATE OBJECT]",
	Short: "List contexts, or the contexts containing a triple",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 3 {
			return fmt.Errorf("expected no arguments or a triple, got %d arguments", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			var triple *rdf.Triple
			if len(args) == 3 {
				var err error
				if triple, err = parseTriplePattern(s, args); err != nil {
					return err
				}
			}
			f, err := newTermFormatter(s)
			if err != nil {
				return err
			}
			for ctx, err := range s.Contexts(triple) {
				if err != nil {
					return err
				}
				n, err := s.Len(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", f.format(ctx), n)
			}
			return nil
		})
	},
}

var lenCmd = &cobra.Command{
	Use:   "len [CONTEXT]",
	Short: "Count quads in a context, or (triple, context) pairs in the store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			var ctx rdf.Term
			if len(args) == 1 {
				var err error
				if ctx, err = parseTerm(s, args[0]); err != nil {
					return err
				}
			}
			n, err := s.Len(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

var addContextCmd = &cobra.Command{
	Use:   "add-context CONTEXT",
	Short: "Register an empty context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			ctx, err := parseTerm(s, args[0])
			if err != nil {
				return err
			}
			created, err := s.AddContext(ctx)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "created")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "already exists")
			}
			return nil
		})
	},
}

var dropContextCmd = &cobra.Command{
	Use:   "drop-context CONTEXT",
	Short: "Remove a context and every quad in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			ctx, err := parseTerm(s, args[0])
			if err != nil {
				return err
			}
			removed, existed, err := s.ContextManager().Remove(ctx)
			if err != nil {
				return err
			}
			if !existed {
				fmt.Fprintln(cmd.OutOrStdout(), "no such context")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed context with %d quads\n", removed)
			return nil
		})
	},
}

var bindCmd = &cobra.Command{
	Use:   "bind PREFIX URI",
	Short: "Bind a namespace prefix",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			bound, err := s.Bind(args[0], args[1], bindOverride)
			if err != nil {
				return err
			}
			if !bound {
				return fmt.Errorf("binding %s: <%s> refused; the prefix or namespace is taken or fixed (use --override to replace)", args[0], args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: <%s>\n", args[0], args[1])
			return nil
		})
	},
}

var unbindCmd = &cobra.Command{
	Use:   "unbind PREFIX",
	Short: "Remove a namespace binding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			removed, err := s.NamespaceRegistry().Unbind(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("prefix %q is not bound or is fixed", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "unbound")
			return nil
		})
	},
}

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List namespace bindings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			for b, err := range s.Namespaces() {
				if err != nil {
					return err
				}
				marker := ""
				if b.Fixed {
					marker = " (fixed)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: <%s>%s\n", b.Prefix, b.URI, marker)
			}
			return nil
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: `Load an N-Quads or N-Triples file ("-" for stdin)`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadBatch < 1 {
			return fmt.Errorf("--batch must be at least 1, got %d", loadBatch)
		}
		in, closeIn, err := openInput(cmd, args[0])
		if err != nil {
			return err
		}
		defer closeIn()

		return withStore(func(s *store.Store) error {
			var ctx rdf.Term
			if loadContext != "" {
				if ctx, err = parseTerm(s, loadContext); err != nil {
					return err
				}
			}

			reader := nquads.NewReader(in)
			batch := make([]*rdf.Quad, 0, loadBatch)
			read, added := 0, 0
			flush := func() error {
				n, err := s.AddQuads(batch)
				if err != nil {
					return err
				}
				added += n
				batch = batch[:0]
				return nil
			}

			for {
				quad, err := reader.Read()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				if quad.Context == nil {
					quad.Context = ctx
				}
				batch = append(batch, quad)
				read++
				if len(batch) >= loadBatch {
					if err := flush(); err != nil {
						return err
					}
				}
			}
			if err := flush(); err != nil {
				return err
			}
			if err := s.Sync(); err != nil {
				return err
			}

			logger.Info("load finished",
				zap.String("file", args[0]),
				zap.Int("read", read),
				zap.Int("added", added))
			fmt.Fprintf(cmd.OutOrStdout(), "read %d statements, added %d quads\n", read, added)
			return nil
		})
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [FILE]",
	Short: "Write the store (or one context) as N-Quads",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Create(args[0]) // #nosec G304 - path is operator supplied
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer f.Close()
			out = f
		}

		return withStore(func(s *store.Store) error {
			pattern := &store.Pattern{}
			if dumpContext != "" {
				ctx, err := parseTerm(s, dumpContext)
				if err != nil {
					return err
				}
				pattern.Context = ctx
			}

			it, err := s.Statements().Match(pattern)
			if err != nil {
				return err
			}
			defer it.Close()

			w := nquads.NewWriter(out)
			for it.Next() {
				quad, err := it.Quad()
				if err != nil {
					return err
				}
				if err := w.Write(quad); err != nil {
					return err
				}
			}
			if err := it.Err(); err != nil {
				return err
			}
			return w.Flush()
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config [FILE]",
	Short: "Write the effective configuration as YAML (stdout by default)",
	Long:  `The effective configuration is the config file merged with environment overrides and flags.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && args[0] != "-" {
			if err := cfg.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	bindCmd.Flags().BoolVar(&bindOverride, "override", false, "Replace existing non-fixed bindings")
	loadCmd.Flags().StringVar(&loadContext, "context", "", "Context for lines without one (default: the store's default context)")
	loadCmd.Flags().IntVar(&loadBatch, "batch", 1000, "Quads per transaction")
	dumpCmd.Flags().StringVar(&dumpContext, "context", "", "Only dump this context")
}

// parseQuadPattern reads up to four pattern components
func parseQuadPattern(s *store.Store, args []string) (*rdf.Triple, rdf.Term, error) {
	tripleArgs := args
	var ctx rdf.Term
	if len(args) == 4 {
		tripleArgs = args[:3]
		var err error
		if ctx, err = parsePattern(s, args[3]); err != nil {
			return nil, nil, err
		}
	}
	pattern, err := parseTriplePattern(s, tripleArgs)
	if err != nil {
		return nil, nil, err
	}
	return pattern, ctx, nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path) // #nosec G304 - path is operator supplied
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
