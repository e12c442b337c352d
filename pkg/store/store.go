package store

import (
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// Store is the RDF store contract over a namespace registry, a context
// manager and a statement store that share one storage backend.
type Store struct {
	engine         *engine
	namespaces     *NamespaceRegistry
	contexts       *ContextManager
	statements     *StatementStore
	defaultContext rdf.Term
}

// Open creates a store on top of storage and seeds the fixed namespaces. The
// store takes ownership of storage and decoder and closes them in Close.
func Open(storage Storage, encoder TermEncoder, decoder TermDecoder, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateContext(o.defaultContext); err != nil {
		return nil, fmt.Errorf("invalid default context: %w", err)
	}

	e := &engine{
		storage:    storage,
		encoder:    encoder,
		decoder:    decoder,
		logger:     o.logger,
		observer:   o.observer,
		maxRetries: o.maxRetries,
	}
	s := &Store{
		engine:         e,
		namespaces:     &NamespaceRegistry{engine: e},
		contexts:       &ContextManager{engine: e},
		statements:     &StatementStore{engine: e},
		defaultContext: o.defaultContext,
	}
	s.contexts.statements = s.statements
	s.statements.contexts = s.contexts

	if err := s.namespaces.seed(o.namespaces); err != nil {
		return nil, fmt.Errorf("failed to seed namespaces: %w", err)
	}
	if err := s.contexts.resumeDrops(); err != nil {
		return nil, fmt.Errorf("failed to resume context drops: %w", err)
	}

	e.logger.Info("store opened",
		zap.Stringer("default_context", o.defaultContext),
		zap.Int("max_retries", o.maxRetries))
	return s, nil
}

// NamespaceRegistry returns the store's namespace registry
func (s *Store) NamespaceRegistry() *NamespaceRegistry {
	return s.namespaces
}

// ContextManager returns the store's context manager
func (s *Store) ContextManager() *ContextManager {
	return s.contexts
}

// Statements returns the store's statement store
func (s *Store) Statements() *StatementStore {
	return s.statements
}

// DefaultContext returns the context Add uses when none is given
func (s *Store) DefaultContext() rdf.Term {
	return s.defaultContext
}

// Add adds triple to ctx. A nil ctx means the default context.
func (s *Store) Add(triple *rdf.Triple, ctx rdf.Term) (bool, error) {
	if triple == nil {
		return false, fmt.Errorf("%w: nil triple", ErrInvalidQuad)
	}
	if ctx == nil {
		ctx = s.defaultContext
	}
	return s.statements.Add(rdf.NewQuad(triple.Subject, triple.Predicate, triple.Object, ctx))
}

// AddQuads adds all quads atomically. Quads without a context go to the
// default context.
func (s *Store) AddQuads(quads []*rdf.Quad) (int, error) {
	batch := make([]*rdf.Quad, len(quads))
	for i, q := range quads {
		if q != nil && q.Context == nil {
			q = rdf.NewQuad(q.Subject, q.Predicate, q.Object, s.defaultContext)
		}
		batch[i] = q
	}
	return s.statements.AddBatch(batch)
}

// Remove deletes every quad matching the triple pattern in ctx. Nil pattern
// components and a nil ctx are wildcards.
func (s *Store) Remove(pattern *rdf.Triple, ctx rdf.Term) (int, error) {
	return s.statements.Remove(toPattern(pattern, ctx))
}

// Triples yields the distinct triples matching the pattern in ctx along with
// the contexts each occurs in. Each range over the sequence reads a fresh
// snapshot.
func (s *Store) Triples(pattern *rdf.Triple, ctx rdf.Term) iter.Seq2[*TripleResult, error] {
	return func(yield func(*TripleResult, error) bool) {
		it, err := s.statements.Query(toPattern(pattern, ctx))
		if err != nil {
			yield(nil, err)
			return
		}
		defer it.Close()

		for it.Next() {
			result, err := it.Result()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(result, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Contexts yields every known context, or with a non-nil triple only the
// contexts containing it.
func (s *Store) Contexts(triple *rdf.Triple) iter.Seq2[rdf.Term, error] {
	if triple == nil {
		return s.contexts.List()
	}
	return func(yield func(rdf.Term, error) bool) {
		seen := make(map[string]struct{})
		for result, err := range s.Triples(triple, nil) {
			if err != nil {
				yield(nil, err)
				return
			}
			for _, ctx := range result.Contexts {
				key := ctx.String()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				if !yield(ctx, nil) {
					return
				}
			}
		}
	}
}

// Len counts the quads in ctx. With a nil ctx it counts (triple, context)
// pairs over the whole store. Unknown contexts have length 0.
func (s *Store) Len(ctx rdf.Term) (uint64, error) {
	if ctx == nil {
		return s.contexts.Total()
	}
	return s.contexts.TripleCount(ctx)
}

// AddContext registers ctx without adding any quads
func (s *Store) AddContext(ctx rdf.Term) (bool, error) {
	return s.contexts.Ensure(ctx)
}

// RemoveContext deletes ctx and all of its quads
func (s *Store) RemoveContext(ctx rdf.Term) (bool, error) {
	_, existed, err := s.contexts.Remove(ctx)
	return existed, err
}

// Bind binds prefix to namespace. Without override an existing binding is
// kept and false is returned.
func (s *Store) Bind(prefix, namespace string, override bool) (bool, error) {
	return s.namespaces.Bind(prefix, namespace, override, false)
}

// Namespace returns the namespace bound to prefix
func (s *Store) Namespace(prefix string) (string, bool, error) {
	return s.namespaces.NamespaceFor(prefix)
}

// Prefix returns the prefix bound to namespace
func (s *Store) Prefix(namespace string) (string, bool, error) {
	return s.namespaces.PrefixFor(namespace)
}

// Namespaces yields every namespace binding
func (s *Store) Namespaces() iter.Seq2[Binding, error] {
	return s.namespaces.All()
}

// Sync flushes committed writes to durable storage
func (s *Store) Sync() error {
	if s.engine.closed.Load() {
		return ErrClosed
	}
	if err := s.engine.storage.Sync(); err != nil {
		return classify("sync", err)
	}
	return nil
}

// Close releases the decoder and closes the storage. Further calls fail with
// ErrClosed.
func (s *Store) Close() error {
	if !s.engine.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.engine.decoder.Close()
	if err := s.engine.storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	s.engine.logger.Info("store closed")
	return nil
}

func toPattern(triple *rdf.Triple, ctx rdf.Term) *Pattern {
	p := &Pattern{Context: ctx}
	if triple != nil {
		p.Subject, p.Predicate, p.Object = triple.Subject, triple.Predicate, triple.Object
	}
	return p
}
