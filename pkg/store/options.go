package store

import (
	"go.uber.org/zap"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// DefaultContextIRI names the context used when a triple is added without one.
const DefaultContextIRI = "urn:x-quadstore:default"

// DefaultMaxRetries bounds how often a conflicting write transaction is retried.
const DefaultMaxRetries = 5

type options struct {
	logger         *zap.Logger
	observer       Observer
	defaultContext rdf.Term
	maxRetries     int
	namespaces     []Binding
}

// Option configures a Store
type Option func(*options)

func defaultOptions() options {
	return options{
		logger:         zap.NewNop(),
		observer:       noopObserver{},
		defaultContext: rdf.NewURIRef(DefaultContextIRI),
		maxRetries:     DefaultMaxRetries,
	}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	}
}

// WithObserver installs an operation observer (metrics).
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithDefaultContext changes the context used by Add when none is given.
func WithDefaultContext(ctx rdf.Term) Option {
	return func(o *options) {
		if ctx != nil {
			o.defaultContext = ctx
		}
	}
}

// WithMaxRetries sets how many times a write is retried after a conflict.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithNamespaces seeds additional, non-fixed bindings when the store opens.
// Existing bindings for the same prefix or URI are left alone.
func WithNamespaces(bindings ...Binding) Option {
	return func(o *options) {
		o.namespaces = append(o.namespaces, bindings...)
	}
}
