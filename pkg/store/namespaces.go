package store

import (
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
)

// Binding is a prefix to namespace URI mapping. Fixed bindings can never be
// rebound or removed.
type Binding struct {
	Prefix string `yaml:"prefix"`
	URI    string `yaml:"uri"`
	Fixed  bool   `yaml:"-"`
}

// FixedNamespaces are seeded into every store and protected from change.
var FixedNamespaces = []Binding{
	{Prefix: "xml", URI: rdf.XMLNamespace, Fixed: true},
	{Prefix: "rdf", URI: rdf.RDFNamespace, Fixed: true},
	{Prefix: "rdfs", URI: rdf.RDFSNamespace, Fixed: true},
	{Prefix: "xsd", URI: rdf.XSDNamespace, Fixed: true},
}

// NamespaceRegistry keeps the bidirectional prefix/URI mapping. Both the
// prefix and the URI of a binding are unique.
type NamespaceRegistry struct {
	*engine
}

// Bind registers prefix for uri. It reports false, leaving the registry
// unchanged, when the binding conflicts with a fixed binding or, without
// override, with an existing one. With override, conflicting non-fixed
// bindings are replaced. The error is only set on storage failure.
func (r *NamespaceRegistry) Bind(prefix, uri string, override, fixed bool) (bool, error) {
	if uri == "" {
		r.logger.Debug("namespace bind refused", zap.String("prefix", prefix), zap.String("reason", "empty uri"))
		return false, nil
	}

	var (
		bound  bool
		reason string
	)
	err := r.update("bind", func(txn Transaction) error {
		var err error
		bound, reason, err = r.bindInTxn(txn, prefix, uri, override, fixed)
		return err
	})
	if err != nil {
		return false, err
	}
	if !bound {
		r.logger.Debug("namespace bind refused",
			zap.String("prefix", prefix),
			zap.String("uri", uri),
			zap.String("reason", reason))
	}
	return bound, nil
}

func (r *NamespaceRegistry) bindInTxn(txn Transaction, prefix, uri string, override, fixed bool) (bool, string, error) {
	current, err := getBinding(txn, prefix)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, "", err
	}
	hasPrefix := err == nil

	if hasPrefix && current.URI == uri {
		if fixed && !current.Fixed {
			return true, "", putBinding(txn, Binding{Prefix: prefix, URI: uri, Fixed: true})
		}
		return true, "", nil
	}
	if hasPrefix && current.Fixed {
		return false, "prefix is fixed", nil
	}

	other, err := txn.Get(TableNamespaceURIs, []byte(uri))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, "", err
	}
	hasURI := err == nil

	var otherBinding Binding
	if hasURI {
		otherBinding, err = getBinding(txn, string(other))
		if err != nil {
			return false, "", fmt.Errorf("namespace %q points at missing prefix %q: %w", uri, other, err)
		}
		if otherBinding.Fixed {
			return false, "uri is bound to a fixed prefix", nil
		}
	}

	if hasPrefix && !override {
		return false, "prefix already bound", nil
	}
	if hasURI && !override {
		return false, "uri already bound", nil
	}

	if hasPrefix {
		if err := txn.Delete(TableNamespaceURIs, []byte(current.URI)); err != nil {
			return false, "", err
		}
	}
	if hasURI {
		if err := txn.Delete(TableNamespaces, []byte(otherBinding.Prefix)); err != nil {
			return false, "", err
		}
	}
	return true, "", putBinding(txn, Binding{Prefix: prefix, URI: uri, Fixed: fixed})
}

// Unbind removes a non-fixed binding. Fixed and unknown prefixes report false.
func (r *NamespaceRegistry) Unbind(prefix string) (bool, error) {
	var removed bool
	err := r.update("unbind", func(txn Transaction) error {
		removed = false
		current, err := getBinding(txn, prefix)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.Fixed {
			return nil
		}
		if err := txn.Delete(TableNamespaces, []byte(prefix)); err != nil {
			return err
		}
		if err := txn.Delete(TableNamespaceURIs, []byte(current.URI)); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

// PrefixFor returns the prefix bound to exactly uri
func (r *NamespaceRegistry) PrefixFor(uri string) (string, bool, error) {
	var (
		prefix string
		found  bool
	)
	err := r.view("prefix", func(txn Transaction) error {
		value, err := txn.Get(TableNamespaceURIs, []byte(uri))
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		prefix, found = string(value), true
		return nil
	})
	return prefix, found, err
}

// NamespaceFor returns the URI bound to prefix
func (r *NamespaceRegistry) NamespaceFor(prefix string) (string, bool, error) {
	var (
		uri   string
		found bool
	)
	err := r.view("namespace", func(txn Transaction) error {
		b, err := getBinding(txn, prefix)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		uri, found = b.URI, true
		return nil
	})
	return uri, found, err
}

// All yields every binding ordered by prefix. Each range over the sequence
// reads a fresh snapshot.
func (r *NamespaceRegistry) All() iter.Seq2[Binding, error] {
	return func(yield func(Binding, error) bool) {
		if r.closed.Load() {
			yield(Binding{}, ErrClosed)
			return
		}
		txn, err := r.storage.Begin(false)
		if err != nil {
			yield(Binding{}, classify("namespaces", err))
			return
		}
		defer txn.Rollback()

		it, err := txn.Scan(TableNamespaces, nil)
		if err != nil {
			yield(Binding{}, classify("namespaces", err))
			return
		}
		defer it.Close()

		for it.Next() {
			prefix := string(it.Key())
			value, err := it.Value()
			if err != nil {
				yield(Binding{}, classify("namespaces", err))
				return
			}
			b, err := decodeBinding(prefix, value)
			if err != nil {
				yield(Binding{}, classify("namespaces", err))
				return
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

// seed installs the fixed bindings and any configured defaults. Configured
// defaults never displace an existing binding.
func (r *NamespaceRegistry) seed(extra []Binding) error {
	return r.update("seed_namespaces", func(txn Transaction) error {
		for _, b := range FixedNamespaces {
			if _, _, err := r.bindInTxn(txn, b.Prefix, b.URI, true, true); err != nil {
				return err
			}
		}
		for _, b := range extra {
			if b.URI == "" {
				continue
			}
			ok, reason, err := r.bindInTxn(txn, b.Prefix, b.URI, false, false)
			if err != nil {
				return err
			}
			if !ok {
				r.logger.Debug("default namespace skipped",
					zap.String("prefix", b.Prefix),
					zap.String("reason", reason))
			}
		}
		return nil
	})
}

func getBinding(txn Transaction, prefix string) (Binding, error) {
	value, err := txn.Get(TableNamespaces, []byte(prefix))
	if err != nil {
		return Binding{}, err
	}
	return decodeBinding(prefix, value)
}

func putBinding(txn Transaction, b Binding) error {
	value := make([]byte, 0, len(b.URI)+1)
	if b.Fixed {
		value = append(value, 1)
	} else {
		value = append(value, 0)
	}
	value = append(value, b.URI...)
	if err := txn.Set(TableNamespaces, []byte(b.Prefix), value); err != nil {
		return err
	}
	return txn.Set(TableNamespaceURIs, []byte(b.URI), []byte(b.Prefix))
}

func decodeBinding(prefix string, value []byte) (Binding, error) {
	if len(value) < 2 {
		return Binding{}, fmt.Errorf("invalid namespace record for prefix %q", prefix)
	}
	return Binding{Prefix: prefix, URI: string(value[1:]), Fixed: value[0] == 1}, nil
}
