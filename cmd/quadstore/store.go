package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/quadstore/internal/config"
	"github.com/aleksaelezovic/quadstore/internal/encoding"
	"github.com/aleksaelezovic/quadstore/internal/metrics"
	"github.com/aleksaelezovic/quadstore/internal/storage"
	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

// openStore wires the configured backend, term codec and observer into a store
func openStore() (*store.Store, error) {
	var (
		backend store.Storage
		err     error
	)
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		backend, err = storage.NewSQLStorage(cfg.Storage.Path, logger)
	default:
		memTable := storage.WithMemTableSize(cfg.Storage.Badger.MemTableSize)
		if cfg.Storage.InMemory {
			backend, err = storage.NewInMemoryBadgerStorage(logger, memTable)
		} else {
			backend, err = storage.NewBadgerStorage(cfg.Storage.Path, logger, memTable)
		}
	}
	if err != nil {
		return nil, err
	}

	decoder, err := encoding.NewTermDecoder(cfg.Cache.MaxTerms)
	if err != nil {
		_ = backend.Close() // #nosec G104 - decoder error is the one worth reporting
		return nil, err
	}

	opts := []store.Option{
		store.WithLogger(logger),
		store.WithDefaultContext(rdf.NewURIRef(cfg.DefaultContext)),
		store.WithMaxRetries(cfg.MaxRetries),
		store.WithNamespaces(cfg.Namespaces...),
	}
	if cfg.Metrics.Enabled {
		observer, err := metrics.NewObserver(cfg.Metrics.Namespace, registry)
		if err != nil {
			decoder.Close()
			_ = backend.Close() // #nosec G104 - registration error is the one worth reporting
			return nil, err
		}
		opts = append(opts, store.WithObserver(observer))
	}

	s, err := store.Open(backend, encoding.NewTermEncoder(), decoder, opts...)
	if err != nil {
		decoder.Close()
		_ = backend.Close() // #nosec G104 - open error is the one worth reporting
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	logger.Debug("store ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path))
	return s, nil
}

// withStore opens the store, runs fn and closes the store again
func withStore(fn func(s *store.Store) error) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()
	return fn(s)
}
