package storage

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/quadstore/pkg/store"
)

// BadgerStorage implements Storage using BadgerDB
type BadgerStorage struct {
	db *badger.DB
}

// BadgerOption tunes the Badger options a storage is opened with
type BadgerOption func(*badger.Options)

// WithMemTableSize sets the Badger memtable size in bytes. A transaction may
// hold roughly 15% of it, so it bounds how many quads one atomic write can
// touch: with the 64 MiB default that is about 15k quads added or removed at
// once. Zero keeps the default.
func WithMemTableSize(size int64) BadgerOption {
	return func(opts *badger.Options) {
		if size > 0 {
			*opts = opts.WithMemTableSize(size)
		}
	}
}

// NewBadgerStorage creates a new BadgerDB-backed storage in path. Badger's
// own log output is routed to logger; a nil logger silences it.
func NewBadgerStorage(path string, logger *zap.Logger, options ...BadgerOption) (*BadgerStorage, error) {
	return openBadger(badger.DefaultOptions(path), logger, options)
}

// NewInMemoryBadgerStorage creates a BadgerDB storage that keeps everything
// in memory and is lost on Close.
func NewInMemoryBadgerStorage(logger *zap.Logger, options ...BadgerOption) (*BadgerStorage, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true), logger, options)
}

func openBadger(opts badger.Options, logger *zap.Logger, options []BadgerOption) (*BadgerStorage, error) {
	for _, option := range options {
		option(&opts)
	}
	if logger == nil {
		opts.Logger = nil // Disable default logger
	} else {
		opts.Logger = &badgerLogger{logger.Named("badger").WithOptions(zap.AddCallerSkip(1)).Sugar()}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStorage{db: db}, nil
}

// Begin starts a new transaction
func (s *BadgerStorage) Begin(writable bool) (store.Transaction, error) {
	if s.db.IsClosed() {
		return nil, store.ErrClosed
	}
	txn := s.db.NewTransaction(writable)
	return &BadgerTransaction{
		txn:      txn,
		writable: writable,
	}, nil
}

// Close closes the storage
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// Sync flushes writes to disk
func (s *BadgerStorage) Sync() error {
	if s.db.Opts().InMemory {
		return nil
	}
	return s.db.Sync()
}

// BadgerTransaction implements Transaction using BadgerDB
type BadgerTransaction struct {
	txn      *badger.Txn
	writable bool
}

// Get retrieves a value by key
func (t *BadgerTransaction) Get(table store.Table, key []byte) ([]byte, error) {
	prefixedKey := store.PrefixKey(table, key)
	item, err := t.txn.Get(prefixedKey)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return item.ValueCopy(nil)
}

// Set stores a key-value pair
func (t *BadgerTransaction) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}

	prefixedKey := store.PrefixKey(table, key)
	return mapTxnErr(t.txn.Set(prefixedKey, value))
}

// Delete removes a key
func (t *BadgerTransaction) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}

	prefixedKey := store.PrefixKey(table, key)
	return mapTxnErr(t.txn.Delete(prefixedKey))
}

// Scan iterates over the keys of table that start with prefix
func (t *BadgerTransaction) Scan(table store.Table, prefix []byte) (store.Iterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = store.PrefixKey(table, prefix)
	it := t.txn.NewIterator(opts)

	return &BadgerIterator{
		it:          it,
		tablePrefix: store.TablePrefix(table),
		seekKey:     opts.Prefix,
	}, nil
}

// Commit commits the transaction
func (t *BadgerTransaction) Commit() error {
	err := t.txn.Commit()
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return mapTxnErr(err)
}

func mapTxnErr(err error) error {
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: %v", store.ErrTooLarge, err)
	}
	return err
}

// Rollback rolls back the transaction. Discarding a committed transaction is
// a no-op in Badger.
func (t *BadgerTransaction) Rollback() error {
	t.txn.Discard()
	return nil
}

// BadgerIterator implements Iterator using BadgerDB
type BadgerIterator struct {
	it          *badger.Iterator
	tablePrefix []byte // Table prefix for stripping from keys
	seekKey     []byte
	started     bool
	hasValue    bool
}

// Next advances to the next item
func (i *BadgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}

	// Prefix bounds the iteration, so validity is all we need
	i.hasValue = i.it.Valid()
	return i.hasValue
}

// Key returns the current key (without the table prefix)
func (i *BadgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}

	key := i.it.Item().KeyCopy(nil)
	return key[len(i.tablePrefix):]
}

// Value returns the current value
func (i *BadgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, store.ErrNotFound
	}

	return i.it.Item().ValueCopy(nil)
}

// Close closes the iterator
func (i *BadgerIterator) Close() error {
	i.it.Close()
	return nil
}

// badgerLogger adapts zap to badger.Logger
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
