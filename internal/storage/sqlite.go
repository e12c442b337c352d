package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/aleksaelezovic/quadstore/pkg/store"
)

// Every logical table lives in one relational table; keys carry the table
// prefix byte, exactly as in the Badger layout.
const sqlSchema = `CREATE TABLE IF NOT EXISTS kv (
	k BLOB PRIMARY KEY,
	v BLOB
) WITHOUT ROWID`

// SQLStorage implements Storage on SQLite. Writes go through a single
// connection that takes the database lock up front; reads use a separate pool
// and see a WAL snapshot pinned when the transaction begins.
type SQLStorage struct {
	writer *sql.DB
	reader *sql.DB
	logger *zap.Logger
	closed atomic.Bool
}

// NewSQLStorage opens (or creates) the SQLite database at path
func NewSQLStorage(path string, logger *zap.Logger) (*SQLStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	writer, err := sql.Open("sqlite", dsn+"&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if _, err := writer.Exec(sqlSchema); err != nil {
		_ = writer.Close() // #nosec G104 - schema error is the one worth reporting
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn+"&_pragma=query_only(1)")
	if err != nil {
		_ = writer.Close() // #nosec G104 - open error is the one worth reporting
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	logger.Debug("sqlite storage opened", zap.String("path", path))
	return &SQLStorage{writer: writer, reader: reader, logger: logger}, nil
}

// Begin starts a new transaction
func (s *SQLStorage) Begin(writable bool) (store.Transaction, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	db := s.reader
	if writable {
		db = s.writer
	}
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	if !writable {
		// A deferred transaction takes its snapshot on the first read
		var n int
		if err := tx.QueryRow("SELECT count(*) FROM (SELECT 1 FROM kv LIMIT 1)").Scan(&n); err != nil {
			_ = tx.Rollback() // #nosec G104 - query error is the one worth reporting
			return nil, mapSQLiteError(err)
		}
	}
	return &SQLTransaction{tx: tx, writable: writable}, nil
}

// Close closes both connection pools
func (s *SQLStorage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(s.reader.Close(), s.writer.Close())
}

// Sync checkpoints the write-ahead log into the main database file
func (s *SQLStorage) Sync() error {
	_, err := s.writer.Exec("PRAGMA wal_checkpoint(PASSIVE)")
	return err
}

// SQLTransaction implements Transaction on a database/sql transaction
type SQLTransaction struct {
	tx       *sql.Tx
	writable bool
}

// Get retrieves a value by key
func (t *SQLTransaction) Get(table store.Table, key []byte) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRow("SELECT v FROM kv WHERE k = ?", store.PrefixKey(table, key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	return value, nil
}

// Set stores a key-value pair
func (t *SQLTransaction) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	_, err := t.tx.Exec("INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = excluded.v",
		store.PrefixKey(table, key), value)
	return mapSQLiteError(err)
}

// Delete removes a key
func (t *SQLTransaction) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	_, err := t.tx.Exec("DELETE FROM kv WHERE k = ?", store.PrefixKey(table, key))
	return mapSQLiteError(err)
}

// Scan reads the keys of table that start with prefix. Rows are read eagerly
// so the transaction stays free for other statements while iterating.
func (t *SQLTransaction) Scan(table store.Table, prefix []byte) (store.Iterator, error) {
	start := store.PrefixKey(table, prefix)
	end := prefixEnd(start)

	var (
		rows *sql.Rows
		err  error
	)
	if end == nil {
		rows, err = t.tx.Query("SELECT k, v FROM kv WHERE k >= ? ORDER BY k", start)
	} else {
		rows, err = t.tx.Query("SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k", start, end)
	}
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var items []sqlItem
	for rows.Next() {
		var item sqlItem
		if err := rows.Scan(&item.key, &item.value); err != nil {
			return nil, mapSQLiteError(err)
		}
		item.key = item.key[len(store.TablePrefix(table)):]
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}

	return &SQLIterator{items: items, pos: -1}, nil
}

// Commit commits the transaction
func (t *SQLTransaction) Commit() error {
	return mapSQLiteError(t.tx.Commit())
}

// Rollback rolls back the transaction; after Commit it does nothing
func (t *SQLTransaction) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type sqlItem struct {
	key   []byte
	value []byte
}

// SQLIterator iterates over rows read by Scan
type SQLIterator struct {
	items []sqlItem
	pos   int
}

// Next advances to the next item
func (i *SQLIterator) Next() bool {
	if i.pos+1 >= len(i.items) {
		i.pos = len(i.items)
		return false
	}
	i.pos++
	return true
}

// Key returns the current key (without the table prefix)
func (i *SQLIterator) Key() []byte {
	if i.pos < 0 || i.pos >= len(i.items) {
		return nil
	}
	return i.items[i.pos].key
}

// Value returns the current value
func (i *SQLIterator) Value() ([]byte, error) {
	if i.pos < 0 || i.pos >= len(i.items) {
		return nil, store.ErrNotFound
	}
	return i.items[i.pos].value, nil
}

// Close closes the iterator
func (i *SQLIterator) Close() error {
	i.items = nil
	return nil
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// mapSQLiteError reports lock contention as a retryable conflict
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
	}
	return err
}
