package store_test

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quadstore/internal/encoding"
	"github.com/aleksaelezovic/quadstore/internal/storage"
	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

// backend opens a storage rooted at dir. Opening the same dir twice must see
// the same data.
type backend struct {
	name string
	open func(t *testing.T, dir string) store.Storage
}

var backends = []backend{
	{"badger", func(t *testing.T, dir string) store.Storage {
		s, err := storage.NewBadgerStorage(dir, nil)
		require.NoError(t, err)
		return s
	}},
	{"sqlite", func(t *testing.T, dir string) store.Storage {
		s, err := storage.NewSQLStorage(filepath.Join(dir, "quads.db"), nil)
		require.NoError(t, err)
		return s
	}},
}

func openStore(t *testing.T, st store.Storage, opts ...store.Option) *store.Store {
	t.Helper()
	decoder, err := encoding.NewTermDecoder(1000)
	require.NoError(t, err)
	s, err := store.Open(st, encoding.NewTermEncoder(), decoder, opts...)
	require.NoError(t, err)
	return s
}

// forEachBackend runs fn against a fresh store on every backend
func forEachBackend(t *testing.T, fn func(t *testing.T, s *store.Store), opts ...store.Option) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := openStore(t, b.open(t, t.TempDir()), opts...)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func uri(local string) *rdf.URIRef {
	return rdf.NewURIRef("http://example.org/" + local)
}

func collectTriples(t *testing.T, s *store.Store, pattern *rdf.Triple, ctx rdf.Term) []*store.TripleResult {
	t.Helper()
	var results []*store.TripleResult
	for result, err := range s.Triples(pattern, ctx) {
		require.NoError(t, err)
		results = append(results, result)
	}
	return results
}

func collectContexts(t *testing.T, s *store.Store, triple *rdf.Triple) []string {
	t.Helper()
	var contexts []string
	for ctx, err := range s.Contexts(triple) {
		require.NoError(t, err)
		contexts = append(contexts, ctx.String())
	}
	sort.Strings(contexts)
	return contexts
}

func collectQuads(t *testing.T, s *store.Store, pattern *store.Pattern) []string {
	t.Helper()
	it, err := s.Statements().Match(pattern)
	require.NoError(t, err)
	defer it.Close()

	var quads []string
	for it.Next() {
		quad, err := it.Quad()
		require.NoError(t, err)
		quads = append(quads, quad.String())
	}
	require.NoError(t, it.Err())
	sort.Strings(quads)
	return quads
}

func termStrings(terms []rdf.Term) []string {
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = term.String()
	}
	sort.Strings(out)
	return out
}

// recordingObserver keeps every callback for inspection
type recordingObserver struct {
	mu         sync.Mutex
	operations map[string][]error
	quads      map[string]int
	conflicts  map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		operations: make(map[string][]error),
		quads:      make(map[string]int),
		conflicts:  make(map[string]int),
	}
}

func (o *recordingObserver) OnOperation(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations[op] = append(o.operations[op], err)
}

func (o *recordingObserver) OnQuads(op string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quads[op] += n
}

func (o *recordingObserver) OnConflict(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conflicts[op]++
}

func (o *recordingObserver) snapshot() (map[string][]error, map[string]int, map[string]int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ops := make(map[string][]error, len(o.operations))
	for k, v := range o.operations {
		ops[k] = append([]error(nil), v...)
	}
	quads := make(map[string]int, len(o.quads))
	for k, v := range o.quads {
		quads[k] = v
	}
	conflicts := make(map[string]int, len(o.conflicts))
	for k, v := range o.conflicts {
		conflicts[k] = v
	}
	return ops, quads, conflicts
}

// faultyStorage wraps a storage and injects failures
type faultyStorage struct {
	store.Storage

	mu          sync.Mutex
	beginErr    error
	commitErrs  []error
	commitCalls int
	maxWrites   int
}

// limitWrites makes every write transaction fail with store.ErrTooLarge once
// it holds more than n writes. Zero lifts the limit.
func (f *faultyStorage) limitWrites(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxWrites = n
}

func (f *faultyStorage) writeLimit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxWrites
}

func (f *faultyStorage) failBegin(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beginErr = err
}

// failCommits makes the next commits fail with errs, in order
func (f *faultyStorage) failCommits(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitErrs = append(f.commitErrs, errs...)
}

func (f *faultyStorage) Begin(writable bool) (store.Transaction, error) {
	f.mu.Lock()
	err := f.beginErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	txn, err := f.Storage.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &faultyTransaction{Transaction: txn, storage: f}, nil
}

func (f *faultyStorage) nextCommitErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCalls++
	if len(f.commitErrs) == 0 {
		return nil
	}
	err := f.commitErrs[0]
	f.commitErrs = f.commitErrs[1:]
	return err
}

type faultyTransaction struct {
	store.Transaction
	storage *faultyStorage
	writes  int
}

func (t *faultyTransaction) countWrite() error {
	t.writes++
	if limit := t.storage.writeLimit(); limit > 0 && t.writes > limit {
		return fmt.Errorf("%w: %d writes", store.ErrTooLarge, t.writes)
	}
	return nil
}

func (t *faultyTransaction) Set(table store.Table, key, value []byte) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	return t.Transaction.Set(table, key, value)
}

func (t *faultyTransaction) Delete(table store.Table, key []byte) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	return t.Transaction.Delete(table, key)
}

func (t *faultyTransaction) Commit() error {
	if err := t.storage.nextCommitErr(); err != nil {
		_ = t.Transaction.Rollback()
		return err
	}
	return t.Transaction.Commit()
}
