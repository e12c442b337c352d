package store

// Storage is the interface for the underlying transactional key-value store
type Storage interface {
	// Begin starts a new transaction
	Begin(writable bool) (Transaction, error)

	// Close closes the storage
	Close() error

	// Sync flushes writes to disk
	Sync() error
}

// Transaction represents a database transaction with snapshot isolation.
// A read-only transaction observes a single consistent snapshot for its
// whole lifetime.
type Transaction interface {
	// Get retrieves a value by key, returning ErrNotFound when absent
	Get(table Table, key []byte) ([]byte, error)

	// Set stores a key-value pair. Backends with a bounded transaction size
	// report ErrTooLarge from Set, Delete or Commit.
	Set(table Table, key, value []byte) error

	// Delete removes a key; deleting an absent key is not an error
	Delete(table Table, key []byte) error

	// Scan iterates over all keys of table starting with prefix, in key order.
	// A nil prefix scans the whole table.
	Scan(table Table, prefix []byte) (Iterator, error)

	// Commit commits the transaction. Backends report write-write conflicts
	// as ErrConflict.
	Commit() error

	// Rollback discards the transaction. Calling it after Commit is a no-op.
	Rollback() error
}

// Iterator iterates over key-value pairs
type Iterator interface {
	// Next advances to the next item
	Next() bool

	// Key returns the current key (without the table prefix)
	Key() []byte

	// Value returns the current value
	Value() ([]byte, error)

	// Close closes the iterator
	Close() error
}

// Table represents a logical table/column family in the storage
type Table byte

const (
	// Metadata table: encoded term -> serialized term
	TableID2Str Table = iota

	// Resource partition: quads whose object is a URI reference or blank node
	TableResSPOC
	TableResPOSC
	TableResOSPC
	TableResCSPO
	TableResCPOS
	TableResCOSP

	// Literal partition: quads whose object is a literal
	TableLitSPOC
	TableLitPOSC
	TableLitOSPC
	TableLitCSPO
	TableLitCPOS
	TableLitCOSP

	// Contexts: encoded context -> quad count
	TableContexts

	// Namespaces: prefix -> fixed flag + uri, and the reverse uri -> prefix
	TableNamespaces
	TableNamespaceURIs

	// Contexts whose quads are still being purged after a drop
	TableDroppedContexts

	// Total number of tables
	TableCount
)

func (t Table) String() string {
	switch t {
	case TableID2Str:
		return "id2str"
	case TableResSPOC:
		return "res_spoc"
	case TableResPOSC:
		return "res_posc"
	case TableResOSPC:
		return "res_ospc"
	case TableResCSPO:
		return "res_cspo"
	case TableResCPOS:
		return "res_cpos"
	case TableResCOSP:
		return "res_cosp"
	case TableLitSPOC:
		return "lit_spoc"
	case TableLitPOSC:
		return "lit_posc"
	case TableLitOSPC:
		return "lit_ospc"
	case TableLitCSPO:
		return "lit_cspo"
	case TableLitCPOS:
		return "lit_cpos"
	case TableLitCOSP:
		return "lit_cosp"
	case TableContexts:
		return "contexts"
	case TableNamespaces:
		return "ns_prefix"
	case TableNamespaceURIs:
		return "ns_uri"
	case TableDroppedContexts:
		return "dropped_contexts"
	default:
		return "unknown"
	}
}

// TablePrefix returns a byte prefix for a table to namespace keys
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// PrefixKey adds a table prefix to a key
func PrefixKey(table Table, key []byte) []byte {
	prefix := TablePrefix(table)
	result := make([]byte, len(prefix)+len(key))
	copy(result, prefix)
	copy(result[len(prefix):], key)
	return result
}
