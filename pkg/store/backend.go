package store

// Op is one entry of an atomic batch.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// KV is a key/value pair returned by Scan.
type KV struct {
	Key   string
	Value []byte
}

// ScanOptions describes a prefix scan. When Reverse is false results come
// back in ascending key order starting strictly after Cursor (or at the
// prefix start when Cursor is empty); when Reverse is true results come
// back descending starting strictly before Cursor (or at the prefix end).
// Limit of zero means unbounded.
type ScanOptions struct {
	Prefix  string
	Reverse bool
	Limit   int
	Cursor  string
}

// Backend is the uniform key/value and ordered-scan contract both the
// durable and the volatile store satisfy. Apply is all-or-nothing. The
// selection between backends happens once at startup; nothing above this
// interface branches on which one is active.
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Apply(ops []Op) error
	Scan(opts ScanOptions) ([]KV, error)
	Name() string
	Close() error
}
