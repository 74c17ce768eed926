package store

import (
	"context"
	"hash/fnv"
	"sync"

	"parley/pkg/apperr"
)

// Store wraps the active Backend with taxonomy error mapping, operation
// metrics, and single-process atomic primitives (Swap, PutIfAbsent) built
// on striped locks. Exactly one Store exists per process; it is created at
// startup and injected into the registries.
type Store struct {
	backend Backend
	locks   [64]sync.Mutex
}

func New(b Backend) *Store {
	return &Store{backend: b}
}

// BackendName reports which backend is active, for logs and the state
// file. Core components never branch on it.
func (s *Store) BackendName() string { return s.backend.Name() }

func (s *Store) Close() error { return s.backend.Close() }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	obsOp("get")
	v, ok, err := s.backend.Get(key)
	if err != nil {
		obsErr("get")
		return nil, false, apperr.Unavailable("store get failed", err)
	}
	return v, ok, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obsOp("put")
	if err := s.backend.Set(key, value); err != nil {
		obsErr("put")
		return apperr.Unavailable("store put failed", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obsOp("delete")
	if err := s.backend.Delete(key); err != nil {
		obsErr("delete")
		return apperr.Unavailable("store delete failed", err)
	}
	return nil
}

// Apply commits the batch atomically: either every op lands or none does.
func (s *Store) Apply(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	obsOp("batch")
	if err := s.backend.Apply(ops); err != nil {
		obsErr("batch")
		return apperr.Unavailable("store batch failed", err)
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, opts ScanOptions) ([]KV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obsOp("scan")
	kvs, err := s.backend.Scan(opts)
	if err != nil {
		obsErr("scan")
		return nil, apperr.Unavailable("store scan failed", err)
	}
	return kvs, nil
}

// PutIfAbsent writes value under key unless the key already exists, a
// single-key uniqueness guard: the loser of a concurrent write race
// observes created=false and the winner's value. Multi-key creation paths
// use WithLock instead so all their keys land in one batch.
func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) (existing []byte, created bool, err error) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()
	cur, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return cur, false, nil
	}
	if err := s.Put(ctx, key, value); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// Swap performs an atomic read-modify-write on a single key. fn receives
// the current value (nil, found=false when absent) and returns the
// replacement, or an error to abort; a state-machine transition whose
// guard fails returns INVALID_STATE here and nothing is written. extra ops
// returned by fn are committed in the same batch as the key itself.
func (s *Store) Swap(ctx context.Context, key string, fn func(cur []byte, found bool) (next []byte, extra []Op, err error)) ([]byte, error) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()
	cur, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	next, extra, err := fn(cur, ok)
	if err != nil {
		return nil, err
	}
	ops := append([]Op{{Key: key, Value: next}}, extra...)
	if err := s.Apply(ctx, ops); err != nil {
		return nil, err
	}
	return next, nil
}

// WithLock serializes multi-key read-modify-write sequences that share a
// logical owner (e.g. appends to one conversation) so batch contents are
// derived from a consistent read.
func (s *Store) WithLock(name string, fn func() error) error {
	mu := s.lockFor(name)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func (s *Store) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}
