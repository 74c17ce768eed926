package store

import (
	"errors"

	"github.com/cockroachdb/pebble"

	"parley/pkg/logger"
)

// Pebble is the durable backend. Keys are written with Sync so an
// acknowledged write survives a crash.
type Pebble struct {
	db   *pebble.DB
	path string
}

// OpenPebble opens (or creates) a Pebble database at the given path.
func OpenPebble(path string) (*Pebble, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &Pebble{db: db, path: path}, nil
}

func (p *Pebble) Name() string { return "pebble" }

func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	logger.Info("pebble_closed")
	return err
}

func (p *Pebble) Get(key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, true, nil
}

func (p *Pebble) Set(key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *Pebble) Delete(key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}

// Apply commits all ops as a single synced pebble batch.
func (p *Pebble) Apply(ops []Op) error {
	b := p.db.NewBatch()
	defer func() { _ = b.Close() }()
	for _, op := range ops {
		if op.Delete {
			if err := b.Delete([]byte(op.Key), nil); err != nil {
				return err
			}
			continue
		}
		if err := b.Set([]byte(op.Key), op.Value, nil); err != nil {
			return err
		}
	}
	return p.db.Apply(b, pebble.Sync)
}

func (p *Pebble) Scan(opts ScanOptions) ([]KV, error) {
	lower := []byte(opts.Prefix)
	upper := prefixEnd(opts.Prefix)
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer func() { _ = iter.Close() }()

	var out []KV
	collect := func() {
		k := append([]byte(nil), iter.Key()...)
		v := append([]byte(nil), iter.Value()...)
		out = append(out, KV{Key: string(k), Value: v})
	}

	if opts.Reverse {
		ok := false
		if opts.Cursor != "" {
			ok = iter.SeekLT([]byte(opts.Cursor))
		} else {
			ok = iter.Last()
		}
		for ; ok; ok = iter.Prev() {
			collect()
			if opts.Limit > 0 && len(out) >= opts.Limit {
				break
			}
		}
	} else {
		ok := iter.First()
		if opts.Cursor != "" {
			ok = iter.SeekGE([]byte(opts.Cursor))
			// cursor is exclusive
			if ok && string(iter.Key()) == opts.Cursor {
				ok = iter.Next()
			}
		}
		for ; ok; ok = iter.Next() {
			collect()
			if opts.Limit > 0 && len(out) >= opts.Limit {
				break
			}
		}
	}
	return out, iter.Error()
}

// prefixEnd returns the smallest key greater than every key with the
// given prefix, for use as an exclusive upper bound.
func prefixEnd(prefix string) []byte {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			end := append([]byte(nil), b[:i+1]...)
			end[i]++
			return end
		}
	}
	return nil
}
