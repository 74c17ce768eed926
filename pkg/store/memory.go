package store

import (
	"sort"
	"sync"
)

// Memory is the volatile backend: an in-process ordered map used only when
// the durable backend is unreachable at process start. Data does not
// survive a restart; this is a documented degradation, not a bug. It is an
// explicitly owned instance with a defined lifecycle, never ambient
// package state.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	// keys mirrors the map in sorted order so Scan matches the durable
	// backend's iteration semantics exactly.
	keys []string
}

func OpenMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.keys = nil
	return nil
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(key)
	return nil
}

// Apply applies all ops under one lock acquisition; since in-memory writes
// cannot fail partway, the batch is trivially all-or-nothing.
func (m *Memory) Apply(ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Delete {
			m.deleteLocked(op.Key)
		} else {
			m.setLocked(op.Key, op.Value)
		}
	}
	return nil
}

func (m *Memory) Scan(opts ScanOptions) ([]KV, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo := sort.SearchStrings(m.keys, opts.Prefix)
	hi := len(m.keys)
	if end := prefixEnd(opts.Prefix); end != nil {
		hi = sort.SearchStrings(m.keys, string(end))
	}

	var out []KV
	if opts.Reverse {
		start := hi - 1
		if opts.Cursor != "" {
			// strictly before the cursor
			start = sort.SearchStrings(m.keys, opts.Cursor) - 1
			if start >= hi {
				start = hi - 1
			}
		}
		for i := start; i >= lo; i-- {
			out = append(out, m.kvAt(i))
			if opts.Limit > 0 && len(out) >= opts.Limit {
				break
			}
		}
	} else {
		start := lo
		if opts.Cursor != "" {
			// strictly after the cursor
			start = sort.SearchStrings(m.keys, opts.Cursor)
			if start < len(m.keys) && m.keys[start] == opts.Cursor {
				start++
			}
			if start < lo {
				start = lo
			}
		}
		for i := start; i < hi; i++ {
			out = append(out, m.kvAt(i))
			if opts.Limit > 0 && len(out) >= opts.Limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) kvAt(i int) KV {
	k := m.keys[i]
	return KV{Key: k, Value: append([]byte(nil), m.data[k]...)}
}

func (m *Memory) setLocked(key string, value []byte) {
	if _, exists := m.data[key]; !exists {
		i := sort.SearchStrings(m.keys, key)
		m.keys = append(m.keys, "")
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = key
	}
	m.data[key] = append([]byte(nil), value...)
}

func (m *Memory) deleteLocked(key string) {
	if _, exists := m.data[key]; !exists {
		return
	}
	delete(m.data, key)
	i := sort.SearchStrings(m.keys, key)
	if i < len(m.keys) && m.keys[i] == key {
		m.keys = append(m.keys[:i], m.keys[i+1:]...)
	}
}

// Len reports the number of stored keys; used by tests and the readiness
// probe in volatile mode.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}
