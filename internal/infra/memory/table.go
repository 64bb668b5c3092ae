// Package memory provides in-process repositories backed by ordered maps
// keyed by id. They back the test suites and the DATA_BACKEND=memory mode.
package memory

import (
	"sync"
)

// table is an insertion-ordered map. Values are stored and returned by
// value, so callers never alias stored state.
type table[T any] struct {
	mu    sync.RWMutex
	keys  []string
	items map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[id]; !ok {
		t.keys = append(t.keys, id)
	}
	t.items[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.items[id]
	return v, ok
}

// update applies fn to the stored value in place. It reports false when id
// is unknown.
func (t *table[T]) update(id string, fn func(*T)) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	fn(&v)
	t.items[id] = v
	return v, true
}

// filter returns matching values in insertion order.
func (t *table[T]) filter(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0)
	for _, k := range t.keys {
		if v := t.items[k]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// find returns the first match in insertion order.
func (t *table[T]) find(match func(T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, k := range t.keys {
		if v := t.items[k]; match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}
