package reactive

import (
	"sync"
	"sync/atomic"
)

// Memo is a lazily recomputed derived value. It is both a listener (of the
// values its computation reads) and a source (for whoever reads it).
type Memo[T any] struct {
	src     source
	compute func() T

	mu    sync.RWMutex
	value T
	equal func(T, T) bool

	valid     atomic.Bool
	computing atomic.Bool
	computed  bool

	depsMu sync.Mutex
	deps   []*source
}

// NewMemo creates a memo. Nothing runs until the first read.
func NewMemo[T any](compute func() T) *Memo[T] {
	return &Memo[T]{
		src:     source{id: nextID()},
		compute: compute,
	}
}

// WithEquals sets a custom equality used to decide whether a recomputation
// produced a new value. When it reports equal the previous value is kept,
// preserving its identity.
func (m *Memo[T]) WithEquals(fn func(T, T) bool) *Memo[T] {
	m.equal = fn
	return m
}

// Get returns the (possibly recomputed) value and tracks the read.
func (m *Memo[T]) Get() T {
	m.src.observe()
	return m.Peek()
}

// Peek returns the value without tracking. It still recomputes when stale.
func (m *Memo[T]) Peek() T {
	if !m.valid.Load() {
		m.recompute()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// MarkDirty implements Listener.
func (m *Memo[T]) MarkDirty() {
	if m.valid.CompareAndSwap(true, false) {
		m.src.notify()
	}
}

// ID implements Listener.
func (m *Memo[T]) ID() uint64 {
	return m.src.id
}

func (m *Memo[T]) track(src *source) {
	m.depsMu.Lock()
	defer m.depsMu.Unlock()
	for _, d := range m.deps {
		if d == src {
			return
		}
	}
	m.deps = append(m.deps, src)
}

func (m *Memo[T]) recompute() {
	// A memo reading itself would recurse forever; the inner read sees the
	// previous value instead.
	if m.computing.Swap(true) {
		return
	}
	defer m.computing.Store(false)

	m.depsMu.Lock()
	for _, d := range m.deps {
		d.unsubscribe(m)
	}
	m.deps = m.deps[:0]
	m.depsMu.Unlock()

	var next T
	WithListener(m, func() {
		next = m.compute()
	})

	m.mu.Lock()
	if !m.computed || m.equal == nil || !m.equal(m.value, next) {
		m.value = next
		m.computed = true
	}
	m.mu.Unlock()
	m.valid.Store(true)
}
