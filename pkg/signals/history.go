package signals

import (
	"slices"
	"sync"

	"github.com/vango-dev/stackkit/pkg/reactive"
)

// History records every write to a signal and can step back and forward
// through the recorded values.
//
// The recorded list always ends with the newest value. Offset counts how far
// the current value sits from that end: 0 means the newest value is current.
// Writing while Offset is above zero drops the values ahead of the current one.
//
// Back, Forward and SetHistory write through the whole signal, so layers
// wrapped around the history see those writes, but they are not recorded.
type History[T any] struct {
	*Signal[T]
	w Wired[T]

	list   *reactive.Signal[[]T]
	offset *reactive.Signal[int]

	mu       sync.Mutex
	ignoring int
	batching int
	dirty    bool
}

// NewHistory creates a history signal.
func NewHistory[T any](initial T) *History[T] {
	return WrapHistory(New(initial))
}

// WrapHistory starts recording writes to s. The current value is the first
// entry.
func WrapHistory[T any](s *Signal[T]) *History[T] {
	return ExtendWithSetter(s, "history",
		func(w Wired[T]) *History[T] {
			never := func(a, b []T) bool { return false }
			return &History[T]{
				Signal: s,
				w:      w,
				list:   reactive.NewSignal([]T{w.Peek()}).WithEquals(never),
				offset: reactive.NewSignal(0),
			}
		},
		func(prev Wired[T], h *History[T]) func(T) T {
			return func(v T) T {
				out := prev.Set(v)
				h.mu.Lock()
				switch {
				case h.ignoring > 0:
					h.mu.Unlock()
				case h.batching > 0:
					h.dirty = true
					h.mu.Unlock()
				default:
					h.mu.Unlock()
					h.record(prev.Peek())
				}
				return out
			}
		},
	)
}

func (h *History[T]) record(v T) {
	list := h.list.Peek()
	if off := h.offset.Peek(); off > 0 {
		list = list[:len(list)-off]
	}
	next := append(slices.Clone(list), v)
	reactive.Batch(func() {
		h.list.Set(next)
		h.offset.Set(0)
	})
}

// ignore runs fn with recording switched off.
func (h *History[T]) ignore(fn func()) {
	h.mu.Lock()
	h.ignoring++
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.ignoring--
		h.mu.Unlock()
	}()
	fn()
}

// History returns the recorded values up to and including the current one.
func (h *History[T]) History() []T {
	list, off := h.list.Get(), h.offset.Get()
	return slices.Clone(list[:len(list)-off])
}

// Past returns the recorded values before the current one.
func (h *History[T]) Past() []T {
	list, off := h.list.Get(), h.offset.Get()
	return slices.Clone(list[:len(list)-off-1])
}

// ForwardHistory returns the values Forward would restore, oldest first.
func (h *History[T]) ForwardHistory() []T {
	list, off := h.list.Get(), h.offset.Get()
	return slices.Clone(list[len(list)-off:])
}

// Offset returns how many steps the current value is behind the newest one.
func (h *History[T]) Offset() int {
	return h.offset.Get()
}

// CanBack reports whether Back would succeed.
func (h *History[T]) CanBack() bool {
	return h.offset.Get() < len(h.list.Get())-1
}

// CanForward reports whether Forward would succeed.
func (h *History[T]) CanForward() bool {
	return h.offset.Get() > 0
}

// Back restores the previous value. It returns false at the oldest entry.
func (h *History[T]) Back() bool {
	list, off := h.list.Peek(), h.offset.Peek()
	if off >= len(list)-1 {
		return false
	}
	h.step(list[len(list)-2-off], off+1)
	return true
}

// Forward restores the next value. It returns false at the newest entry.
func (h *History[T]) Forward() bool {
	list, off := h.list.Peek(), h.offset.Peek()
	if off == 0 {
		return false
	}
	h.step(list[len(list)-off], off-1)
	return true
}

func (h *History[T]) step(v T, off int) {
	reactive.Batch(func() {
		h.offset.Set(off)
		h.ignore(func() { h.w.Set(v) })
	})
}

// SetHistory replaces the recorded list and makes its last element current.
// An empty list is ignored.
func (h *History[T]) SetHistory(list []T) {
	if len(list) == 0 {
		return
	}
	next := slices.Clone(list)
	reactive.Batch(func() {
		h.list.Set(next)
		h.offset.Set(0)
		h.ignore(func() { h.w.Set(next[len(next)-1]) })
	})
}

// Clear keeps only the current value and returns the list as it was before,
// forward entries included.
func (h *History[T]) Clear() []T {
	old := slices.Clone(h.list.Peek())
	h.reseed()
	return old
}

// Batch runs fn and records the value it leaves behind as a single entry.
// Nothing is recorded when fn does not write.
func (h *History[T]) Batch(fn func()) {
	h.mu.Lock()
	h.batching++
	h.mu.Unlock()

	reactive.Batch(func() {
		defer func() {
			h.mu.Lock()
			h.batching--
			commit := h.batching == 0 && h.dirty
			if commit {
				h.dirty = false
			}
			h.mu.Unlock()
			if commit {
				h.record(h.w.Peek())
			}
		}()
		fn()
	})
}

// Ignore runs fn without recording its writes.
func (h *History[T]) Ignore(fn func()) {
	h.ignore(fn)
}

func (h *History[T]) reseed() {
	cur := h.w.Peek()
	reactive.Batch(func() {
		h.list.Set([]T{cur})
		h.offset.Set(0)
	})
}
