package signals

// Resettable can restore the value the signal held when it was wrapped.
type Resettable[T any] struct {
	*Signal[T]
	w        Wired[T]
	snapshot T
}

// NewResettable creates a resettable signal.
func NewResettable[T any](initial T) *Resettable[T] {
	return WrapResettable(New(initial))
}

// WrapResettable snapshots the current value of s.
func WrapResettable[T any](s *Signal[T]) *Resettable[T] {
	return Extend(s, "resettable", func(w Wired[T]) *Resettable[T] {
		return &Resettable[T]{Signal: s, w: w, snapshot: deepClone(w.Peek())}
	})
}

// Reset writes a fresh copy of the snapshot and returns it.
func (r *Resettable[T]) Reset() T {
	return r.w.Set(deepClone(r.snapshot))
}

// Initial returns a copy of the snapshot.
func (r *Resettable[T]) Initial() T {
	return deepClone(r.snapshot)
}
