package signals

// Bound keeps a signal in step with an external read and write pair.
//
// With a read function the signal reads from it instead of its own value.
// With a write function every local write is forwarded to it before being
// applied locally. A read function without a write function makes the signal
// read-only: local writes are dropped.
type Bound[T any] struct {
	*Signal[T]
	w Wired[T]

	read  func() T
	write func(T)
}

// NewBound creates a signal holding initial and binds it.
func NewBound[T any](initial T, read func() T, write func(T)) *Bound[T] {
	return WrapBound(New(initial), read, write)
}

// WrapBound binds s to read and write. Either may be nil.
func WrapBound[T any](s *Signal[T], read func() T, write func(T)) *Bound[T] {
	b := ExtendWithSetter(s, "bound",
		func(w Wired[T]) *Bound[T] {
			return &Bound[T]{Signal: s, w: w, read: read, write: write}
		},
		func(prev Wired[T], b *Bound[T]) func(T) T {
			return func(v T) T {
				switch {
				case b.write != nil:
					b.write(v)
				case b.read != nil:
					return prev.Peek()
				}
				return prev.Set(v)
			}
		},
	)
	if read != nil {
		s.replaceRead(read)
		s.reseedLayers()
	}
	return b
}

// ReadOnly reports whether local writes are dropped.
func (b *Bound[T]) ReadOnly() bool {
	return b.read != nil && b.write == nil
}
