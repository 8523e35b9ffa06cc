package signals

import (
	"sync"

	"github.com/vango-dev/stackkit/pkg/reactive"
)

// cell holds the current read and write of a signal. Layers replace the
// functions in place, every handle to the signal resolves them per call.
type cell[T any] struct {
	mu     sync.RWMutex
	read   func() T
	peek   func() T
	write  func(T) T
	layers []layer
}

type layer struct {
	name string
	ext  any
}

func (c *cell[T]) funcs() (read, peek func() T, write func(T) T) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.read, c.peek, c.write
}

// Signal is a reactive value whose read and write can be extended.
type Signal[T any] struct {
	c *cell[T]
}

// New creates a signal backed by a fresh reactive.Signal.
func New[T any](initial T) *Signal[T] {
	return From(reactive.NewSignal(initial))
}

// From adapts an existing reactive signal.
func From[T any](s *reactive.Signal[T]) *Signal[T] {
	return &Signal[T]{c: &cell[T]{
		read: s.Get,
		peek: s.Peek,
		write: func(v T) T {
			s.Set(v)
			return v
		},
	}}
}

// Get returns the current value and tracks the read.
func (s *Signal[T]) Get() T {
	read, _, _ := s.c.funcs()
	return read()
}

// Peek returns the current value without tracking.
func (s *Signal[T]) Peek() T {
	_, peek, _ := s.c.funcs()
	return peek()
}

// Set writes v through every layer and returns the value the outermost
// layer reports.
func (s *Signal[T]) Set(v T) T {
	return s.Wired().Set(v)
}

// Update writes fn(current).
func (s *Signal[T]) Update(fn func(T) T) T {
	return s.Wired().Update(fn)
}

// Base returns the signal itself. Kinds embed *Signal, so Base is how any
// kind is handed to another Wrap function.
func (s *Signal[T]) Base() *Signal[T] {
	return s
}

// Wired returns a late-bound view of the signal.
func (s *Signal[T]) Wired() Wired[T] {
	return Wired[T]{c: s.c}
}

// Accessor returns the read half as a plain function.
func (s *Signal[T]) Accessor() func() T {
	return s.Get
}

// Setter returns the write half as a plain function.
func (s *Signal[T]) Setter() func(T) T {
	return s.Set
}

// Layers lists the names of the extensions applied so far, innermost first.
func (s *Signal[T]) Layers() []string {
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()
	names := make([]string, len(s.c.layers))
	for i, l := range s.c.layers {
		names[i] = l.name
	}
	return names
}

// Wired forwards to the signal's current read and write at call time.
// A Wired obtained as the "previous" view of a setter override writes to the
// layer below the override instead.
type Wired[T any] struct {
	c     *cell[T]
	write func(T) T
}

// Get reads with tracking.
func (w Wired[T]) Get() T {
	read, _, _ := w.c.funcs()
	return read()
}

// Peek reads without tracking.
func (w Wired[T]) Peek() T {
	_, peek, _ := w.c.funcs()
	return peek()
}

// Set writes v. The write and anything the layers read while handling it
// are untracked.
func (w Wired[T]) Set(v T) T {
	write := w.write
	if write == nil {
		_, _, write = w.c.funcs()
	}
	var out T
	reactive.Untracked(func() { out = write(v) })
	return out
}

// Update writes fn applied to the untracked current value.
func (w Wired[T]) Update(fn func(T) T) T {
	return w.Set(fn(w.Peek()))
}

// Extend registers an extension built from a wired view of s. The extension
// value is returned and can be found later with Lookup.
func Extend[T, X any](s *Signal[T], name string, build func(w Wired[T]) X) X {
	ext := build(s.Wired())
	s.c.mu.Lock()
	s.c.layers = append(s.c.layers, layer{name: name, ext: ext})
	s.c.mu.Unlock()
	return ext
}

// ExtendWithSetter is Extend for extensions that must see every write. After
// the extension is built, setter receives a view whose Set goes to the write
// being replaced, and returns the new base write.
func ExtendWithSetter[T, X any](s *Signal[T], name string, build func(w Wired[T]) X, setter func(prev Wired[T], ext X) func(T) T) X {
	ext := build(s.Wired())

	_, _, prevWrite := s.c.funcs()
	next := setter(Wired[T]{c: s.c, write: prevWrite}, ext)

	s.c.mu.Lock()
	s.c.write = next
	s.c.layers = append(s.c.layers, layer{name: name, ext: ext})
	s.c.mu.Unlock()
	return ext
}

// replaceRead swaps the read side, keeping peek untracked.
func (s *Signal[T]) replaceRead(read func() T) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.read = read
	s.c.peek = func() T { return reactive.UntrackedValue(read) }
}

// Lookup returns the most recently applied extension of type X.
//
//	arr, ok := signals.Lookup[*signals.Array[int]](hist.Base())
func Lookup[X, T any](s *Signal[T]) (X, bool) {
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()
	for i := len(s.c.layers) - 1; i >= 0; i-- {
		if x, ok := s.c.layers[i].ext.(X); ok {
			return x, true
		}
	}
	var zero X
	return zero, false
}

// reseeder is implemented by layers that keep derived bookkeeping about the
// value (history) and must restart it when the read side is replaced.
type reseeder interface {
	reseed()
}

func (s *Signal[T]) reseedLayers() {
	s.c.mu.RLock()
	layers := append([]layer(nil), s.c.layers...)
	s.c.mu.RUnlock()
	for _, l := range layers {
		if r, ok := l.ext.(reseeder); ok {
			r.reseed()
		}
	}
}
