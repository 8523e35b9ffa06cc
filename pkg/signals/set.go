package signals

import "maps"

// Set adds membership operations to a signal of map[T]struct{}.
type Set[T comparable] struct {
	*Signal[map[T]struct{}]
	w Wired[map[T]struct{}]
}

// NewSet creates a set signal holding items.
func NewSet[T comparable](items ...T) *Set[T] {
	m := make(map[T]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return WrapSet(New(m))
}

// WrapSet extends s with set operations.
func WrapSet[T comparable](s *Signal[map[T]struct{}]) *Set[T] {
	return Extend(s, "set", func(w Wired[map[T]struct{}]) *Set[T] {
		return &Set[T]{Signal: s, w: w}
	})
}

// Has reports tracked membership.
func (s *Set[T]) Has(item T) bool {
	_, ok := s.Get()[item]
	return ok
}

// Add inserts item.
func (s *Set[T]) Add(item T) map[T]struct{} {
	next := maps.Clone(s.w.Peek())
	if next == nil {
		next = map[T]struct{}{}
	}
	next[item] = struct{}{}
	return s.w.Set(next)
}

// Delete removes item and reports whether it was present.
func (s *Set[T]) Delete(item T) bool {
	cur := s.w.Peek()
	if _, ok := cur[item]; !ok {
		return false
	}
	next := maps.Clone(cur)
	delete(next, item)
	s.w.Set(next)
	return true
}

// Clear empties the set without copying.
func (s *Set[T]) Clear() {
	s.w.Set(map[T]struct{}{})
}
