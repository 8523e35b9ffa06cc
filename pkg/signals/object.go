package signals

import "maps"

// Object adds shallow merge and key removal to a signal of map[K]V.
type Object[K comparable, V any] struct {
	*Signal[map[K]V]
	w Wired[map[K]V]
}

// NewObject creates an object signal.
func NewObject[K comparable, V any](initial map[K]V) *Object[K, V] {
	if initial == nil {
		initial = map[K]V{}
	}
	return WrapObject(New(initial))
}

// WrapObject extends s with object operations.
func WrapObject[K comparable, V any](s *Signal[map[K]V]) *Object[K, V] {
	return Extend(s, "object", func(w Wired[map[K]V]) *Object[K, V] {
		return &Object[K, V]{Signal: s, w: w}
	})
}

// Update merges partial over a copy of the current map and commits it.
func (o *Object[K, V]) Update(partial map[K]V) map[K]V {
	next := maps.Clone(o.w.Peek())
	if next == nil {
		next = make(map[K]V, len(partial))
	}
	maps.Copy(next, partial)
	return o.w.Set(next)
}

// UpdateFunc merges the partial fn derives from the current map.
func (o *Object[K, V]) UpdateFunc(fn func(current map[K]V) map[K]V) map[K]V {
	return o.Update(fn(o.w.Peek()))
}

// Delete removes key. A missing key leaves the map untouched.
func (o *Object[K, V]) Delete(key K) map[K]V {
	cur := o.w.Peek()
	if _, ok := cur[key]; !ok {
		return cur
	}
	next := maps.Clone(cur)
	delete(next, key)
	return o.w.Set(next)
}

// Value returns the tracked value stored under key.
func (o *Object[K, V]) Value(key K) (V, bool) {
	v, ok := o.Get()[key]
	return v, ok
}
