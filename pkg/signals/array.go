package signals

import "slices"

// Array adds the mutating slice operations to a signal of []T. Each
// operation copies the current slice, mutates the copy and commits it, so
// previously read slices are never modified.
type Array[T any] struct {
	*Signal[[]T]
	w Wired[[]T]
}

// NewArray creates an array signal.
func NewArray[T any](initial []T) *Array[T] {
	return WrapArray(New(initial))
}

// WrapArray extends s with array operations.
func WrapArray[T any](s *Signal[[]T]) *Array[T] {
	return Extend(s, "array", func(w Wired[[]T]) *Array[T] {
		return &Array[T]{Signal: s, w: w}
	})
}

func (a *Array[T]) copy() []T {
	return slices.Clone(a.w.Peek())
}

// Len returns the tracked length.
func (a *Array[T]) Len() int {
	return len(a.Get())
}

// Push appends items and returns the new length.
func (a *Array[T]) Push(items ...T) int {
	next := append(a.copy(), items...)
	a.w.Set(next)
	return len(next)
}

// Pop removes and returns the last item.
func (a *Array[T]) Pop() (T, bool) {
	next := a.copy()
	var zero T
	if len(next) == 0 {
		a.w.Set(next)
		return zero, false
	}
	last := next[len(next)-1]
	a.w.Set(next[:len(next)-1])
	return last, true
}

// Shift removes and returns the first item.
func (a *Array[T]) Shift() (T, bool) {
	next := a.copy()
	var zero T
	if len(next) == 0 {
		a.w.Set(next)
		return zero, false
	}
	first := next[0]
	a.w.Set(next[1:])
	return first, true
}

// Unshift prepends items and returns the new length.
func (a *Array[T]) Unshift(items ...T) int {
	next := append(slices.Clone(items), a.w.Peek()...)
	a.w.Set(next)
	return len(next)
}

// Splice removes deleteCount items at start, inserts items there and returns
// the removed items. A negative start counts from the end; both arguments
// are clamped to the slice.
func (a *Array[T]) Splice(start, deleteCount int, items ...T) []T {
	cur := a.copy()
	start = relative(start, len(cur))
	deleteCount = min(max(deleteCount, 0), len(cur)-start)

	removed := slices.Clone(cur[start : start+deleteCount])
	next := slices.Concat(cur[:start], items, cur[start+deleteCount:])
	a.w.Set(next)
	return removed
}

// Sort stably sorts with cmp and returns the sorted slice.
func (a *Array[T]) Sort(cmp func(a, b T) int) []T {
	next := a.copy()
	slices.SortStableFunc(next, cmp)
	return a.w.Set(next)
}

// Reverse reverses the order and returns the result.
func (a *Array[T]) Reverse() []T {
	next := a.copy()
	slices.Reverse(next)
	return a.w.Set(next)
}

// Fill sets every item to v.
func (a *Array[T]) Fill(v T) []T {
	return a.FillRange(v, 0, len(a.w.Peek()))
}

// FillRange sets items in [start, end) to v. Negative bounds count from the end.
func (a *Array[T]) FillRange(v T, start, end int) []T {
	next := a.copy()
	start, end = relative(start, len(next)), relative(end, len(next))
	for i := start; i < end; i++ {
		next[i] = v
	}
	return a.w.Set(next)
}

// CopyWithin copies the items in [start, end) to position target, without
// changing the length. Negative arguments count from the end.
func (a *Array[T]) CopyWithin(target, start, end int) []T {
	next := a.copy()
	n := len(next)
	target, start, end = relative(target, n), relative(start, n), relative(end, n)
	if end > start && target < n {
		count := min(end-start, n-target)
		copy(next[target:target+count], next[start:start+count])
	}
	return a.w.Set(next)
}

// At sets the item at index to v and returns v. Negative indices count from
// the end; an index past the end grows the slice with zero values. An index
// before the start returns an *IndexOutOfBoundsError and writes nothing.
func (a *Array[T]) At(index int, v T) (T, error) {
	cur := a.w.Peek()
	i, err := resolveIndex(index, len(cur))
	if err != nil {
		var zero T
		return zero, err
	}

	next := make([]T, max(len(cur), i+1))
	copy(next, cur)
	next[i] = v
	a.w.Set(next)
	return v, nil
}

// Find replaces the first item matching pred with v and returns the stored
// item. Nothing is written when no item matches.
func (a *Array[T]) Find(pred func(T) bool, v T) (T, bool) {
	cur := a.w.Peek()
	i := slices.IndexFunc(cur, pred)
	if i == -1 {
		var zero T
		return zero, false
	}
	if _, err := a.At(i, v); err != nil {
		var zero T
		return zero, false
	}
	return a.w.Peek()[i], true
}

// relative clamps a JavaScript-style relative index into [0, n].
func relative(i, n int) int {
	if i < 0 {
		return max(n+i, 0)
	}
	return min(i, n)
}
