package signals

import (
	"iter"
	"slices"
)

// Grid adds cell access to a signal of [][]T.
type Grid[T any] struct {
	*Signal[[][]T]
	w Wired[[][]T]
}

// NewGrid creates a grid signal.
func NewGrid[T any](rows [][]T) *Grid[T] {
	return WrapGrid(New(rows))
}

// WrapGrid extends s with cell operations.
func WrapGrid[T any](s *Signal[[][]T]) *Grid[T] {
	return Extend(s, "grid", func(w Wired[[][]T]) *Grid[T] {
		return &Grid[T]{Signal: s, w: w}
	})
}

// Values yields every cell row by row. Each iteration reads the grid afresh.
func (g *Grid[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, row := range g.Get() {
			for _, v := range row {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// At returns the tracked value of one cell.
func (g *Grid[T]) At(row, col int) (T, bool) {
	rows := g.Get()
	if row < 0 || row >= len(rows) || col < 0 || col >= len(rows[row]) {
		var zero T
		return zero, false
	}
	return rows[row][col], true
}

// Cell replaces one cell. Only the outer slice and the touched row are
// copied. Coordinates outside the grid write nothing.
func (g *Grid[T]) Cell(row, col int, v T) (T, bool) {
	rows := g.w.Peek()
	if row < 0 || row >= len(rows) || col < 0 || col >= len(rows[row]) {
		var zero T
		return zero, false
	}
	next := slices.Clone(rows)
	next[row] = slices.Clone(rows[row])
	next[row][col] = v
	g.w.Set(next)
	return v, true
}

// UpdateCell writes fn applied to one cell.
func (g *Grid[T]) UpdateCell(row, col int, fn func(T) T) (T, bool) {
	rows := g.w.Peek()
	if row < 0 || row >= len(rows) || col < 0 || col >= len(rows[row]) {
		var zero T
		return zero, false
	}
	return g.Cell(row, col, fn(rows[row][col]))
}

// ObjectGrid is a grid whose cells are records.
type ObjectGrid[V any] struct {
	*Grid[Row[V]]
}

// NewObjectGrid creates a record grid signal.
func NewObjectGrid[V any](rows [][]Row[V]) *ObjectGrid[V] {
	return WrapObjectGrid(New(rows))
}

// WrapObjectGrid extends s with grid and record operations.
func WrapObjectGrid[V any](s *Signal[[][]Row[V]]) *ObjectGrid[V] {
	g := WrapGrid(s)
	return Extend(s, "object-grid", func(Wired[[][]Row[V]]) *ObjectGrid[V] {
		return &ObjectGrid[V]{Grid: g}
	})
}

// Update merges partial into one cell and returns the merged record.
func (g *ObjectGrid[V]) Update(row, col int, partial Row[V]) (Row[V], bool) {
	return g.UpdateCell(row, col, func(cur Row[V]) Row[V] { return mergeRow(cur, partial) })
}
