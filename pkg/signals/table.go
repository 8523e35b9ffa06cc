package signals

import (
	"maps"
	"slices"

	"github.com/vango-dev/stackkit/pkg/reactive"
)

// Row is one record of a Table.
type Row[V any] map[string]V

// Table matches rows of a signal of []Row[V] by partial equality: a row
// matches when it holds every key of the partial with an equal value.
// Lookups that match nothing return false and write nothing.
type Table[V any] struct {
	*Signal[[]Row[V]]
	w Wired[[]Row[V]]
}

// NewTable creates a table signal.
func NewTable[V any](rows []Row[V]) *Table[V] {
	return WrapTable(New(rows))
}

// WrapTable extends s with record operations.
func WrapTable[V any](s *Signal[[]Row[V]]) *Table[V] {
	return Extend(s, "table", func(w Wired[[]Row[V]]) *Table[V] {
		return &Table[V]{Signal: s, w: w}
	})
}

func matches[V any](row, partial Row[V]) bool {
	for k, want := range partial {
		got, ok := row[k]
		if !ok || !reactive.Equal(got, want) {
			return false
		}
	}
	return true
}

func (t *Table[V]) indexes(rows []Row[V], partial Row[V], all bool) []int {
	var out []int
	for i, row := range rows {
		if matches(row, partial) {
			out = append(out, i)
			if !all {
				break
			}
		}
	}
	return out
}

// FindBy returns the first matching row.
func (t *Table[V]) FindBy(partial Row[V]) (Row[V], bool) {
	rows := t.Get()
	if idx := t.indexes(rows, partial, false); len(idx) > 0 {
		return rows[idx[0]], true
	}
	return nil, false
}

// FindManyBy returns every matching row.
func (t *Table[V]) FindManyBy(partial Row[V]) []Row[V] {
	rows := t.Get()
	var out []Row[V]
	for _, i := range t.indexes(rows, partial, true) {
		out = append(out, rows[i])
	}
	return out
}

// FindIndexBy returns the index of the first matching row, or -1.
func (t *Table[V]) FindIndexBy(partial Row[V]) int {
	if idx := t.indexes(t.Get(), partial, false); len(idx) > 0 {
		return idx[0]
	}
	return -1
}

// By replaces the first matching row with row.
func (t *Table[V]) By(partial, row Row[V]) (Row[V], bool) {
	n := t.replace(partial, false, func(Row[V]) Row[V] { return maps.Clone(row) })
	if n == 0 {
		return nil, false
	}
	return row, true
}

// ManyBy replaces every matching row with row and returns how many matched.
func (t *Table[V]) ManyBy(partial, row Row[V]) int {
	return t.replace(partial, true, func(Row[V]) Row[V] { return maps.Clone(row) })
}

// UpdateBy merges update into the first matching row and returns the result.
func (t *Table[V]) UpdateBy(partial, update Row[V]) (Row[V], bool) {
	var merged Row[V]
	n := t.replace(partial, false, func(old Row[V]) Row[V] {
		merged = mergeRow(old, update)
		return merged
	})
	return merged, n > 0
}

// UpdateManyBy merges update into every matching row and returns how many
// matched.
func (t *Table[V]) UpdateManyBy(partial, update Row[V]) int {
	return t.replace(partial, true, func(old Row[V]) Row[V] { return mergeRow(old, update) })
}

// Update merges partial into the row at index. Negative indices count from
// the end and return an *IndexOutOfBoundsError before the first row. An
// index past the end grows the table with empty rows, as Array.At does.
func (t *Table[V]) Update(index int, partial Row[V]) (Row[V], error) {
	rows := t.w.Peek()
	i, err := resolveIndex(index, len(rows))
	if err != nil {
		return nil, err
	}
	next := make([]Row[V], max(len(rows), i+1))
	copy(next, rows)
	next[i] = mergeRow(next[i], partial)
	t.w.Set(next)
	return next[i], nil
}

func (t *Table[V]) replace(partial Row[V], all bool, fn func(Row[V]) Row[V]) int {
	rows := t.w.Peek()
	idx := t.indexes(rows, partial, all)
	if len(idx) == 0 {
		return 0
	}
	next := slices.Clone(rows)
	for _, i := range idx {
		next[i] = fn(rows[i])
	}
	t.w.Set(next)
	return len(idx)
}

func mergeRow[V any](row, partial Row[V]) Row[V] {
	next := maps.Clone(row)
	if next == nil {
		next = make(Row[V], len(partial))
	}
	maps.Copy(next, partial)
	return next
}
