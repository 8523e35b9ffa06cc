package signals

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfBounds matches every *IndexOutOfBoundsError via errors.Is.
var ErrIndexOutOfBounds = errors.New("signals: index out of bounds")

// IndexOutOfBoundsError reports a positional write that cannot be mapped onto
// the collection.
type IndexOutOfBoundsError struct {
	// Index is the index the caller passed.
	Index int
	// Resolved is Index after counting negative values from the end.
	Resolved int
	// Length is the collection length at the time of the write.
	Length int
}

func (e *IndexOutOfBoundsError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("signals: negative index %d points to unassignable index %d in collection with length %d (valid negative range is -%d..-1)",
			e.Index, e.Resolved, e.Length, e.Length)
	}
	return fmt.Sprintf("signals: index %d is outside collection with length %d (valid range is 0..%d)",
		e.Index, e.Length, e.Length-1)
}

// Is makes errors.Is(err, ErrIndexOutOfBounds) hold.
func (e *IndexOutOfBoundsError) Is(target error) bool {
	return target == ErrIndexOutOfBounds
}

// resolveIndex maps a possibly negative index onto 0..length. Only indices
// before the start fail.
func resolveIndex(index, length int) (int, error) {
	i := index
	if i < 0 {
		i = length + index
	}
	if i < 0 {
		return 0, &IndexOutOfBoundsError{Index: index, Resolved: i, Length: length}
	}
	return i, nil
}
