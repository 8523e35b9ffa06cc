package reactive

import "sync/atomic"

var idCounter uint64

// nextID hands out identifiers for signals, memos, effects and owners.
// Identifiers are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// Listener is notified when one of the values it read has changed.
type Listener interface {
	// MarkDirty is called once per change. Memos invalidate, effects queue
	// themselves on their owner.
	MarkDirty()

	// ID is used to deduplicate notifications within a batch.
	ID() uint64
}

// Cleanup is returned by an effect and runs before the next run and on disposal.
type Cleanup func()
