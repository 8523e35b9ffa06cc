package reactive

import (
	"runtime"
	"sync"
)

// trackingState is the per-goroutine reactive state.
type trackingState struct {
	owner    *Owner
	listener Listener

	batchDepth int
	pending    []Listener
}

var states sync.Map // goroutine id -> *trackingState

// goroutineID parses the current goroutine id out of the stack header
// ("goroutine 123 [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

func current() *trackingState {
	gid := goroutineID()
	if st, ok := states.Load(gid); ok {
		return st.(*trackingState)
	}
	st := &trackingState{}
	states.Store(gid, st)
	return st
}

func currentListener() Listener {
	return current().listener
}

func swapListener(l Listener) Listener {
	st := current()
	old := st.listener
	st.listener = l
	return old
}

// CurrentOwner returns the owner new effects and child scopes attach to,
// or nil outside any scope.
func CurrentOwner() *Owner {
	return current().owner
}

func swapOwner(o *Owner) *Owner {
	st := current()
	old := st.owner
	st.owner = o
	return old
}

// WithOwner runs fn with owner as the current owner.
func WithOwner(owner *Owner, fn func()) {
	old := swapOwner(owner)
	defer swapOwner(old)
	fn()
}

// WithListener runs fn with l collecting every tracked read.
func WithListener(l Listener, fn func()) {
	old := swapListener(l)
	defer swapListener(old)
	fn()
}

// Untracked runs fn without subscribing the active listener to anything fn
// reads.
func Untracked(fn func()) {
	old := swapListener(nil)
	defer swapListener(old)
	fn()
}

// UntrackedValue is Untracked for a computation that produces a value.
func UntrackedValue[T any](fn func() T) T {
	var v T
	Untracked(func() { v = fn() })
	return v
}

// ReleaseGoroutine drops the tracking state of the calling goroutine.
// Long-lived worker goroutines call it before exiting.
func ReleaseGoroutine() {
	states.Delete(goroutineID())
}
