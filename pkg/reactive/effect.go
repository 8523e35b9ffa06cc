package reactive

import (
	"sync"
	"sync/atomic"
)

// Effect re-runs a side effect whenever something it read changes. Re-runs
// are queued on the owning scope and happen in Owner.RunPendingEffects.
type Effect struct {
	id    uint64
	fn    func() Cleanup
	owner *Owner

	cleanup Cleanup

	depsMu sync.Mutex
	deps   []*source

	pending  atomic.Bool
	disposed atomic.Bool
}

// CreateEffect runs fn immediately under the current owner and registers it
// for re-runs. Without an owner the effect runs once and is never re-run.
func CreateEffect(fn func() Cleanup) *Effect {
	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: CurrentOwner(),
	}
	if e.owner != nil {
		e.owner.addEffect(e)
	}
	e.run()
	return e
}

// CreateComputed is CreateEffect for bodies that have nothing to clean up.
func CreateComputed(fn func()) *Effect {
	return CreateEffect(func() Cleanup {
		fn()
		return nil
	})
}

// OnCleanup registers fn on the current owner. Outside a scope it is dropped.
func OnCleanup(fn func()) {
	if o := CurrentOwner(); o != nil {
		o.OnCleanup(fn)
	}
}

// MarkDirty implements Listener.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() || e.owner == nil {
		return
	}
	if e.pending.CompareAndSwap(false, true) {
		e.owner.schedule(e)
	}
}

// ID implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// Dispose stops the effect and runs its last cleanup.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	e.untrackAll()
}

func (e *Effect) track(src *source) {
	e.depsMu.Lock()
	defer e.depsMu.Unlock()
	for _, d := range e.deps {
		if d == src {
			return
		}
	}
	e.deps = append(e.deps, src)
}

func (e *Effect) untrackAll() {
	e.depsMu.Lock()
	defer e.depsMu.Unlock()
	for _, d := range e.deps {
		d.unsubscribe(e)
	}
	e.deps = nil
}

func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}
	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	e.untrackAll()

	WithOwner(e.owner, func() {
		WithListener(e, func() {
			e.cleanup = e.fn()
		})
	})
}
