package reactive

import (
	"sync"
	"sync/atomic"
)

// Owner is a disposal scope. Child scopes, effects and cleanups registered on
// it are torn down, exactly once, when it is disposed.
type Owner struct {
	id     uint64
	parent *Owner

	mu       sync.Mutex
	children []*Owner
	effects  []*Effect
	cleanups []func()
	queued   []*Effect

	valuesMu sync.RWMutex
	values   map[any]any

	disposed atomic.Bool
}

// NewOwner creates a scope. A nil parent makes a root scope.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{id: nextID(), parent: parent}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, o)
		parent.mu.Unlock()
	}
	return o
}

// ID returns the scope's identifier.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the enclosing scope, nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed reports whether Dispose has run.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

// OnCleanup registers fn to run on disposal. On an already disposed scope fn
// runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}
	o.mu.Lock()
	o.cleanups = append(o.cleanups, fn)
	o.mu.Unlock()
}

// Run executes fn with o as the current owner.
func (o *Owner) Run(fn func()) {
	WithOwner(o, fn)
}

func (o *Owner) addEffect(e *Effect) {
	if o.disposed.Load() {
		e.disposed.Store(true)
		return
	}
	o.mu.Lock()
	o.effects = append(o.effects, e)
	o.mu.Unlock()
}

func (o *Owner) schedule(e *Effect) {
	if o.disposed.Load() {
		return
	}
	o.mu.Lock()
	o.queued = append(o.queued, e)
	o.mu.Unlock()
}

// RunPendingEffects re-runs queued effects of o and its descendants.
// Effects queued while flushing run in the same call.
func (o *Owner) RunPendingEffects() {
	for o.runQueued() {
	}
}

func (o *Owner) runQueued() bool {
	if o.disposed.Load() {
		return false
	}

	o.mu.Lock()
	queued := o.queued
	o.queued = nil
	children := append([]*Owner(nil), o.children...)
	o.mu.Unlock()

	ran := false
	for _, e := range queued {
		if e.pending.Load() {
			e.run()
			ran = true
		}
	}
	for _, c := range children {
		if c.runQueued() {
			ran = true
		}
	}
	return ran
}

// HasPendingEffects reports whether o or a descendant has queued effects.
func (o *Owner) HasPendingEffects() bool {
	if o.disposed.Load() {
		return false
	}
	o.mu.Lock()
	pending := len(o.queued) > 0
	children := append([]*Owner(nil), o.children...)
	o.mu.Unlock()

	if pending {
		return true
	}
	for _, c := range children {
		if c.HasPendingEffects() {
			return true
		}
	}
	return false
}

// Dispose tears the scope down: children last-created first, then effects,
// then cleanups in reverse registration order. Later calls are no-ops.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}
	if p := o.parent; p != nil {
		p.removeChild(o)
	}

	o.mu.Lock()
	children := o.children
	effects := o.effects
	cleanups := o.cleanups
	o.children, o.effects, o.cleanups, o.queued = nil, nil, nil, nil
	o.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}
	for _, e := range effects {
		e.Dispose()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (o *Owner) removeChild(child *Owner) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}
