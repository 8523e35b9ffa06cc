package overlay

import (
	"maps"
	"time"

	"github.com/vango-dev/stackkit/pkg/reactive"
)

// instanceScope is the mounted state of one entry.
type instanceScope struct {
	s      *Stack
	id     int
	key    string
	comp   *Component
	layout *Layout

	// owner is the instance scope. The component runs in a child of it so
	// the layout can outlive a failing component render.
	owner *reactive.Owner
}

func (i *instanceScope) live() bool {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	rec, ok := i.s.records[i.id]
	return ok && rec.scope == i
}

// stale logs op against a removed instance and reports whether it was.
func (i *instanceScope) stale(op string) bool {
	if i.live() {
		return false
	}
	i.s.logger.Warn("overlay operation after removal ignored", "op", op, "key", i.key, "id", i.id)
	return true
}

func (i *instanceScope) props() Props {
	e, _ := i.s.entry(i.id, true)
	return e.Props
}

func (i *instanceScope) computed(op, path string, fn func() Props) {
	if i.stale(op) {
		return
	}
	i.owner.Run(func() {
		reactive.CreateComputed(func() {
			v := fn()
			i.s.state.Path(idKey(i.id), path).Set(v)
		})
	})
}

func refusedOpen() OpenResult {
	return OpenResult{
		Result:        resolvedFuture[any](nil),
		ComponentLoad: resolvedFuture(struct{}{}),
		Close:         func(...any) {},
	}
}

// InstanceHandle is an overlay's handle to its own entry. Calls made after
// the entry was removed log a warning and do nothing.
type InstanceHandle struct {
	inst  *instanceScope
	owner *reactive.Owner
}

// Owner returns the scope the handle was obtained for.
func (h *InstanceHandle) Owner() *reactive.Owner { return h.owner }

// ID returns the entry id.
func (h *InstanceHandle) ID() int { return h.inst.id }

// Key returns the registry key.
func (h *InstanceHandle) Key() string { return h.inst.key }

// Index returns the entry's position in the stack, -1 once removed. The
// read is tracked.
func (h *InstanceHandle) Index() int { return h.inst.s.indexOf(h.inst.id, true) }

// Close closes the entry with result, or the default result when omitted.
func (h *InstanceHandle) Close(result ...any) {
	if h.inst.stale("Close") {
		return
	}
	h.inst.s.close(h.inst.id, result...)
}

// UpdateOwnProps merges props into the entry's props.
func (h *InstanceHandle) UpdateOwnProps(props Props) {
	if h.inst.stale("UpdateOwnProps") {
		return
	}
	id := h.inst.id
	h.inst.s.entries.Find(func(e Entry) bool { return e.ID == id }, h.merged(props))
}

func (h *InstanceHandle) merged(props Props) Entry {
	e, _ := h.inst.s.entry(h.inst.id, false)
	next := maps.Clone(e.Props)
	if next == nil {
		next = make(Props, len(props))
	}
	maps.Copy(next, props)
	e.Props = next
	return e
}

// OpenSelf opens another entry of the same key with the current props
// merged with props.
func (h *InstanceHandle) OpenSelf(props Props, openCtx any) OpenResult {
	if h.inst.stale("OpenSelf") {
		return refusedOpen()
	}
	return h.inst.s.Open(h.inst.key, h.merged(props).Props, openCtx)
}

// OpenSelfKeyOnly opens another entry of the same key with props only.
func (h *InstanceHandle) OpenSelfKeyOnly(props Props, openCtx any) OpenResult {
	if h.inst.stale("OpenSelfKeyOnly") {
		return refusedOpen()
	}
	return h.inst.s.Open(h.inst.key, props, openCtx)
}

// OnClose registers fn to run with the result when the entry closes.
func (h *InstanceHandle) OnClose(fn func(result any)) {
	if h.inst.stale("OnClose") {
		return
	}
	s := h.inst.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.records[h.inst.id]; rec != nil {
		rec.listeners = append(rec.listeners, fn)
	}
}

// WithLayoutProps keeps the layout props in step with fn for the lifetime
// of the entry.
func (h *InstanceHandle) WithLayoutProps(fn func() Props) {
	h.inst.computed("WithLayoutProps", "layoutProps", fn)
}

// WithBackdropProps keeps the backdrop props in step with fn for the
// lifetime of the entry.
func (h *InstanceHandle) WithBackdropProps(fn func() Props) {
	h.inst.computed("WithBackdropProps", "backdropProps", fn)
}

// Relative describes a neighbouring entry.
type Relative struct {
	Key       string
	ID        int
	Props     Props
	IsPresent bool
	// Component is nil while the neighbour is loading.
	Component *Component
}

// LayoutHandle is a layout's handle to the entry it wraps.
type LayoutHandle struct {
	inst *instanceScope
}

// Owner returns the instance scope.
func (h *LayoutHandle) Owner() *reactive.Owner { return h.inst.owner }

// ID returns the entry id.
func (h *LayoutHandle) ID() int { return h.inst.id }

// Index returns the entry's position in the stack. The read is tracked.
func (h *LayoutHandle) Index() int { return h.inst.s.indexOf(h.inst.id, true) }

// IsPresent reports whether the entry is open. The read is tracked.
func (h *LayoutHandle) IsPresent() bool { return h.inst.s.isPresent(h.inst.id, true) }

// Current returns the topmost present entry of the stack.
func (h *LayoutHandle) Current() Current { return h.inst.s.current(true) }

// IsCurrent reports whether the entry is the topmost present one.
func (h *LayoutHandle) IsCurrent() bool { return h.Current().ID == h.inst.id }

// Close closes the entry with the default result.
func (h *LayoutHandle) Close() {
	if h.inst.stale("Close") {
		return
	}
	h.inst.s.close(h.inst.id)
}

// WithBackdropProps is InstanceHandle.WithBackdropProps.
func (h *LayoutHandle) WithBackdropProps(fn func() Props) {
	h.inst.computed("WithBackdropProps", "backdropProps", fn)
}

// GetRelative returns the entry delta positions away. The read is tracked.
func (h *LayoutHandle) GetRelative(delta int) (Relative, bool) {
	s := h.inst.s
	entries := s.read(true)
	i := s.indexOf(h.inst.id, true)
	if i < 0 || i+delta < 0 || i+delta >= len(entries) {
		return Relative{}, false
	}
	e := entries[i+delta]
	comp, _ := s.api.reg.Component(e.Key)
	return Relative{
		Key:       e.Key,
		ID:        e.ID,
		Props:     e.Props,
		IsPresent: s.isPresent(e.ID, true),
		Component: comp,
	}, true
}

// SafeToRemove removes the closed entry from the stack. It panics with O003
// while the entry is present and with O004 when it was already removed.
func (h *LayoutHandle) SafeToRemove() {
	h.inst.s.safeToRemove(h.inst.id, h.inst.key)
}

// SafeToRemoveAfter removes the entry once d has passed, on the next stack
// call after that. Calling stop first cancels it.
func (h *LayoutHandle) SafeToRemoveAfter(d time.Duration) (stop func() bool) {
	inst := h.inst
	t := time.AfterFunc(d, func() {
		inst.s.post(func() {
			if inst.live() && !inst.s.isPresent(inst.id, false) {
				inst.s.drop(inst.id)
			}
		})
	})
	return t.Stop
}

// backdropScope is one mounted backdrop shared by the entries using it.
type backdropScope struct {
	s     *Stack
	b     *Backdrop
	owner *reactive.Owner

	// source is the id whose backdrop props are shown.
	source *reactive.Signal[int]
	show   *reactive.Signal[bool]
	render RenderFunc
}

// BackdropHandle is a backdrop's handle to the stack.
type BackdropHandle struct {
	scope *backdropScope
}

// Owner returns the backdrop scope.
func (h *BackdropHandle) Owner() *reactive.Owner { return h.scope.owner }

// Show reports whether the topmost present entry uses this backdrop, or is
// still loading. The read is tracked.
func (h *BackdropHandle) Show() bool { return h.scope.show.Get() }

// CloseCurrent closes the topmost present entry.
func (h *BackdropHandle) CloseCurrent() {
	if h.scope.owner.IsDisposed() {
		h.scope.s.logger.Warn("overlay operation after removal ignored", "op", "CloseCurrent", "backdrop", h.scope.b.Name)
		return
	}
	h.scope.s.CloseCurrent()
}
