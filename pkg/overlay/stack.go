package overlay

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/reactive"
	"github.com/vango-dev/stackkit/pkg/signals"
	"github.com/vango-dev/stackkit/pkg/vdom"
)

// lastID is shared by every stack in the process; ids are never reused.
var lastID atomic.Int64

func nextID() int {
	return int(lastID.Add(1))
}

// observeID keeps the counter ahead of ids that arrive through bound data.
func observeID(id int) {
	for {
		cur := lastID.Load()
		if int64(id) <= cur || lastID.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}

// Stack owns the entries of one overlay stack and the state of each entry.
type Stack struct {
	api    *API
	owner  *reactive.Owner
	logger *slog.Logger

	entries *signals.Array[Entry]
	bound   *signals.Bound[[]Entry]
	// state holds one subtree per entry id: isPresent, layoutProps and
	// backdropProps.
	state *signals.DeepObject

	children func(renderOverlays func(renderCtx any) *vdom.VNode) *vdom.VNode

	mu        sync.Mutex
	records   map[int]*record
	// removed holds ids closed out of a read-only stack. Bound data still
	// lists them, so reads and reconcile skip them.
	removed   map[int]bool
	admitted  map[string]bool
	loading   map[string]bool
	backdrops map[*Backdrop]*backdropScope
	inbox     []func()
	watchers  map[int]func()
	watchSeq  int
}

// record is the Go-side state of an entry.
type record struct {
	id        int
	key       string
	props     Props
	result    *Future[any]
	listeners []func(any)
	// deferred opens were made before their component was loaded. They are
	// kept out of the entries until the load admits them.
	deferred bool

	scope  *instanceScope
	render RenderFunc
}

// OpenResult is returned by Open.
type OpenResult struct {
	// ID is the entry's id, 0 when the open was refused.
	ID int
	// Result resolves with the value the entry closes with.
	Result *Future[any]
	// ComponentLoad resolves once the component is loaded.
	ComponentLoad *Future[struct{}]
	// Close closes the entry, with the component's default result when no
	// result is given.
	Close func(result ...any)
}

func idKey(id int) string {
	return strconv.Itoa(id)
}

// Open pushes an entry for key. When the component is not loaded yet the
// entry waits outside the stack and is pushed, in open order, once the load
// completes. The duplicate and limit policy is applied at push time. A
// refused open resolves Result with nil and adds no entry. Open panics with
// O006 for an unregistered key.
func (s *Stack) Open(key string, props Props, openCtx any) OpenResult {
	s.drain()
	if !s.api.reg.Has(key) {
		panic(misuse("O006", "Open(%q)", key))
	}
	if h := s.api.hooks.Open; h != nil {
		h(key, props, openCtx)
	}

	_, span := s.api.startSpan(context.Background(), "overlay.open", key)
	defer span.End()

	res := OpenResult{
		Result:        newFuture[any](),
		ComponentLoad: newFuture[struct{}](),
		Close:         func(...any) {},
	}

	comp, loaded := s.api.reg.Component(key)
	if loaded {
		res.ComponentLoad.resolve(struct{}{})
		if reason, ok := s.admit(key, s.api.configOf(comp), 0); !ok {
			res.Result.resolve(nil)
			s.api.metrics.reject(key, reason)
			span.SetAttributes(attribute.String("overlay.rejected", reason))
			return res
		}
	}

	id := nextID()
	res.ID = id
	res.Close = func(result ...any) {
		s.drain()
		s.close(id, result...)
	}
	span.SetAttributes(attribute.Int("overlay.id", id))

	rec := &record{id: id, key: key, props: props, result: res.Result, deferred: !loaded}
	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()
	if !loaded {
		s.load(key, res.ComponentLoad)
		return res
	}
	s.push(rec)
	return res
}

// push adds rec to the stack as a present entry.
func (s *Stack) push(rec *record) {
	s.state.Path(idKey(rec.id)).Set(Props{"isPresent": true})
	s.entries.Push(Entry{Key: rec.key, ID: rec.id, Props: rec.props})
	s.api.metrics.opened(rec.key)
}

// admit applies the duplicate and limit policy to an entry for key. except
// is the id of the entry being admitted, which does not count as present.
func (s *Stack) admit(key string, cfg Config, except int) (reason string, ok bool) {
	s.mu.Lock()
	seen := s.admitted[key]
	s.mu.Unlock()
	if cfg.Limit == LimitOncePerSession && seen {
		return "limit", false
	}

	var present []int
	for _, e := range s.read(false) {
		if e.Key == key && e.ID != except && s.isPresent(e.ID, false) {
			present = append(present, e.ID)
		}
	}
	switch cfg.DuplicateBehavior {
	case DuplicateReplace:
		for _, id := range present {
			s.close(id)
		}
	case DuplicateRemove:
		if len(present) > 0 {
			for _, id := range present {
				s.close(id)
			}
			return "duplicate", false
		}
	}

	s.mu.Lock()
	s.admitted[key] = true
	s.mu.Unlock()
	return "", true
}

// load resolves key on a separate goroutine and hands the outcome back
// through the inbox. done, if set, settles after the inbox entry is queued.
func (s *Stack) load(key string, done *Future[struct{}]) {
	s.mu.Lock()
	if done == nil && s.loading[key] {
		s.mu.Unlock()
		return
	}
	s.loading[key] = true
	s.mu.Unlock()

	go func() {
		ctx, span := s.api.startSpan(s.api.loadCtx, "overlay.load", key)
		start := time.Now()
		comp, err := s.api.reg.Load(ctx, key)
		if err != nil {
			err = errors.New("O007").WithDetailf("overlay %q", key).Wrap(err)
		}
		s.api.metrics.loaded(key, time.Since(start).Seconds(), err)
		endSpan(span, err)

		s.post(func() { s.loaded(key, comp, err) })
		if done == nil {
			return
		}
		if err != nil {
			done.reject(err)
		} else {
			done.resolve(struct{}{})
		}
	}()
}

// loaded pushes the opens that waited for key, applying the policy to each
// in open order. On failure they resolve nil and never enter the stack.
func (s *Stack) loaded(key string, comp *Component, err error) {
	s.mu.Lock()
	delete(s.loading, key)
	var waiting []*record
	for _, rec := range s.records {
		if rec.deferred && rec.key == key {
			rec.deferred = false
			waiting = append(waiting, rec)
		}
	}
	for _, rec := range waiting {
		delete(s.records, rec.id)
	}
	s.mu.Unlock()
	slices.SortFunc(waiting, func(a, b *record) int { return a.id - b.id })

	for _, rec := range waiting {
		if err != nil {
			s.logger.Error("overlay component failed to load", "key", key, "id", rec.id, "error", err)
			rec.result.resolve(nil)
			continue
		}
		if reason, ok := s.admit(key, s.api.configOf(comp), 0); !ok {
			s.api.metrics.reject(key, reason)
			rec.result.resolve(nil)
			continue
		}
		s.mu.Lock()
		s.records[rec.id] = rec
		s.mu.Unlock()
		s.push(rec)
	}
}

// close marks id as no longer present and resolves its result. Entries that
// were never mounted, or whose layout has no exit transition, are removed
// right away. It reports false when id is unknown or already closed.
func (s *Stack) close(id int, result ...any) bool {
	s.mu.Lock()
	rec := s.records[id]
	if rec != nil && rec.deferred {
		delete(s.records, id)
	}
	s.mu.Unlock()
	if rec != nil && rec.deferred {
		return s.cancel(rec, result...)
	}
	if rec == nil || !s.isPresent(id, false) {
		return false
	}

	var res any
	if len(result) > 0 {
		res = result[0]
	} else if comp, ok := s.api.reg.Component(rec.key); ok {
		res = comp.DefaultResult
	}

	_, span := s.api.startSpan(context.Background(), "overlay.close", rec.key, attribute.Int("overlay.id", id))
	defer span.End()

	s.state.Path(idKey(id), "isPresent").Set(false)
	rec.result.resolve(res)
	s.api.metrics.closed(rec.key)

	s.mu.Lock()
	listeners := slices.Clone(rec.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(res)
	}
	if h := s.api.hooks.Close; h != nil {
		h(rec.key, res)
	}

	comp, _ := s.api.reg.Component(rec.key)
	if rec.scope == nil || !s.api.reg.layoutOf(comp).ExitTransition {
		s.drop(id)
	}
	s.notify()
	return true
}

// cancel settles an open that is still waiting for its component.
func (s *Stack) cancel(rec *record, result ...any) bool {
	var res any
	if len(result) > 0 {
		res = result[0]
	}
	rec.result.resolve(res)
	if h := s.api.hooks.Close; h != nil {
		h(rec.key, res)
	}
	return true
}

// drop removes id from the stack and tears down its scope.
func (s *Stack) drop(id int) {
	s.mu.Lock()
	rec := s.records[id]
	delete(s.records, id)
	readOnly := s.bound.ReadOnly()
	if readOnly {
		s.removed[id] = true
	}
	s.mu.Unlock()

	s.bound.Update(func(cur []Entry) []Entry {
		return slices.DeleteFunc(slices.Clone(cur), func(e Entry) bool { return e.ID == id })
	})
	if rec != nil && rec.scope != nil {
		rec.scope.owner.Dispose()
	}
	s.state.Path(idKey(id)).Delete()
	if readOnly {
		s.notify()
	}
}

func (s *Stack) safeToRemove(id int, key string) {
	s.mu.Lock()
	_, live := s.records[id]
	s.mu.Unlock()
	if !live {
		panic(misuse("O004", "overlay %q (id %d) was already removed", key, id))
	}
	if s.isPresent(id, false) {
		panic(misuse("O003", "overlay %q (id %d) is still present", key, id))
	}
	s.drop(id)
}

// CloseAll closes every present entry.
func (s *Stack) CloseAll() {
	s.drain()
	for _, e := range s.read(false) {
		s.close(e.ID)
	}
}

// CloseCurrent closes the topmost present entry.
func (s *Stack) CloseCurrent() {
	s.drain()
	if cur := s.current(false); cur.ID != -1 {
		s.close(cur.ID)
	}
}

// Close closes the entry id with result, or the component's default result
// when omitted. It reports false when id is unknown or already closed.
func (s *Stack) Close(id int, result ...any) bool {
	s.drain()
	return s.close(id, result...)
}

// Entries returns the entries in stack order. The read is tracked.
func (s *Stack) Entries() []Entry {
	s.drain()
	return slices.Clone(s.read(true))
}

// Current returns the topmost present entry. The read is tracked.
func (s *Stack) Current() Current {
	s.drain()
	return s.current(true)
}

// IsPresent reports whether id is open and not closing.
func (s *Stack) IsPresent(id int) bool {
	s.drain()
	return s.isPresent(id, true)
}

func (s *Stack) current(tracked bool) Current {
	entries := s.read(tracked)
	for i := len(entries) - 1; i >= 0; i-- {
		if s.isPresent(entries[i].ID, tracked) {
			return Current{Index: i, ID: entries[i].ID, Key: entries[i].Key}
		}
	}
	return noCurrent
}

func (s *Stack) read(tracked bool) []Entry {
	var entries []Entry
	if tracked {
		entries = s.bound.Get()
	} else {
		entries = s.bound.Peek()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.removed) == 0 {
		return entries
	}
	return slices.DeleteFunc(slices.Clone(entries), func(e Entry) bool { return s.removed[e.ID] })
}

func (s *Stack) isPresent(id int, tracked bool) bool {
	p := s.state.Path(idKey(id), "isPresent")
	var v any
	var ok bool
	if tracked {
		v, ok = p.Get()
	} else {
		v, ok = p.Peek()
	}
	present, _ := v.(bool)
	return ok && present
}

func (s *Stack) indexOf(id int, tracked bool) int {
	return slices.IndexFunc(s.read(tracked), func(e Entry) bool { return e.ID == id })
}

func (s *Stack) entry(id int, tracked bool) (Entry, bool) {
	entries := s.read(tracked)
	if i := slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id }); i >= 0 {
		return entries[i], true
	}
	return Entry{}, false
}

func (s *Stack) propsOf(id int, path string) Props {
	v, _ := s.state.Path(idKey(id), path).Get()
	p, _ := v.(Props)
	return p
}

// reconcile creates state for entries that arrived through bound data and
// disposes state of entries that left the stack.
func (s *Stack) reconcile() {
	listed := make(map[int]bool)
	for _, e := range s.bound.Peek() {
		listed[e.ID] = true
	}
	s.mu.Lock()
	if len(s.removed) > 0 {
		for id := range s.removed {
			if !listed[id] {
				delete(s.removed, id)
			}
		}
	}
	s.mu.Unlock()

	entries := s.read(false)
	live := make(map[int]bool, len(entries))
	for _, e := range entries {
		live[e.ID] = true
		observeID(e.ID)

		s.mu.Lock()
		_, known := s.records[e.ID]
		if !known {
			s.records[e.ID] = &record{id: e.ID, key: e.Key, result: newFuture[any]()}
		}
		s.mu.Unlock()
		if !known {
			s.state.Path(idKey(e.ID)).Set(Props{"isPresent": true})
			s.api.metrics.opened(e.Key)
		}
	}

	s.mu.Lock()
	var gone []*record
	for id, rec := range s.records {
		if !live[id] && !rec.deferred {
			gone = append(gone, rec)
			delete(s.records, id)
		}
	}
	s.mu.Unlock()

	for _, rec := range gone {
		if rec.scope != nil {
			rec.scope.owner.Dispose()
		}
		rec.result.resolve(nil)
		s.state.Path(idKey(rec.id)).Delete()
	}
}

// post queues fn for the goroutine that drives the stack.
func (s *Stack) post(fn func()) {
	s.mu.Lock()
	s.inbox = append(s.inbox, fn)
	s.mu.Unlock()
	s.notify()
}

// drain runs queued work and reconciles state with the entries.
func (s *Stack) drain() {
	for {
		s.mu.Lock()
		queued := s.inbox
		s.inbox = nil
		s.mu.Unlock()
		if len(queued) == 0 {
			break
		}
		for _, fn := range queued {
			fn()
		}
	}
	s.reconcile()
}

// Pending reports whether work is waiting for the next stack call.
func (s *Stack) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inbox) > 0
}

// Watch registers fn to run after the entries or their presence change and
// when background work is queued. fn may run on any goroutine. The returned
// function unregisters it.
func (s *Stack) Watch(fn func()) (cancel func()) {
	s.mu.Lock()
	s.watchSeq++
	id := s.watchSeq
	s.watchers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Stack) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// reset closes every present entry and empties the stack.
func (s *Stack) reset() {
	for _, e := range s.read(false) {
		s.close(e.ID)
	}
	if s.bound.ReadOnly() {
		listed := s.bound.Peek()
		s.mu.Lock()
		for _, e := range listed {
			s.removed[e.ID] = true
		}
		s.mu.Unlock()
	}
	s.bound.Set(nil)
	s.reconcile()

	s.mu.Lock()
	scopes := s.backdrops
	s.backdrops = make(map[*Backdrop]*backdropScope)
	s.mu.Unlock()
	for _, b := range scopes {
		b.owner.Dispose()
	}
}

func (s *Stack) shutdown() {
	s.mu.Lock()
	recs := make([]*record, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	s.watchers = map[int]func(){}
	s.mu.Unlock()
	for _, r := range recs {
		r.result.resolve(nil)
	}
}

// Snapshot is a point-in-time view of a stack.
type Snapshot struct {
	Entries []EntryState `json:"entries"`
	Current Current      `json:"current"`
}

// EntryState is an entry with its presence.
type EntryState struct {
	Entry
	Present bool `json:"present"`
}

// Snapshot returns the current entries with their presence. The read is
// untracked.
func (s *Stack) Snapshot() Snapshot {
	s.drain()
	entries := s.read(false)
	out := Snapshot{Entries: make([]EntryState, 0, len(entries)), Current: s.current(false)}
	for _, e := range entries {
		out.Entries = append(out.Entries, EntryState{Entry: e, Present: s.isPresent(e.ID, false)})
	}
	return out
}

// Controller opens and closes entries.
type Controller struct {
	s *Stack
}

// Open is Stack.Open.
func (c Controller) Open(key string, props Props, openCtx any) OpenResult {
	return c.s.Open(key, props, openCtx)
}

// CloseAll is Stack.CloseAll.
func (c Controller) CloseAll() { c.s.CloseAll() }

// CloseCurrent is Stack.CloseCurrent.
func (c Controller) CloseCurrent() { c.s.CloseCurrent() }

// Base renders the stack and reads its entries.
type Base struct {
	s *Stack
}

// Render is Stack.Render.
func (b Base) Render(renderCtx any) *vdom.VNode { return b.s.Render(renderCtx) }

// Stack returns the entries.
func (b Base) Stack() []Entry { return b.s.Entries() }

// Current is Stack.Current.
func (b Base) Current() Current { return b.s.Current() }

// CloseCurrent is Stack.CloseCurrent.
func (b Base) CloseCurrent() { b.s.CloseCurrent() }
