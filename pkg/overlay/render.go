package overlay

import (
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/vango-dev/stackkit/pkg/reactive"
	"github.com/vango-dev/stackkit/pkg/vdom"
)

// Render returns the backdrops followed by the entries, keyed
// "backdrop:<name>" and "overlay:<id>". Entries whose component is still
// loading, or whose render guard rejects renderCtx, are left out.
//
// A panic while rendering is logged and clears the stack; Render then
// returns an empty fragment.
func (s *Stack) Render(renderCtx any) (node *vdom.VNode) {
	s.drain()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("overlay render failed, clearing stack",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			s.api.metrics.renderFailed()
			s.reset()
			node = vdom.Fragment()
		}
	}()

	s.owner.RunPendingEffects()

	entries := s.read(false)
	cur := s.current(false)

	type visible struct {
		e    Entry
		comp *Component
	}
	shown := make([]visible, 0, len(entries))
	for _, e := range entries {
		comp, ok := s.api.reg.Component(e.Key)
		if !ok {
			s.load(e.Key, nil)
			continue
		}
		if !s.api.configOf(comp).accepts(renderCtx) {
			continue
		}
		shown = append(shown, visible{e: e, comp: comp})
	}

	// One backdrop per distinct Backdrop. Its props follow the topmost entry
	// at or below the current one.
	var order []*Backdrop
	sources := make(map[*Backdrop]int)
	for _, v := range shown {
		b := s.api.reg.layoutOf(v.comp).Backdrop
		if b == nil {
			continue
		}
		_, seen := sources[b]
		if !seen {
			order = append(order, b)
		}
		if !seen || s.indexOf(v.e.ID, false) <= cur.Index {
			sources[b] = v.e.ID
		}
	}

	children := make([]*vdom.VNode, 0, len(order)+len(shown))
	for _, b := range order {
		scope := s.mountBackdrop(b)
		scope.source.Set(sources[b])
		scope.show.Set(s.showsBackdrop(cur, b))
		children = append(children, vdom.Keyed("backdrop:"+b.Name, vdom.Fragment(scope.render())))
	}
	s.unmountBackdrops(sources)

	for _, v := range shown {
		render := s.mountInstance(v.e, v.comp)
		if render == nil {
			continue
		}
		children = append(children, vdom.Keyed("overlay:"+strconv.Itoa(v.e.ID), vdom.Fragment(render())))
	}
	return vdom.Fragment(children)
}

// View renders the provider: its Children with Render as the render-prop,
// or the overlays alone when no Children were given.
func (s *Stack) View() *vdom.VNode {
	if s.children != nil {
		return s.children(s.Render)
	}
	return s.Render(nil)
}

// showsBackdrop reports whether b belongs to the current entry. A current
// entry that is still loading shows every backdrop.
func (s *Stack) showsBackdrop(cur Current, b *Backdrop) bool {
	if cur.ID == -1 {
		return false
	}
	comp, ok := s.api.reg.Component(cur.Key)
	if !ok {
		return true
	}
	return s.api.reg.layoutOf(comp).Backdrop == b
}

func (s *Stack) mountBackdrop(b *Backdrop) *backdropScope {
	s.mu.Lock()
	scope := s.backdrops[b]
	s.mu.Unlock()
	if scope != nil {
		return scope
	}

	scope = &backdropScope{
		s:      s,
		b:      b,
		owner:  reactive.NewOwner(s.owner),
		source: reactive.NewSignal(-1),
		show:   reactive.NewSignal(false),
	}
	s.api.backdrops.Provide(scope.owner, scope)
	props := func() Props { return s.propsOf(scope.source.Get(), "backdropProps") }
	scope.owner.Run(func() {
		scope.render = b.Setup(&BackdropHandle{scope: scope}, props)
	})

	s.mu.Lock()
	s.backdrops[b] = scope
	s.mu.Unlock()
	return scope
}

// unmountBackdrops disposes backdrops no entry refers to anymore.
func (s *Stack) unmountBackdrops(keep map[*Backdrop]int) {
	s.mu.Lock()
	var gone []*backdropScope
	for b, scope := range s.backdrops {
		if _, ok := keep[b]; !ok {
			gone = append(gone, scope)
			delete(s.backdrops, b)
		}
	}
	s.mu.Unlock()
	for _, scope := range gone {
		scope.owner.Dispose()
	}
}

// mountInstance returns the render function of e, running the layout and
// component setup on first use.
func (s *Stack) mountInstance(e Entry, comp *Component) RenderFunc {
	s.mu.Lock()
	rec := s.records[e.ID]
	s.mu.Unlock()
	if rec == nil || rec.deferred {
		return nil
	}
	if rec.render != nil {
		return rec.render
	}

	inst := &instanceScope{
		s:      s,
		id:     e.ID,
		key:    e.Key,
		comp:   comp,
		layout: s.api.reg.layoutOf(comp),
		owner:  reactive.NewOwner(s.owner),
	}
	rec.scope = inst
	s.api.instances.Provide(inst.owner, inst)

	compOwner := reactive.NewOwner(inst.owner)
	var child RenderFunc
	compOwner.Run(func() {
		child = comp.Setup(&InstanceHandle{inst: inst, owner: compOwner}, inst.props)
	})
	if child == nil {
		child = func() *vdom.VNode { return nil }
	}

	layoutProps := func() Props { return s.propsOf(e.ID, "layoutProps") }
	inst.owner.Run(func() {
		rec.render = inst.layout.Setup(&LayoutHandle{inst: inst}, layoutProps, child)
	})
	return rec.render
}
