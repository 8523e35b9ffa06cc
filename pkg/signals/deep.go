package signals

import (
	"maps"
	"slices"
)

// Tree is the value shape of a DeepObject. Nested objects are Trees too.
type Tree = map[string]any

// DeepObject updates nested values by path. A write copies only the maps on
// the path to the written key; every sibling subtree is shared with the
// previous value.
type DeepObject struct {
	*Signal[Tree]
	w Wired[Tree]
}

// NewDeepObject creates a deep object signal.
func NewDeepObject(initial Tree) *DeepObject {
	if initial == nil {
		initial = Tree{}
	}
	return WrapDeepObject(New(initial))
}

// WrapDeepObject extends s with path setters.
func WrapDeepObject(s *Signal[Tree]) *DeepObject {
	return Extend(s, "deep", func(w Wired[Tree]) *DeepObject {
		return &DeepObject{Signal: s, w: w}
	})
}

// Deep returns the setter for the root.
func (d *DeepObject) Deep() *PathSetter {
	return &PathSetter{d: d}
}

// Path returns the setter for keys.
//
//	user.Path("profile", "name").Set("Ada")
func (d *DeepObject) Path(keys ...string) *PathSetter {
	return &PathSetter{d: d, path: slices.Clone(keys)}
}

// PathSetter reads and writes one path of a DeepObject.
type PathSetter struct {
	d    *DeepObject
	path []string
}

// Sub returns the setter one level below.
func (p *PathSetter) Sub(key string) *PathSetter {
	return &PathSetter{d: p.d, path: append(slices.Clone(p.path), key)}
}

// Path returns the keys from the root.
func (p *PathSetter) Path() []string {
	return slices.Clone(p.path)
}

// Get returns the tracked value at the path.
func (p *PathSetter) Get() (any, bool) {
	return lookupPath(p.d.Get(), p.path)
}

// Peek returns the value at the path without tracking.
func (p *PathSetter) Peek() (any, bool) {
	return lookupPath(p.d.w.Peek(), p.path)
}

// Set writes v at the path and returns the new root. Missing or non-object
// intermediate values are replaced by empty objects. At the root, v must be
// a Tree, otherwise nothing is written.
func (p *PathSetter) Set(v any) Tree {
	root := p.d.w.Peek()
	if len(p.path) == 0 {
		t, ok := v.(Tree)
		if !ok {
			return root
		}
		return p.d.w.Set(t)
	}
	return p.d.w.Set(setPath(root, p.path, v))
}

// Update writes fn applied to the value currently at the path (nil when
// missing).
func (p *PathSetter) Update(fn func(any) any) Tree {
	cur, _ := p.Peek()
	return p.Set(fn(cur))
}

// Merge shallow-merges partial into the object at the path.
func (p *PathSetter) Merge(partial Tree) Tree {
	return p.Update(func(cur any) any {
		t, _ := cur.(Tree)
		next := maps.Clone(t)
		if next == nil {
			next = make(Tree, len(partial))
		}
		maps.Copy(next, partial)
		return next
	})
}

// Delete removes the last key of the path. Nothing is written when it is
// missing.
func (p *PathSetter) Delete() Tree {
	root := p.d.w.Peek()
	if len(p.path) == 0 {
		return root
	}
	parent, ok := lookupPath(root, p.path[:len(p.path)-1])
	t, isTree := parent.(Tree)
	last := p.path[len(p.path)-1]
	if !ok || !isTree {
		return root
	}
	if _, present := t[last]; !present {
		return root
	}
	next := maps.Clone(t)
	delete(next, last)
	if len(p.path) == 1 {
		return p.d.w.Set(next)
	}
	return p.d.w.Set(setPath(root, p.path[:len(p.path)-1], next))
}

func lookupPath(node Tree, path []string) (any, bool) {
	var cur any = node
	for _, key := range path {
		t, ok := cur.(Tree)
		if !ok {
			return nil, false
		}
		if cur, ok = t[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(node Tree, path []string, v any) Tree {
	next := maps.Clone(node)
	if next == nil {
		next = Tree{}
	}
	if len(path) == 1 {
		next[path[0]] = v
		return next
	}
	child, _ := next[path[0]].(Tree)
	next[path[0]] = setPath(child, path[1:], v)
	return next
}
