package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindFragment               // Grouping without wrapper
	KindComponent              // Deferred component
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// VNode is a virtual node.
type VNode struct {
	Kind     VKind     // Node type
	Tag      string    // Element tag name
	Props    Props     // Attributes and event handlers
	Children []*VNode  // Child nodes
	Key      string    // Reconciliation key
	Text     string    // For KindText
	Comp     Component // For KindComponent
}

// Props holds attributes and event handlers.
type Props map[string]any

// Attr is a single attribute.
type Attr struct {
	Key   string
	Value any
}

// Component is anything that can render to a VNode.
type Component interface {
	Render() *VNode
}

type funcComponent func() *VNode

func (f funcComponent) Render() *VNode { return f() }

// Func creates a component from a render function.
func Func(render func() *VNode) Component {
	return funcComponent(render)
}

// Expand renders component nodes in place, recursively, and returns the
// resulting tree. Nodes without components are returned unchanged.
func Expand(node *VNode) *VNode {
	if node == nil {
		return nil
	}
	if node.Kind == KindComponent {
		if node.Comp == nil {
			return nil
		}
		out := Expand(node.Comp.Render())
		if out != nil && out.Key == "" {
			out.Key = node.Key
		}
		return out
	}
	if len(node.Children) == 0 {
		return node
	}
	cp := *node
	cp.Children = make([]*VNode, 0, len(node.Children))
	for _, c := range node.Children {
		if e := Expand(c); e != nil {
			cp.Children = append(cp.Children, e)
		}
	}
	return &cp
}

// Walk visits node and its descendants depth-first. Returning false from fn
// skips the children of that node.
func Walk(node *VNode, fn func(*VNode) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, c := range node.Children {
		Walk(c, fn)
	}
}

// FindKey returns the first node with the given key.
func FindKey(root *VNode, key string) *VNode {
	var found *VNode
	Walk(root, func(n *VNode) bool {
		if found != nil {
			return false
		}
		if n.Key == key {
			found = n
			return false
		}
		return true
	})
	return found
}

// ChildKeys returns the keys of the direct children in order.
func (v *VNode) ChildKeys() []string {
	if v == nil {
		return nil
	}
	keys := make([]string, 0, len(v.Children))
	for _, c := range v.Children {
		keys = append(keys, c.Key)
	}
	return keys
}

// HasClass reports whether the class attribute contains name.
func (v *VNode) HasClass(name string) bool {
	if v == nil {
		return false
	}
	cls, _ := v.Props["class"].(string)
	for _, c := range splitFields(cls) {
		if c == name {
			return true
		}
	}
	return false
}
