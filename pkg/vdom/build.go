package vdom

import (
	"fmt"
	"strings"
)

// Element creates an element node. Arguments can be nil, Attr, []Attr,
// *VNode, []*VNode, Component or string.
func Element(tag string, args ...any) *VNode {
	node := &VNode{
		Kind:     KindElement,
		Tag:      tag,
		Props:    make(Props),
		Children: make([]*VNode, 0),
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			node.apply(v)
		case []Attr:
			for _, a := range v {
				node.apply(a)
			}
		default:
			node.Children = appendChild(node.Children, arg)
		}
	}
	return node
}

func (v *VNode) apply(a Attr) {
	switch a.Key {
	case "":
		return
	case "key":
		v.Key, _ = a.Value.(string)
	case "class":
		if prev, ok := v.Props["class"].(string); ok && prev != "" {
			v.Props["class"] = prev + " " + a.Value.(string)
			return
		}
		v.Props["class"] = a.Value
	default:
		v.Props[a.Key] = a.Value
	}
}

func appendChild(children []*VNode, child any) []*VNode {
	switch v := child.(type) {
	case *VNode:
		if v != nil {
			children = append(children, v)
		}
	case []*VNode:
		for _, c := range v {
			if c != nil {
				children = append(children, c)
			}
		}
	case string:
		children = append(children, Text(v))
	case Component:
		children = append(children, &VNode{Kind: KindComponent, Comp: v})
	}
	return children
}

// Div creates a <div>.
func Div(args ...any) *VNode { return Element("div", args...) }

// Section creates a <section>.
func Section(args ...any) *VNode { return Element("section", args...) }

// Span creates a <span>.
func Span(args ...any) *VNode { return Element("span", args...) }

// Button creates a <button>.
func Button(args ...any) *VNode { return Element("button", args...) }

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{Kind: KindText, Text: content}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Fragment groups children without a wrapper element.
func Fragment(children ...any) *VNode {
	node := &VNode{Kind: KindFragment, Children: make([]*VNode, 0, len(children))}
	for _, c := range children {
		node.Children = appendChild(node.Children, c)
	}
	return node
}

// Keyed sets the key of node and returns it.
func Keyed(key string, node *VNode) *VNode {
	if node != nil {
		node.Key = key
	}
	return node
}

// If returns the node if condition is true, nil otherwise.
func If(condition bool, node *VNode) *VNode {
	if condition {
		return node
	}
	return nil
}

// Key sets the reconciliation key.
func Key(key string) Attr { return Attr{Key: "key", Value: key} }

// Class sets the class attribute. Empty names are dropped, repeated Class
// attributes accumulate.
func Class(classes ...string) Attr {
	return Attr{Key: "class", Value: strings.Join(splitFields(strings.Join(classes, " ")), " ")}
}

// ClassIf includes name only when cond holds.
func ClassIf(cond bool, name string) Attr {
	if !cond {
		return Attr{}
	}
	return Class(name)
}

// Data creates a data-* attribute.
func Data(key, value string) Attr { return Attr{Key: "data-" + key, Value: value} }

// Prop sets an arbitrary attribute.
func Prop(key string, value any) Attr { return Attr{Key: key, Value: value} }

// OnClick attaches a click handler.
func OnClick(handler func()) Attr { return Attr{Key: "onclick", Value: handler} }

func splitFields(s string) []string {
	return strings.Fields(s)
}
