// Package vdom is the virtual node model overlays render into.
//
// A VNode is an element, a text node, a fragment or a deferred component.
// Elements are built with variadic factories that accept attributes, child
// nodes, strings and components in any order:
//
//	Div(Class("modal", "show"), Key("overlay:3"),
//	    Text("Are you sure?"),
//	)
//
// Keys identify children across renders. The overlay renderer keys every
// backdrop and instance it emits so a host can reconcile the list by key.
// HTML serialises a tree for inspection and server-side output.
package vdom
