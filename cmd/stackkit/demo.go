package main

import (
	"context"
	"time"

	"github.com/vango-dev/stackkit/pkg/overlay"
	"github.com/vango-dev/stackkit/pkg/vdom"
)

// sheetLoadDelay simulates fetching the sheet component.
var sheetLoadDelay = 150 * time.Millisecond

// demoRegistry registers the overlays served by "stackkit serve":
//
//	confirm  modal with yes/no buttons, resolves true or false
//	banner   shown once per session, hidden when rendering for "print"
//	sheet    lazily loaded modal whose backdrop ignores clicks
func demoRegistry(opts ...overlay.RegistryOption) *overlay.Registry {
	return overlay.NewRegistry(map[string]overlay.Loader{
		"confirm": overlay.Static(confirmDialog),
		"banner":  overlay.Static(banner),
		"sheet": func(ctx context.Context) (*overlay.Component, error) {
			select {
			case <-time.After(sheetLoadDelay):
				return sheet, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}, append([]overlay.RegistryOption{overlay.WithDefaultLayout(overlay.ModalLayout)}, opts...)...)
}

var confirmDialog = &overlay.Component{
	Name:          "confirm",
	DefaultResult: false,
	Setup: func(h *overlay.InstanceHandle, props func() overlay.Props) overlay.RenderFunc {
		return func() *vdom.VNode {
			return vdom.Div(
				vdom.Class("confirm"),
				vdom.Textf("%v", textOr(props(), "Are you sure?")),
				vdom.Button(vdom.Text("Yes"), vdom.OnClick(func() { h.Close(true) })),
				vdom.Button(vdom.Text("No"), vdom.OnClick(func() { h.Close(false) })),
			)
		}
	},
}

var banner = &overlay.Component{
	Name:   "banner",
	Layout: overlay.IdentityLayout,
	Config: overlay.Config{
		Limit:                 overlay.LimitOncePerSession,
		ValidateRenderContext: func(renderCtx any) bool { return renderCtx != "print" },
	},
	Setup: func(h *overlay.InstanceHandle, props func() overlay.Props) overlay.RenderFunc {
		return func() *vdom.VNode {
			return vdom.Section(
				vdom.Class("banner"),
				vdom.Textf("%v", textOr(props(), "Welcome")),
				vdom.Button(vdom.Text("Dismiss"), vdom.OnClick(func() { h.Close() })),
			)
		}
	},
}

var sheet = &overlay.Component{
	Name: "sheet",
	Setup: func(h *overlay.InstanceHandle, props func() overlay.Props) overlay.RenderFunc {
		h.WithBackdropProps(func() overlay.Props {
			return overlay.Props{"noClose": props()["pinned"] == true}
		})
		return func() *vdom.VNode {
			return vdom.Div(
				vdom.Class("sheet"),
				vdom.Textf("%v", textOr(props(), "Details")),
				vdom.Button(vdom.Text("Another"), vdom.OnClick(func() {
					h.OpenSelf(overlay.Props{"text": "Nested details"}, nil)
				})),
				vdom.Button(vdom.Text("Done"), vdom.OnClick(func() { h.Close("done") })),
			)
		}
	},
}

func textOr(p overlay.Props, fallback string) any {
	if v, ok := p["text"]; ok {
		return v
	}
	return fallback
}

// page wraps the overlays in the demo page.
func page(renderOverlays func(renderCtx any) *vdom.VNode) *vdom.VNode {
	return vdom.Div(
		vdom.Class("stackkit-page"),
		vdom.Section(vdom.Text("stackkit demo")),
		renderOverlays(nil),
	)
}
