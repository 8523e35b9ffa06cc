package overlay

import (
	"time"

	"github.com/vango-dev/stackkit/pkg/reactive"
	"github.com/vango-dev/stackkit/pkg/vdom"
)

// ModalExitDelay is how long ModalLayout keeps a closed entry mounted.
var ModalExitDelay = 400 * time.Millisecond

// ModalLayout slides stacked modals sideways. The current entry has class
// "show", entries below it "left" and entries above it "right". Closed
// entries are removed after ModalExitDelay.
var ModalLayout = &Layout{
	Name:           "modal",
	Backdrop:       DarkenBackdrop,
	ExitTransition: true,
	Setup:          setupModal,
}

func setupModal(h *LayoutHandle, _ func() Props, child RenderFunc) RenderFunc {
	leaving := false
	h.Owner().Run(func() {
		reactive.CreateComputed(func() {
			if h.IsPresent() || leaving {
				return
			}
			leaving = true
			h.SafeToRemoveAfter(ModalExitDelay)
		})
	})

	initial := true
	return func() *vdom.VNode {
		cur := h.Current()
		index := h.Index()
		_, hasPrev := h.GetRelative(-1)
		enterRight := h.IsCurrent() && hasPrev && initial && h.IsPresent()
		initial = false

		return vdom.Div(
			vdom.Class("stackkit-modal"),
			vdom.ClassIf(index < cur.Index, "left"),
			vdom.ClassIf((index > cur.Index || enterRight) && cur.Index != -1, "right"),
			vdom.ClassIf(h.IsCurrent(), "show"),
			vdom.Div(vdom.Div(child())),
		)
	}
}

// DarkenBackdrop dims the page behind modals. Clicking it closes the current
// entry unless the entry set the backdrop prop "noClose".
var DarkenBackdrop = &Backdrop{
	Name: "darken",
	Setup: func(h *BackdropHandle, props func() Props) RenderFunc {
		return func() *vdom.VNode {
			noClose, _ := props()["noClose"].(bool)
			return vdom.Div(
				vdom.Class("stackkit-darken-backdrop"),
				vdom.ClassIf(h.Show(), "show"),
				vdom.OnClick(func() {
					if noClose || !h.Show() {
						return
					}
					h.CloseCurrent()
				}),
			)
		}
	},
}
