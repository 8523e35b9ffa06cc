// Package overlay manages a stack of lazily loaded overlays (modals, sheets,
// banners) on top of the reactive runtime.
//
// A Registry maps keys to loaders. Create builds an API, and each
// StackProvider call builds an independent Stack:
//
//	reg := overlay.NewRegistry(map[string]overlay.Loader{
//	    "confirm": overlay.Static(confirmDialog),
//	}, overlay.WithDefaultLayout(overlay.ModalLayout))
//
//	api := reg.Create(overlay.WithMetrics(metrics))
//	stack := api.StackProvider(owner, overlay.ProviderProps{})
//
//	res := api.UseStackController(owner).Open("confirm", overlay.Props{"text": "Delete?"}, nil)
//	answer, err := res.Result.Await(ctx)
//
// Each open entry moves through open (component pending), open (component
// resolved), closing (not present, exit transition running) and removed.
// Closing resolves the result; removal happens when the layout calls
// SafeToRemove.
//
// Render returns a fragment holding one backdrop per distinct Backdrop in
// use followed by one node per entry, keyed "backdrop:<name>" and
// "overlay:<id>". A panic while rendering clears the stack instead of
// propagating.
//
// Stack methods and handles must be used from the goroutine that renders the
// stack. Component loads run on their own goroutines and hand their results
// back through an inbox drained by the next stack call.
package overlay
