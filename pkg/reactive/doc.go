// Package reactive is the fine-grained reactive runtime the signal kinds and
// the overlay stack are built on.
//
// Reads performed while a listener (memo or effect) is active subscribe that
// listener; writes notify subscribers. Ownership scopes (Owner) form a tree
// and tear down everything created under them when disposed.
//
//	count := reactive.NewSignal(0)
//	doubled := reactive.NewMemo(func() int { return count.Get() * 2 })
//
//	root := reactive.NewOwner(nil)
//	reactive.WithOwner(root, func() {
//	    reactive.CreateEffect(func() reactive.Cleanup {
//	        fmt.Println(doubled.Get())
//	        return nil
//	    })
//	})
//
//	count.Set(2)
//	root.RunPendingEffects() // prints 4
//
// Effects never run synchronously inside Set. They are queued on their owner
// and flushed by RunPendingEffects, so a write can never re-enter the code
// that is reading the same signal.
//
// Tracking state is kept per goroutine. Work started on another goroutine
// must re-establish its owner with WithOwner.
package reactive
