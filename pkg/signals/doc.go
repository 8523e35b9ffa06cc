// Package signals layers reusable behaviour onto reactive signals.
//
// Every kind in this package is an extension of a plain *Signal[T]. Kinds
// share the signal they wrap, so wrapping one kind with another yields a
// value that still answers to both:
//
//	arr := signals.NewArray([]int{})
//	hist := signals.WrapHistory(arr.Base())
//
//	arr.Push(1)        // recorded by hist
//	arr.Push(2)
//	hist.Back()        // arr.Get() == []int{1}
//
// Extensions never capture the functions of the layer they were built on.
// They call through a Wired view that always resolves the current read and
// write of the shared signal, so a layer added later (history, binding) sees
// writes issued by layers added earlier. Composition order is observable:
// the outermost write interceptor runs first.
//
// Writes never throw for missing rows or paths; they return a found flag and
// leave the value untouched. Positional writes with an index before the start
// of a sequence return an *IndexOutOfBoundsError.
package signals
