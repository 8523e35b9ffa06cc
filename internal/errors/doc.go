// Package errors provides structured, coded errors for stackkit.
//
// Every error carries a code (e.g. "O003") that maps to a registered
// message and explanation. Overlay misuse panics with one of these errors so
// the panic message says what went wrong and how to fix it:
//
//	panic(errors.New("O003").
//	    WithDetail(`overlay "confirm" (id 4) is still present`).
//	    WithSuggestion("Close the overlay before signalling that it can be removed."))
//
// # Categories
//
//   - runtime: API misuse detected while the stack is running
//   - config: invalid configuration files or values
//   - persist: failures reading or writing persisted stacks
//
// Format renders an error for a terminal, FormatJSON for machine output.
package errors
