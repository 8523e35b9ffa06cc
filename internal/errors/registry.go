package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Overlay runtime errors (O001-O099)
	// ============================================

	"O001": {
		Category:   CategoryRuntime,
		Message:    "Overlay operation called outside an overlay instance",
		Suggestion: "Call UseOverlay or UseLayout with the owner passed to the overlay's Setup function.",
	},
	"O002": {
		Category:   CategoryRuntime,
		Message:    "Stack operation called outside a stack provider",
		Suggestion: "Create the stack with API.StackProvider and pass an owner inside its scope.",
	},
	"O003": {
		Category:   CategoryRuntime,
		Message:    "SafeToRemove called while the overlay is still present",
		Suggestion: "Close the overlay first. SafeToRemove signals that the exit transition has finished.",
	},
	"O004": {
		Category:   CategoryRuntime,
		Message:    "SafeToRemove called twice",
		Suggestion: "Call SafeToRemove once per overlay, after its exit transition.",
	},
	"O005": {
		Category:   CategoryRuntime,
		Message:    "Backdrop operation called outside a backdrop",
		Suggestion: "Call UseBackdrop with the owner passed to the backdrop's Setup function.",
	},
	"O006": {
		Category:   CategoryRuntime,
		Message:    "Unknown overlay key",
		Suggestion: "Register a loader for the key in NewRegistry.",
	},
	"O007": {
		Category: CategoryRuntime,
		Message:  "Overlay component failed to load",
	},

	// ============================================
	// Config errors (C001-C099)
	// ============================================

	"C001": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Suggestion: "Check stackkit.json for syntax errors.",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"C003": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Run 'stackkit init' to write a default stackkit.json.",
	},

	// ============================================
	// Persistence errors (P001-P099)
	// ============================================

	"P001": {
		Category: CategoryPersist,
		Message:  "Failed to load persisted stack",
	},
	"P002": {
		Category: CategoryPersist,
		Message:  "Failed to save stack",
	},
	"P003": {
		Category:   CategoryPersist,
		Message:    "Malformed persisted stack",
		Suggestion: "Discard the stored value; it was not written by this version.",
	},

	// ============================================
	// Inspector errors (I001-I099)
	// ============================================

	"I001": {
		Category: CategoryInspect,
		Message:  "No open overlay with this id",
	},
	"I002": {
		Category: CategoryInspect,
		Message:  "Malformed request body",
	},
	"I003": {
		Category:   CategoryInspect,
		Message:    "Inspector is not running",
		Suggestion: "Start Server.Run before serving requests.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
