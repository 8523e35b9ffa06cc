package overlay

import (
	"context"

	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/vdom"
)

// Props are the properties of an overlay, layout or backdrop.
type Props = map[string]any

// Entry is one overlay on the stack.
type Entry struct {
	Key   string `json:"key"`
	ID    int    `json:"id"`
	Props Props  `json:"props,omitempty"`
}

// Current identifies the topmost present entry. ID and Index are -1 when no
// entry is present.
type Current struct {
	Index int    `json:"index"`
	ID    int    `json:"id"`
	Key   string `json:"key"`
}

var noCurrent = Current{Index: -1, ID: -1}

// RenderFunc produces the node of a mounted overlay, layout or backdrop.
type RenderFunc func() *vdom.VNode

// Component is a resolved overlay.
type Component struct {
	// Name identifies the component in logs and metrics.
	Name string

	// Setup runs once when the entry is first rendered. props reads the
	// entry's current props.
	Setup func(h *InstanceHandle, props func() Props) RenderFunc

	// Layout wraps the component. Nil falls back to the registry default.
	Layout *Layout

	// Config overrides the API default config.
	Config Config

	// DefaultResult resolves the result when Close is called without one.
	DefaultResult any
}

// Layout wraps an overlay and controls its transitions.
type Layout struct {
	Name string

	// Setup runs once per entry. props reads the layout props the overlay
	// set with WithLayoutProps; child renders the overlay itself.
	Setup func(h *LayoutHandle, props func() Props, child RenderFunc) RenderFunc

	// Backdrop is rendered once for all entries using it.
	Backdrop *Backdrop

	// ExitTransition keeps closed entries mounted until the layout calls
	// SafeToRemove. Without it a closed entry is removed at once.
	ExitTransition bool
}

// Backdrop is a shared layer behind overlays.
type Backdrop struct {
	Name string

	// Setup runs once per mounted backdrop. props reads the backdrop props
	// of the entry the backdrop currently follows.
	Setup func(h *BackdropHandle, props func() Props) RenderFunc
}

// IdentityLayout renders the overlay unchanged and has no backdrop.
var IdentityLayout = &Layout{
	Name: "identity",
	Setup: func(_ *LayoutHandle, _ func() Props, child RenderFunc) RenderFunc {
		return child
	},
}

// Loader resolves a component on first use.
type Loader func(ctx context.Context) (*Component, error)

// Static returns a loader that resolves to c immediately.
func Static(c *Component) Loader {
	return func(context.Context) (*Component, error) { return c, nil }
}

// DuplicateBehavior decides what opening an already present key does.
type DuplicateBehavior string

const (
	// DuplicateAllow opens another entry next to the present ones.
	DuplicateAllow DuplicateBehavior = "allow"
	// DuplicateReplace closes the present entries, then opens.
	DuplicateReplace DuplicateBehavior = "replace"
	// DuplicateRemove closes the present entries and does not open. With no
	// present entry it opens normally, so repeated opens toggle.
	DuplicateRemove DuplicateBehavior = "remove"
)

// Valid reports whether d is a known behavior or empty.
func (d DuplicateBehavior) Valid() bool {
	switch d {
	case "", DuplicateAllow, DuplicateReplace, DuplicateRemove:
		return true
	}
	return false
}

// Limit restricts how often a key may be opened.
type Limit string

const (
	LimitNone Limit = "none"
	// LimitOncePerSession admits the first open of a key in a stack's
	// lifetime; later opens resolve nil immediately.
	LimitOncePerSession Limit = "once-per-session"
)

// Valid reports whether l is a known limit or empty.
func (l Limit) Valid() bool {
	switch l {
	case "", LimitNone, LimitOncePerSession:
		return true
	}
	return false
}

// Config controls duplicate handling, limits and render guards. Zero fields
// inherit from the next level: component, then API default, then built-in.
type Config struct {
	DuplicateBehavior DuplicateBehavior `json:"duplicateBehavior,omitempty"`
	Limit             Limit             `json:"limit,omitempty"`

	// ValidateRenderContext is evaluated on every render with the value
	// passed to Render. Entries whose guard fails are not rendered.
	ValidateRenderContext func(renderCtx any) bool `json:"-"`
}

var builtinConfig = Config{DuplicateBehavior: DuplicateAllow, Limit: LimitNone}

func (c Config) with(over Config) Config {
	if over.DuplicateBehavior != "" {
		c.DuplicateBehavior = over.DuplicateBehavior
	}
	if over.Limit != "" {
		c.Limit = over.Limit
	}
	if over.ValidateRenderContext != nil {
		c.ValidateRenderContext = over.ValidateRenderContext
	}
	return c
}

func (c Config) accepts(renderCtx any) bool {
	return c.ValidateRenderContext == nil || c.ValidateRenderContext(renderCtx)
}

// Hooks observe stack activity.
type Hooks struct {
	// Open runs at the start of every Open call.
	Open func(key string, props Props, openCtx any)
	// Close runs when an entry closes, with the result it resolved.
	Close func(key string, result any)
}

// MisuseError is the panic value for API misuse such as calling
// SafeToRemove twice. Code identifies the misuse.
type MisuseError = errors.Error

func misuse(code, format string, args ...any) *MisuseError {
	return errors.New(code).WithDetailf(format, args...)
}
