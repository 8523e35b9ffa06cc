package overlay

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/stackkit/pkg/reactive"
	"github.com/vango-dev/stackkit/pkg/signals"
	"github.com/vango-dev/stackkit/pkg/vdom"
)

// API builds stacks and resolves handles for one configuration of a
// registry.
type API struct {
	reg      *Registry
	hooks    Hooks
	defaults Config
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	loadCtx  context.Context

	stacks    *reactive.Context[*Stack]
	instances *reactive.Context[*instanceScope]
	backdrops *reactive.Context[*backdropScope]
}

// Option configures an API.
type Option func(*API)

// WithHooks sets the open and close hooks.
func WithHooks(h Hooks) Option {
	return func(a *API) {
		a.hooks = h
	}
}

// WithDefaultConfig sets the config components inherit.
func WithDefaultConfig(c Config) Option {
	return func(a *API) {
		a.defaults = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		a.logger = l
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(a *API) {
		a.metrics = m
	}
}

// WithTracer sets the tracer for open, close and load spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *API) {
		a.tracer = t
	}
}

// WithLoadContext sets the context component loads run under.
func WithLoadContext(ctx context.Context) Option {
	return func(a *API) {
		a.loadCtx = ctx
	}
}

// Create builds an API over the registry.
func (r *Registry) Create(opts ...Option) *API {
	a := &API{
		reg:     r,
		logger:  slog.Default().With("component", "overlay"),
		tracer:  defaultTracer(),
		loadCtx: context.Background(),

		stacks:    reactive.NewNamedContext[*Stack]("overlay.stack", nil),
		instances: reactive.NewNamedContext[*instanceScope]("overlay.instance", nil),
		backdrops: reactive.NewNamedContext[*backdropScope]("overlay.backdrop", nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the registry the API was created from.
func (a *API) Registry() *Registry {
	return a.reg
}

func (a *API) configOf(c *Component) Config {
	cfg := builtinConfig.with(a.defaults)
	if c != nil {
		cfg = cfg.with(c.Config)
	}
	return cfg
}

// ProviderProps configure a stack.
type ProviderProps struct {
	// Data, when set, is read instead of the stack's own entries.
	Data func() []Entry

	// OnChange receives every new list of entries. With Data set and no
	// OnChange the stack is read-only.
	OnChange func([]Entry)

	// Children renders the content around the overlays. It receives the
	// stack's Render.
	Children func(renderOverlays func(renderCtx any) *vdom.VNode) *vdom.VNode
}

// StackProvider creates a stack in a child scope of owner and makes it
// visible to the Use functions called with owner or any scope below it.
// Disposing owner disposes the stack.
func (a *API) StackProvider(owner *reactive.Owner, props ProviderProps) *Stack {
	if owner == nil {
		owner = reactive.NewOwner(nil)
	}
	s := &Stack{
		api:       a,
		owner:     reactive.NewOwner(owner),
		logger:    a.logger,
		records:   make(map[int]*record),
		removed:   make(map[int]bool),
		admitted:  make(map[string]bool),
		loading:   make(map[string]bool),
		backdrops: make(map[*Backdrop]*backdropScope),
		watchers:  make(map[int]func()),
		children:  props.Children,
	}

	s.entries = signals.NewArray[Entry](nil)
	s.bound = signals.WrapBound(s.entries.Base(), props.Data, props.OnChange)
	signals.ExtendWithSetter(s.entries.Base(), "notify",
		func(signals.Wired[[]Entry]) struct{} { return struct{}{} },
		func(prev signals.Wired[[]Entry], _ struct{}) func([]Entry) []Entry {
			return func(v []Entry) []Entry {
				out := prev.Set(v)
				s.notify()
				return out
			}
		},
	)
	s.state = signals.NewDeepObject(nil)

	a.stacks.Provide(owner, s)
	s.owner.OnCleanup(s.shutdown)
	return s
}

func (a *API) stackFrom(owner *reactive.Owner, op string) *Stack {
	s, ok := a.stacks.Lookup(owner)
	if !ok || s == nil {
		panic(misuse("O002", "%s called without a stack provider in scope", op))
	}
	return s
}

// UseStackController returns the controller of the stack in scope. It
// panics with O002 outside a stack provider.
func (a *API) UseStackController(owner *reactive.Owner) Controller {
	return Controller{s: a.stackFrom(owner, "UseStackController")}
}

// UseStackBase returns the rendering side of the stack in scope.
func (a *API) UseStackBase(owner *reactive.Owner) Base {
	return Base{s: a.stackFrom(owner, "UseStackBase")}
}

// UseOverlay returns the handle of the overlay whose scope owner belongs to.
// It panics with O001 outside an overlay.
func (a *API) UseOverlay(owner *reactive.Owner) *InstanceHandle {
	inst, ok := a.instances.Lookup(owner)
	if !ok || inst == nil {
		panic(misuse("O001", "UseOverlay called outside an overlay instance"))
	}
	return &InstanceHandle{inst: inst, owner: owner}
}

// UseLayout returns the layout handle of the overlay whose scope owner
// belongs to. It panics with O001 outside an overlay.
func (a *API) UseLayout(owner *reactive.Owner) *LayoutHandle {
	inst, ok := a.instances.Lookup(owner)
	if !ok || inst == nil {
		panic(misuse("O001", "UseLayout called outside an overlay instance"))
	}
	return &LayoutHandle{inst: inst}
}

// UseBackdrop returns the handle of the backdrop whose scope owner belongs
// to. It panics with O005 outside a backdrop.
func (a *API) UseBackdrop(owner *reactive.Owner) *BackdropHandle {
	b, ok := a.backdrops.Lookup(owner)
	if !ok || b == nil {
		panic(misuse("O005", "UseBackdrop called outside a backdrop"))
	}
	return &BackdropHandle{scope: b}
}
