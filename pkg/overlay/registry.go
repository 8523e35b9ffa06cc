package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Registry maps overlay keys to loaders and caches resolved components.
// A component never becomes unresolved again once loaded.
type Registry struct {
	loaders       map[string]Loader
	defaultLayout *Layout
	logger        *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	loaded map[string]*Component
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaultLayout sets the layout used by components without one.
func WithDefaultLayout(l *Layout) RegistryOption {
	return func(r *Registry) {
		r.defaultLayout = l
	}
}

// WithRegistryLogger sets the logger for load failures.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates a registry for loaders.
func NewRegistry(loaders map[string]Loader, opts ...RegistryOption) *Registry {
	r := &Registry{
		loaders: make(map[string]Loader, len(loaders)),
		loaded:  make(map[string]*Component),
		logger:  slog.Default().With("component", "overlay-registry"),
	}
	for k, l := range loaders {
		r.loaders[k] = l
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Keys returns the registered keys in order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.loaders))
	for k := range r.loaders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.loaders[key]
	return ok
}

// Component returns the component for key if it has been loaded.
func (r *Registry) Component(key string) (*Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.loaded[key]
	return c, ok
}

// Load resolves key, running its loader at most once at a time. Failed
// loads are not cached and are retried by the next call.
func (r *Registry) Load(ctx context.Context, key string) (*Component, error) {
	if c, ok := r.Component(key); ok {
		return c, nil
	}
	loader, ok := r.loaders[key]
	if !ok {
		return nil, misuse("O006", "no loader for %q", key)
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if c, ok := r.Component(key); ok {
			return c, nil
		}
		c, err := loader(ctx)
		if err == nil && c == nil {
			err = fmt.Errorf("loader for %q returned no component", key)
		}
		if err != nil {
			r.logger.Error("overlay load failed", "key", key, "error", err)
			return nil, err
		}
		r.mu.Lock()
		r.loaded[key] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Component), nil
}

// Preload resolves keys concurrently. With no keys every registered key is
// loaded. The first error cancels the remaining loads.
func (r *Registry) Preload(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		keys = r.Keys()
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		g.Go(func() error {
			if _, err := r.Load(ctx, key); err != nil {
				return fmt.Errorf("preload %q: %w", key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Registry) layoutOf(c *Component) *Layout {
	switch {
	case c != nil && c.Layout != nil:
		return c.Layout
	case r.defaultLayout != nil:
		return r.defaultLayout
	default:
		return IdentityLayout
	}
}
