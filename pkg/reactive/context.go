package reactive

// SetValue stores a context value on this scope. Descendants see it through
// Lookup until one of them shadows the key.
func (o *Owner) SetValue(key, value any) {
	o.valuesMu.Lock()
	defer o.valuesMu.Unlock()
	if o.values == nil {
		o.values = make(map[any]any)
	}
	o.values[key] = value
}

// Lookup finds key on this scope or the nearest ancestor.
func (o *Owner) Lookup(key any) (any, bool) {
	for cur := o; cur != nil; cur = cur.parent {
		cur.valuesMu.RLock()
		v, ok := cur.values[key]
		cur.valuesMu.RUnlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Context is a typed key for scope values.
//
//	var Theme = reactive.NewContext("light")
//	Theme.Provide(owner, "dark")
//	Theme.From(child) // "dark"
type Context[T any] struct {
	name     string
	fallback T
}

// NewContext creates a context whose From returns fallback when no ancestor
// provides a value.
func NewContext[T any](fallback T) *Context[T] {
	return &Context[T]{fallback: fallback}
}

// NewNamedContext is NewContext with a name used in diagnostics.
func NewNamedContext[T any](name string, fallback T) *Context[T] {
	return &Context[T]{name: name, fallback: fallback}
}

// Name returns the diagnostic name.
func (c *Context[T]) Name() string {
	return c.name
}

// Provide stores value on owner.
func (c *Context[T]) Provide(owner *Owner, value T) {
	owner.SetValue(c, value)
}

// From returns the nearest provided value, or the fallback.
func (c *Context[T]) From(owner *Owner) T {
	v, ok := c.Lookup(owner)
	if !ok {
		return c.fallback
	}
	return v
}

// Lookup is From with an explicit found flag.
func (c *Context[T]) Lookup(owner *Owner) (T, bool) {
	if owner != nil {
		if v, ok := owner.Lookup(c); ok {
			if typed, ok := v.(T); ok {
				return typed, true
			}
		}
	}
	return c.fallback, false
}
