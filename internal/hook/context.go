package hook

import "sort"

// Context is the state shared by the handlers of a single dispatch.
//
// A fresh Context is created per dispatch and never reused. Handlers mutate
// it in place and every later handler of the same pass sees the change.
// Context is not safe for concurrent use; handlers run one at a time.
type Context struct {
	hook   string
	params []any
	fields map[string]any
}

// NewContext creates a context for a dispatch of hook with params.
// The params slice is copied.
func NewContext(hook string, params ...any) *Context {
	p := make([]any, len(params))
	copy(p, params)
	return &Context{
		hook:   hook,
		params: p,
		fields: make(map[string]any),
	}
}

// Hook returns the name of the hook being dispatched.
func (c *Context) Hook() string {
	return c.hook
}

// Params returns a copy of the dispatch parameters.
func (c *Context) Params() []any {
	p := make([]any, len(c.params))
	copy(p, c.params)
	return p
}

// Param returns the i-th dispatch parameter, or nil if out of range.
func (c *Context) Param(i int) any {
	if i < 0 || i >= len(c.params) {
		return nil
	}
	return c.params[i]
}

// NumParams returns the number of dispatch parameters.
func (c *Context) NumParams() int {
	return len(c.params)
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.fields[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (c *Context) Set(key string, value any) {
	c.fields[key] = value
}

// Delete removes key.
func (c *Context) Delete(key string) {
	delete(c.fields, key)
}

// Has reports whether key is set.
func (c *Context) Has(key string) bool {
	_, ok := c.fields[key]
	return ok
}

// Keys returns the set keys in sorted order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns a shallow copy of the extension fields.
func (c *Context) Fields() map[string]any {
	out := make(map[string]any, len(c.fields))
	for k, v := range c.fields {
		out[k] = v
	}
	return out
}

// Len returns the number of extension fields.
func (c *Context) Len() int {
	return len(c.fields)
}

// Value returns the value under key converted to T.
// The second result is false when the key is missing or holds another type.
func Value[T any](c *Context, key string) (T, bool) {
	var zero T
	v, ok := c.fields[key]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
