package hostfunc

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Func is a host function as seen by an out-of-process guest: named
// arguments in, one JSON-compatible result out.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Registry maps guest-visible names to host functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

// Unregister removes name. Removing an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.funcs, name)
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	return fn, ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Positional adapts a positional function to the named-argument form. The
// guest passes its call arguments as a list under the "args" key.
func Positional(fn func(args ...any) (any, error)) Func {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, ok := args["args"]
		if !ok || raw == nil {
			return fn()
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("args: expected list, got %T", raw)
		}
		return fn(list...)
	}
}
