package interp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// mockEngine implements Engine for testing Host and Session logic
// without a real interpreter.
type mockEngine struct {
	inits   atomic.Int32
	gate    chan struct{} // when non-nil, Init blocks until it is closed
	started chan struct{}
	failN   atomic.Int32 // number of leading Init calls that fail
}

func (e *mockEngine) Name() string {
	return "mock"
}

func (e *mockEngine) Init(ctx context.Context, progress ProgressFunc) (Runtime, error) {
	n := e.inits.Add(1)
	progress(Progress{Status: "Starting...", Fraction: 0.5})
	if e.started != nil {
		select {
		case e.started <- struct{}{}:
		default:
		}
	}
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= e.failN.Load() {
		return nil, errors.New("fetch failed")
	}
	progress(Progress{Status: "Ready!", Fraction: 1})
	return newMockRuntime(), nil
}

// mockRuntime keeps globals in a map. Exec fails for the source "fail"
// and echoes anything else back.
type mockRuntime struct {
	mu      sync.Mutex
	globals map[string]any
	closed  bool
}

type mockCallable struct {
	fn func(args ...any) (any, error)
}

func (c *mockCallable) Engine() string { return "mock" }

func newMockRuntime() *mockRuntime {
	return &mockRuntime{globals: make(map[string]any)}
}

func (r *mockRuntime) Exec(source string) (any, error) {
	if source == "fail" {
		return nil, errors.New("SyntaxError: invalid syntax")
	}
	return source, nil
}

func (r *mockRuntime) Get(name string) (any, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.globals[name]
	return v, ok, nil
}

func (r *mockRuntime) Set(name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals[name] = value
	return nil
}

func (r *mockRuntime) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.globals, name)
	return nil
}

func (r *mockRuntime) SetAttr(name, attr string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.globals[name].(Object)
	if !ok {
		return errors.New("not an object")
	}
	obj[attr] = value
	return nil
}

func (r *mockRuntime) Call(fn Callable, args ...any) (any, error) {
	c, ok := fn.(*mockCallable)
	if !ok {
		return nil, ErrNotCallable
	}
	return c.fn(args...)
}

func (r *mockRuntime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals = make(map[string]any)
	return nil
}

func (r *mockRuntime) Close() error {
	r.closed = true
	return nil
}
