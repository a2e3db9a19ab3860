// Package javascript provides the in-process JavaScript engine for mode
// programs, backed by goja.
package javascript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caffeineduck/eyesy/interp"
	"github.com/dop251/goja"
)

const engineName = "javascript"

// JavaScript implements the interp.Engine interface.
type JavaScript struct {
	logger *slog.Logger
}

// Option configures the engine.
type Option func(*JavaScript)

// WithLogger sets the logger receiving console output from mode code.
func WithLogger(logger *slog.Logger) Option {
	return func(j *JavaScript) {
		j.logger = logger
	}
}

// New returns a JavaScript engine.
func New(opts ...Option) *JavaScript {
	j := &JavaScript{}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	return j
}

// Name returns "javascript".
func (j *JavaScript) Name() string {
	return engineName
}

// Init creates a fresh goja runtime with console bindings installed.
func (j *JavaScript) Init(ctx context.Context, progress interp.ProgressFunc) (interp.Runtime, error) {
	progress(interp.Progress{Status: "Creating runtime...", Fraction: 0.1})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &runtime{logger: j.logger}
	progress(interp.Progress{Status: "Installing builtins...", Fraction: 0.5})
	if err := r.reset(); err != nil {
		return nil, err
	}

	progress(interp.Progress{Status: "Ready!", Fraction: 1.0})
	return r, nil
}

// runtime wraps one goja.Runtime. Reset swaps in a new VM, which
// invalidates callables handed out before.
type runtime struct {
	vm     *goja.Runtime
	logger *slog.Logger
	closed bool
}

// function is a JavaScript function value held by the host.
type function struct {
	vm    *goja.Runtime
	fn    goja.Callable
	value goja.Value
}

func (f *function) Engine() string { return engineName }

func (r *runtime) reset() error {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	r.vm = vm
	return vm.Set("console", r.console())
}

func (r *runtime) console() *goja.Object {
	obj := r.vm.NewObject()
	logAt := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]any, len(call.Arguments))
			for i, a := range call.Arguments {
				args[i] = a.String()
			}
			r.logger.Log(context.Background(), level, fmt.Sprint(args...), "source", "console")
			return goja.Undefined()
		}
	}
	obj.Set("log", logAt(slog.LevelInfo))
	obj.Set("info", logAt(slog.LevelInfo))
	obj.Set("warn", logAt(slog.LevelWarn))
	obj.Set("error", logAt(slog.LevelError))
	return obj
}

func (r *runtime) Exec(source string) (any, error) {
	v, err := r.vm.RunString(source)
	if err != nil {
		return nil, scriptError(err)
	}
	return r.export(v), nil
}

func (r *runtime) Get(name string) (any, bool, error) {
	v := r.vm.Get(name)
	if v == nil {
		return nil, false, nil
	}
	return r.export(v), true, nil
}

func (r *runtime) Set(name string, value any) error {
	return r.vm.Set(name, r.toValue(value))
}

// Delete removes name from the global object. Bindings created by top-level
// var and function declarations are not configurable; those are set to
// undefined instead.
func (r *runtime) Delete(name string) error {
	global := r.vm.GlobalObject()
	if err := global.Delete(name); err != nil {
		return global.Set(name, goja.Undefined())
	}
	return nil
}

func (r *runtime) SetAttr(name, attr string, value any) error {
	v := r.vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return fmt.Errorf("global %q not found", name)
	}
	return v.ToObject(r.vm).Set(attr, r.toValue(value))
}

func (r *runtime) Call(fn interp.Callable, args ...any) (any, error) {
	f, ok := fn.(*function)
	if !ok {
		return nil, interp.ErrNotCallable
	}
	if f.vm != r.vm {
		return nil, errors.New("callable belongs to a discarded namespace")
	}

	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = r.toValue(a)
	}
	v, err := f.fn(goja.Undefined(), jsArgs...)
	if err != nil {
		return nil, scriptError(err)
	}
	return r.export(v), nil
}

func (r *runtime) Reset() error {
	return r.reset()
}

func (r *runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.vm.Interrupt("runtime closed")
	return nil
}

// scriptError flattens goja exceptions into the interpreter's diagnostic text.
func scriptError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return &interp.InterpreterError{Message: ex.Error()}
	}
	return &interp.InterpreterError{Message: err.Error()}
}
