// Package python provides the Python engine for mode programs: a WASI
// Python interpreter executed by wazero and driven over a line protocol.
//
// The interpreter binary is not embedded. Fetch it with
//
//	go generate ./language/python
//
// or point [WithModulePath] at any WASI build of CPython or RustPython.
package python

//go:generate go run ../../internal/tools/download -url https://github.com/RustPython/RustPython/releases/latest/download/rustpython.wasm -out python.wasm

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caffeineduck/eyesy/hostfunc"
	"github.com/caffeineduck/eyesy/interp"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

//go:embed stdlib.py
var stdlib string

const engineName = "python"

// Python implements the interp.Engine interface.
type Python struct {
	cfg config
}

type config struct {
	modulePath       string
	module           []byte
	cacheDir         string
	diskCache        bool
	memoryLimitPages uint32
	startTimeout     time.Duration
	callTimeout      time.Duration
	logger           *slog.Logger
}

// Option configures the Python engine.
type Option func(*config)

// WithModulePath sets the path of the interpreter's WASI module.
func WithModulePath(path string) Option {
	return func(c *config) {
		c.modulePath = path
	}
}

// WithModule supplies the interpreter module bytes directly.
func WithModule(wasm []byte) Option {
	return func(c *config) {
		c.module = wasm
	}
}

// WithDiskCache enables the persistent compilation cache. Optionally
// provide a directory; otherwise ~/.cache/eyesy or XDG_CACHE_HOME/eyesy is used.
func WithDiskCache(dir ...string) Option {
	return func(c *config) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit caps guest memory in 64KB pages. Zero means no limit.
func WithMemoryLimit(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}

// WithCallTimeout bounds a single round trip to the guest.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) {
		c.callTimeout = d
	}
}

// WithLogger sets the logger receiving guest output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New returns a Python engine.
func New(opts ...Option) *Python {
	cfg := config{
		modulePath:   "python.wasm",
		startTimeout: 30 * time.Second,
		callTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Python{cfg: cfg}
}

// Name returns "python".
func (p *Python) Name() string {
	return engineName
}

// Init reads and compiles the interpreter module, starts it in session
// mode and waits for its ready signal.
func (p *Python) Init(ctx context.Context, progress interp.ProgressFunc) (interp.Runtime, error) {
	progress(interp.Progress{Status: "Loading interpreter...", Fraction: 0.1})
	wasm := p.cfg.module
	if wasm == nil {
		data, err := os.ReadFile(p.cfg.modulePath)
		if err != nil {
			return nil, fmt.Errorf("read interpreter module: %w", err)
		}
		wasm = data
	}

	// The runtime outlives Init, so it is not bound to ctx.
	rtCtx := context.Background()

	var cache wazero.CompilationCache
	if p.cfg.diskCache {
		dir := p.cfg.cacheDir
		if dir == "" {
			dir = defaultCacheDir()
		}
		c, err := wazero.NewCompilationCacheWithDir(dir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
		cache = c
	}

	rtConfig := wazero.NewRuntimeConfig()
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if p.cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(p.cfg.memoryLimitPages)
	}

	wrt := wazero.NewRuntimeWithConfig(rtCtx, rtConfig)
	cleanup := func() {
		wrt.Close(rtCtx)
		if cache != nil {
			cache.Close(rtCtx)
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(rtCtx, wrt); err != nil {
		cleanup()
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	progress(interp.Progress{Status: "Compiling interpreter...", Fraction: 0.3})
	compiled, err := wrt.CompileModule(ctx, wasm)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("compile interpreter: %w", err)
	}

	progress(interp.Progress{Status: "Starting interpreter...", Fraction: 0.5})
	r := &runtime{
		cfg:      p.cfg,
		logger:   p.cfg.logger.With("engine", engineName),
		registry: hostfunc.NewRegistry(),
		funcs:    make(map[string]interp.Func),
		exited:   make(chan error, 1),
		cleanup:  cleanup,
	}

	stdinReader, stdinWriter := io.Pipe()
	r.stdin = stdinWriter
	r.stdinReader = stdinReader
	r.protocol = newSessionProtocol(rtCtx, r.registry, stdinWriter, &r.writeMu, r.logger)
	r.protocol.onFree = r.forgetFunc

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(&lineLogger{logger: r.logger}).
		WithStderr(r.protocol).
		WithStdin(stdinReader).
		WithArgs("python", "-c", stdlib).
		WithName("")

	go func() {
		mod, err := wrt.InstantiateModule(rtCtx, compiled, moduleConfig)
		if mod != nil {
			mod.Close(rtCtx)
		}
		if err == nil {
			err = errors.New("interpreter exited")
		}
		r.exited <- err
	}()

	select {
	case <-r.protocol.Ready():
	case err := <-r.exited:
		r.Close()
		return nil, fmt.Errorf("start interpreter: %w", err)
	case <-time.After(p.cfg.startTimeout):
		r.Close()
		return nil, errors.New("interpreter start timeout")
	case <-ctx.Done():
		r.Close()
		return nil, ctx.Err()
	}

	progress(interp.Progress{Status: "Setting up environment...", Fraction: 0.8})
	progress(interp.Progress{Status: "Ready!", Fraction: 1.0})
	return r, nil
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "eyesy")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "eyesy")
	}
	return filepath.Join(os.TempDir(), "eyesy-cache")
}

// runtime is one running guest interpreter.
type runtime struct {
	cfg      config
	logger   *slog.Logger
	registry *hostfunc.Registry
	protocol *sessionProtocol

	stdin       *io.PipeWriter
	stdinReader *io.PipeReader
	writeMu     sync.Mutex

	funcMu  sync.Mutex
	funcs   map[string]interp.Func
	funcSeq int

	seq      atomic.Uint64
	relMu    sync.Mutex
	released []int64

	exited  chan error
	cleanup func()
	closed  bool
}

// handle is a guest callable kept alive in the guest's handle table. The
// guest counts one reference per handle the host decodes; dropping the
// handle releases it with the next command.
type handle struct {
	id    int64
	owner *runtime
}

func (h *handle) Engine() string { return engineName }

type command struct {
	ID      uint64  `json:"id"`
	Release []int64 `json:"release,omitempty"`
	Type    string  `json:"type"`
	Code  string `json:"code,omitempty"`
	Name  string `json:"name,omitempty"`
	Attr  string `json:"attr,omitempty"`
	Value any    `json:"value,omitempty"`
	Fn    any    `json:"fn,omitempty"`
	Args  []any  `json:"args,omitempty"`
}

func (r *runtime) roundTrip(cmd command) (reply, error) {
	if r.closed {
		return reply{}, interp.ErrSessionClosed
	}

	cmd.ID = r.seq.Add(1)
	cmd.Release = r.takeReleased()
	data, err := marshalLine(cmd)
	if err != nil {
		r.requeue(cmd.Release)
		return reply{}, err
	}

	r.protocol.expect(cmd.ID)
	// A reply that arrived after its command timed out may still be queued.
	select {
	case <-r.protocol.Replies():
	default:
	}

	r.writeMu.Lock()
	_, err = r.stdin.Write(data)
	r.writeMu.Unlock()
	if err != nil {
		r.requeue(cmd.Release)
		return reply{}, fmt.Errorf("write command: %w", err)
	}

	timeout := time.NewTimer(r.cfg.callTimeout)
	defer timeout.Stop()
	for {
		select {
		case rep := <-r.protocol.Replies():
			if rep.ID != cmd.ID {
				continue
			}
			if rep.Error != "" {
				return rep, &interp.InterpreterError{Message: rep.Error}
			}
			return rep, nil
		case err := <-r.exited:
			r.exited <- err
			return reply{}, fmt.Errorf("interpreter exited: %w", err)
		case <-timeout.C:
			return reply{}, fmt.Errorf("timeout after %v", r.cfg.callTimeout)
		}
	}
}

// newHandle wraps a guest handle id and arranges for its release once the
// host drops it.
func (r *runtime) newHandle(id int64) *handle {
	h := &handle{id: id, owner: r}
	goruntime.AddCleanup(h, r.release, id)
	return h
}

func (r *runtime) release(id int64) {
	r.relMu.Lock()
	r.released = append(r.released, id)
	r.relMu.Unlock()
}

func (r *runtime) takeReleased() []int64 {
	r.relMu.Lock()
	defer r.relMu.Unlock()
	ids := r.released
	r.released = nil
	return ids
}

func (r *runtime) requeue(ids []int64) {
	if len(ids) == 0 {
		return
	}
	r.relMu.Lock()
	r.released = append(r.released, ids...)
	r.relMu.Unlock()
}

// forgetFunc drops a host function the guest has let go of.
func (r *runtime) forgetFunc(name string) {
	r.funcMu.Lock()
	delete(r.funcs, name)
	r.funcMu.Unlock()
}

func (r *runtime) Exec(source string) (any, error) {
	rep, err := r.roundTrip(command{Type: "exec", Code: source})
	if err != nil {
		return nil, err
	}
	return r.decode(rep.Value), nil
}

func (r *runtime) Get(name string) (any, bool, error) {
	rep, err := r.roundTrip(command{Type: "get", Name: name})
	if err != nil {
		return nil, false, err
	}
	bound := rep.Bound != nil && *rep.Bound
	return r.decode(rep.Value), bound, nil
}

func (r *runtime) Set(name string, value any) error {
	_, err := r.roundTrip(command{Type: "set", Name: name, Value: r.encode(value)})
	return err
}

func (r *runtime) Delete(name string) error {
	_, err := r.roundTrip(command{Type: "delete", Name: name})
	return err
}

func (r *runtime) SetAttr(name, attr string, value any) error {
	_, err := r.roundTrip(command{Type: "setattr", Name: name, Attr: attr, Value: r.encode(value)})
	return err
}

func (r *runtime) Call(fn interp.Callable, args ...any) (any, error) {
	h, ok := fn.(*handle)
	if !ok {
		return nil, interp.ErrNotCallable
	}
	if h.owner != r {
		return nil, errors.New("callable belongs to another interpreter")
	}
	encoded := make([]any, len(args))
	for i, a := range args {
		encoded[i] = r.encode(a)
	}
	rep, err := r.roundTrip(command{Type: "call", Fn: map[string]any{"$callable": h.id}, Args: encoded})
	if err != nil {
		return nil, err
	}
	return r.decode(rep.Value), nil
}

func (r *runtime) Reset() error {
	if _, err := r.roundTrip(command{Type: "reset"}); err != nil {
		return err
	}
	r.funcMu.Lock()
	for name := range r.funcs {
		r.registry.Unregister(name)
	}
	r.funcs = make(map[string]interp.Func)
	r.funcMu.Unlock()
	return nil
}

func (r *runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	// Closing stdin makes the guest read EOF and leave its command loop.
	if r.stdinReader != nil {
		r.stdinReader.Close()
	}
	if r.stdin != nil {
		r.stdin.Close()
	}
	r.cleanup()
	return nil
}
