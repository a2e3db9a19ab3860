package runner

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caffeineduck/eyesy/hardware"
	"github.com/caffeineduck/eyesy/interp"
	"github.com/caffeineduck/eyesy/surface"
	"github.com/google/uuid"
)

// Interpreter globals the loop relies on.
const (
	ScreenGlobal = "screen"
	SetupGlobal  = "setup"
	DrawGlobal   = "draw"
)

// Status is the state of a Loop.
type Status int

const (
	Idle Status = iota
	Loading
	Running
	Stopped
	Faulted
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Program is a loaded mode. LoadMode replaces it wholesale.
type Program struct {
	ID       uuid.UUID
	Name     string
	RootPath string
	Setup    interp.Callable
	Draw     interp.Callable
	LoadedAt time.Time
}

// Loop loads modes into an interpreter session and drives their draw entry
// point at a paced frame rate, containing failures from mode code.
//
// Ticks and loads never overlap: both hold runMu for their whole duration.
// Stop only prevents the next tick; a tick already inside mode code runs to
// completion.
type Loop struct {
	host   *interp.Host
	bridge *hardware.Bridge
	layer  *surface.Layer
	cfg    loopConfig
	logger *slog.Logger

	runMu sync.Mutex

	mu          sync.Mutex
	status      Status
	program     *Program
	fps         float64
	last        time.Time
	gen         uint64
	cancel      func()
	consecutive int
	lastErr     error
}

// New creates a Loop. Nothing is loaded until LoadMode.
func New(host *interp.Host, bridge *hardware.Bridge, layer *surface.Layer, opts ...Option) *Loop {
	cfg := defaultLoopConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		host:   host,
		bridge: bridge,
		layer:  layer,
		cfg:    cfg,
		logger: logger,
		fps:    cfg.fps,
	}
}

// LoadMode stops the loop, runs source in the session and resolves its
// setup and draw entry points, then calls setup once. On success the loop
// is Idle with the new Program and a clean error budget; Start runs it.
//
// Only the setup and draw bindings of the previous mode are removed first.
// Other globals persist unless the loop was created WithResetNamespace.
func (l *Loop) LoadMode(ctx context.Context, source, name, rootPath string) (*Program, error) {
	l.Stop()

	l.runMu.Lock()
	defer l.runMu.Unlock()

	l.mu.Lock()
	prev := l.status
	l.status = Loading
	l.mu.Unlock()

	gen := l.layer.Begin()
	prog, err := l.load(ctx, source, name, rootPath)
	l.cfg.metrics.observeLoad(err)
	if err != nil {
		l.layer.Abort(gen)
	} else {
		l.layer.Commit()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		if prev == Running {
			prev = Stopped
		}
		l.status = prev
		l.logger.Error("mode load failed", "mode", name, "kind", ErrorKind(err), "error", err)
		return nil, err
	}
	l.program = prog
	l.status = Idle
	l.consecutive = 0
	l.lastErr = nil
	l.logger.Info("mode loaded", "mode", name, "id", prog.ID, "root", rootPath)
	return prog, nil
}

func (l *Loop) load(ctx context.Context, source, name, rootPath string) (*Program, error) {
	session, err := l.host.Load(ctx, l.cfg.onProgress)
	if err != nil {
		return nil, err
	}
	if l.cfg.resetNamespace {
		if err := session.Reset(); err != nil {
			return nil, fmt.Errorf("reset namespace: %w", err)
		}
	}

	l.bridge.SetMode(name, rootPath)

	if err := l.layer.Install(session); err != nil {
		return nil, &SurfaceError{Err: err}
	}
	if _, err := l.bindScreen(session); err != nil {
		return nil, err
	}
	if err := l.bridge.Inject(session); err != nil {
		return nil, err
	}
	if err := l.bridge.Push(session); err != nil {
		return nil, err
	}

	for _, g := range []string{SetupGlobal, DrawGlobal} {
		if err := session.DeleteGlobal(g); err != nil {
			return nil, fmt.Errorf("clear %s: %w", g, err)
		}
	}
	if _, err := session.RunCode(source); err != nil {
		return nil, err
	}

	setup, setupErr := l.entryPoint(session, SetupGlobal)
	draw, drawErr := l.entryPoint(session, DrawGlobal)
	var missing []string
	if setupErr != nil {
		missing = append(missing, SetupGlobal)
	}
	if drawErr != nil {
		missing = append(missing, DrawGlobal)
	}
	if len(missing) > 0 {
		return nil, &ModeContractError{Missing: missing}
	}

	disarm := l.cfg.watchdog.Arm(PhaseSetup)
	_, err = l.call(session, setup)
	disarm()
	if err != nil {
		return nil, &ModeSetupError{Err: err}
	}

	return &Program{
		ID:       uuid.New(),
		Name:     name,
		RootPath: rootPath,
		Setup:    setup,
		Draw:     draw,
		LoadedAt: l.cfg.clock.Now(),
	}, nil
}

func (l *Loop) entryPoint(s *interp.Session, name string) (interp.Callable, error) {
	v, err := s.GetGlobal(name)
	if err != nil {
		return nil, err
	}
	fn, ok := v.(interp.Callable)
	if !ok {
		return nil, interp.ErrNotCallable
	}
	return fn, nil
}

// call invokes a mode entry point as fn(screen, eyesy). A panic in host
// code reached from the mode is returned as an error.
func (l *Loop) call(s *interp.Session, fn interp.Callable) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Call(fn, interp.Ref(ScreenGlobal), interp.Ref(hardware.Global))
}

// bindScreen requests a surface through set_mode and binds it as screen.
func (l *Loop) bindScreen(s *interp.Session) (surface.Surface, error) {
	surf, err := l.layer.SetMode(l.cfg.width, l.cfg.height)
	if err != nil {
		return nil, &SurfaceError{Err: err}
	}
	if err := s.SetGlobal(ScreenGlobal, l.layer.Expose(surf)); err != nil {
		return nil, &SurfaceError{Err: err}
	}
	return surf, nil
}

// LoadModeFile loads the mode at path. The mode is named after its
// directory, as in modes/<name>/main.py, or after the file when it sits
// directly in the modes directory.
func (l *Loop) LoadModeFile(ctx context.Context, path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mode: %w", err)
	}
	name, root := ModeIdentity(path)
	return l.LoadMode(ctx, string(src), name, root)
}

// ModeIdentity derives a mode's name and root directory from its path.
func ModeIdentity(path string) (name, root string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	root = filepath.Dir(abs)
	base := filepath.Base(abs)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "main" {
		return filepath.Base(root), root
	}
	return stem, root
}

// Start begins ticking the loaded mode. Starting a running loop does
// nothing.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.program == nil:
		return ErrNoMode
	case l.status == Faulted:
		return ErrFaulted
	case l.status == Running:
		return nil
	}

	l.status = Running
	l.last = l.cfg.clock.Now()
	l.gen++
	l.arm(l.gen)
	l.logger.Info("loop started", "mode", l.program.Name, "fps", l.fps)
	return nil
}

// Stop cancels the pending tick. A running loop becomes Stopped.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Loop) stopLocked() {
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.status == Running {
		l.status = Stopped
		l.logger.Info("loop stopped")
	}
}

func (l *Loop) arm(gen uint64) {
	l.cancel = l.cfg.scheduler.Schedule(func() { l.frame(gen) })
}

// frame is the scheduler callback. It ticks when a full frame interval has
// elapsed and always re-arms while the loop is running. The remainder of
// elapsed time is carried into the next frame so pacing does not drift.
func (l *Loop) frame(gen uint64) {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	l.mu.Lock()
	if gen != l.gen || l.status != Running {
		l.mu.Unlock()
		return
	}
	now := l.cfg.clock.Now()
	interval := l.interval()
	elapsed := now.Sub(l.last)
	l.mu.Unlock()

	if elapsed >= interval {
		l.tick()
		l.mu.Lock()
		l.last = now.Add(-(elapsed % interval))
		l.mu.Unlock()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == l.gen && l.status == Running {
		l.arm(gen)
	}
}

// Tick runs one frame immediately, outside of pacing. It returns the
// classified *DrawError when the frame fails; the failure is also
// accounted exactly as a scheduled tick's would be.
func (l *Loop) Tick() error {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	l.mu.Lock()
	switch {
	case l.program == nil:
		l.mu.Unlock()
		return ErrNoMode
	case l.status == Faulted:
		l.mu.Unlock()
		return ErrFaulted
	}
	l.mu.Unlock()
	return l.tick()
}

func (l *Loop) tick() error {
	l.mu.Lock()
	prog := l.program
	l.mu.Unlock()

	start := time.Now()
	err := l.drawFrame(prog)
	elapsed := time.Since(start)

	if err == nil {
		l.mu.Lock()
		l.consecutive = 0
		l.mu.Unlock()
		l.cfg.metrics.observeTick(elapsed, 0)
		return nil
	}
	return l.fail(err, elapsed)
}

func (l *Loop) drawFrame(prog *Program) error {
	session := l.host.Session()
	if session == nil {
		return interp.ErrSessionClosed
	}

	screen := l.layer.Screen()
	if !session.Has(ScreenGlobal) || screen == nil {
		l.logger.Warn("screen not found in namespace, recreating", "mode", prog.Name)
		s, err := l.bindScreen(session)
		if err != nil {
			return err
		}
		screen = s
	}

	if err := l.bridge.Push(session); err != nil {
		return err
	}

	st := l.bridge.Snapshot()
	if st.AutoClear {
		bg := st.BGColor
		screen.Fill(color.RGBA{R: uint8(bg[0]), G: uint8(bg[1]), B: uint8(bg[2]), A: 255})
	}

	disarm := l.cfg.watchdog.Arm(PhaseDraw)
	defer disarm()
	_, err := l.call(session, prog.Draw)
	return err
}

func (l *Loop) fail(err error, elapsed time.Duration) error {
	l.mu.Lock()
	l.consecutive++
	n := l.consecutive
	sev := l.cfg.classifier.Classify(err, n)
	derr := &DrawError{Severity: sev, Consecutive: n, Err: err}
	l.lastErr = derr
	if sev == Critical {
		l.stopLocked()
		l.status = Faulted
	}
	name := l.program.Name
	l.mu.Unlock()

	l.cfg.metrics.observeTick(elapsed, n)
	l.cfg.metrics.observeDrawError(sev)

	if sev == Critical {
		l.logger.Error("critical draw error, stopping mode", "mode", name, "consecutive", n, "error", err)
		if l.cfg.reporter != nil {
			l.cfg.reporter(fmt.Sprintf("Drawing error: %s. Animation stopped after %d errors.", err, n))
		}
		return derr
	}
	if n <= l.cfg.warnLimit {
		l.logger.Warn("draw error", "mode", name, "consecutive", n, "error", err)
	}
	return derr
}

// SetFPS changes the target frame rate. It applies from the next scheduler
// callback; the loop keeps running.
func (l *Loop) SetFPS(fps float64) error {
	if !(fps > 0) || math.IsInf(fps, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidFPS, fps)
	}
	l.mu.Lock()
	l.fps = fps
	l.mu.Unlock()
	return nil
}

// FPS returns the target frame rate.
func (l *Loop) FPS() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fps
}

// FrameInterval returns the target time between ticks in milliseconds.
func (l *Loop) FrameInterval() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return 1000 / l.fps
}

func (l *Loop) interval() time.Duration {
	return time.Duration(float64(time.Second) / l.fps)
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Program returns the loaded mode, or nil.
func (l *Loop) Program() *Program {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.program
}

func (l *Loop) ConsecutiveErrors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consecutive
}

// LastError returns the most recent *DrawError since the last load.
func (l *Loop) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Loop) Bridge() *hardware.Bridge { return l.bridge }

// Surface returns the screen surface, or nil before the first load.
func (l *Loop) Surface() surface.Surface { return l.layer.Screen() }

// Close stops the loop and releases the interpreter.
func (l *Loop) Close() error {
	l.Stop()
	l.runMu.Lock()
	defer l.runMu.Unlock()
	return l.host.Close()
}
