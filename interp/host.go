package interp

import (
	"context"
	"log/slog"
	"sync"
)

// Host is the single source of truth for whether the scripting runtime is
// ready. It lazily initializes one Session and hands the same Session to
// every caller.
type Host struct {
	engine Engine
	cfg    hostConfig
	logger *slog.Logger

	mu      sync.Mutex
	session *Session
	pending *loadCall
}

type loadCall struct {
	done    chan struct{}
	session *Session
	err     error
}

// NewHost creates a Host for the given engine. Nothing is initialized until
// the first Load.
func NewHost(engine Engine, opts ...HostOption) *Host {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		engine: engine,
		cfg:    cfg,
		logger: logger.With("engine", engine.Name()),
	}
}

// Engine returns the name of the host's engine.
func (h *Host) Engine() string {
	return h.engine.Name()
}

// Loaded reports whether a Session is ready.
func (h *Host) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session != nil
}

// Session returns the ready Session, or nil before the first successful Load.
func (h *Host) Session() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Load returns the ready Session, initializing the runtime on first use.
//
// Calls made while an initialization is in flight wait for it and receive
// the same Session (or the same error). onProgress, if non-nil, receives the
// progress stages of the initialization this call started; coalesced
// callers get no progress. A failed load leaves the Host unloaded so a later
// Load retries from scratch.
func (h *Host) Load(ctx context.Context, onProgress ProgressFunc) (*Session, error) {
	h.mu.Lock()
	if h.session != nil {
		s := h.session
		h.mu.Unlock()
		return s, nil
	}
	if c := h.pending; c != nil {
		h.mu.Unlock()
		select {
		case <-c.done:
			return c.session, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &loadCall{done: make(chan struct{})}
	h.pending = c
	h.mu.Unlock()

	c.session, c.err = h.init(ctx, onProgress)

	h.mu.Lock()
	if c.err == nil {
		h.session = c.session
	}
	h.pending = nil
	h.mu.Unlock()
	close(c.done)

	return c.session, c.err
}

func (h *Host) init(ctx context.Context, onProgress ProgressFunc) (*Session, error) {
	if h.cfg.initTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.initTimeout)
		defer cancel()
	}

	progress := func(p Progress) {
		h.logger.Debug("runtime load", "status", p.Status, "progress", p.Fraction)
		if onProgress != nil {
			onProgress(p)
		}
	}

	rt, err := h.engine.Init(ctx, progress)
	if err != nil {
		h.logger.Error("runtime load failed", "error", err)
		return nil, &LoadError{Engine: h.engine.Name(), Err: err}
	}

	h.logger.Info("runtime ready")
	return newSession(h.engine.Name(), rt), nil
}

// Close closes the Session, if any. The Host can be loaded again afterwards.
func (h *Host) Close() error {
	h.mu.Lock()
	s := h.session
	h.session = nil
	h.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}
