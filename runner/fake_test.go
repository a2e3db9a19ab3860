package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/caffeineduck/eyesy/hardware"
	"github.com/caffeineduck/eyesy/interp"
	"github.com/caffeineduck/eyesy/language/javascript"
	"github.com/caffeineduck/eyesy/surface"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type scheduled struct {
	fn       func()
	canceled bool
}

// fakeScheduler queues callbacks until the test fires them.
type fakeScheduler struct {
	mu      sync.Mutex
	pending []*scheduled
}

func (s *fakeScheduler) Schedule(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &scheduled{fn: fn}
	s.pending = append(s.pending, e)
	return func() {
		s.mu.Lock()
		e.canceled = true
		s.mu.Unlock()
	}
}

// Fire runs the oldest live callback. It reports false when none is armed.
func (s *fakeScheduler) Fire() bool {
	s.mu.Lock()
	var next *scheduled
	for len(s.pending) > 0 {
		e := s.pending[0]
		s.pending = s.pending[1:]
		if !e.canceled {
			next = e
			break
		}
	}
	s.mu.Unlock()
	if next == nil {
		return false
	}
	next.fn()
	return true
}

// Armed counts live callbacks.
func (s *fakeScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.pending {
		if !e.canceled {
			n++
		}
	}
	return n
}

// countingEngine counts runtime initializations.
type countingEngine struct {
	interp.Engine
	inits atomic.Int32
}

func (e *countingEngine) Init(ctx context.Context, progress interp.ProgressFunc) (interp.Runtime, error) {
	e.inits.Add(1)
	return e.Engine.Init(ctx, progress)
}

type harness struct {
	loop     *Loop
	host     *interp.Host
	engine   *countingEngine
	bridge   *hardware.Bridge
	layer    *surface.Layer
	clock    *fakeClock
	sched    *fakeScheduler
	reported []string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		engine: &countingEngine{Engine: javascript.New()},
		bridge: hardware.NewBridge(64, 48, hardware.WithAudioSource(hardware.NewSynth(1))),
		layer:  surface.NewLayer(),
		clock:  newFakeClock(),
		sched:  &fakeScheduler{},
	}
	h.host = interp.NewHost(h.engine)
	base := []Option{
		WithSize(64, 48),
		WithClock(h.clock),
		WithScheduler(h.sched),
		WithReporter(func(msg string) { h.reported = append(h.reported, msg) }),
	}
	h.loop = New(h.host, h.bridge, h.layer, append(base, opts...)...)
	t.Cleanup(func() { h.loop.Close() })
	return h
}

func (h *harness) load(t *testing.T, source string) *Program {
	t.Helper()
	prog, err := h.loop.LoadMode(context.Background(), source, "test", "/modes/test")
	require.NoError(t, err)
	return prog
}

// frames advances the clock by one frame interval and fires the pending
// callback, n times.
func (h *harness) frames(t *testing.T, n int) {
	t.Helper()
	for range n {
		h.clock.Advance(h.loop.interval())
		require.True(t, h.sched.Fire(), "no callback armed")
	}
}

func (h *harness) global(t *testing.T, name string) any {
	t.Helper()
	v, err := h.host.Session().GetGlobal(name)
	require.NoError(t, err)
	return v
}
