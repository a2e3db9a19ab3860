package runner

import (
	"log/slog"

	"github.com/caffeineduck/eyesy/interp"
)

// DefaultFPS is the frame rate a new Loop targets.
const DefaultFPS = 60

// Reporter receives the user-facing message when a mode faults. It runs on
// the loop goroutine and must not call LoadMode or Tick.
type Reporter func(message string)

// Option configures a Loop at creation time.
type Option func(*loopConfig)

type loopConfig struct {
	width, height  int
	fps            float64
	classifier     Classifier
	scheduler      Scheduler
	clock          Clock
	watchdog       Watchdog
	reporter       Reporter
	logger         *slog.Logger
	metrics        *Metrics
	resetNamespace bool
	onProgress     interp.ProgressFunc
	warnLimit      int
}

func defaultLoopConfig() loopConfig {
	return loopConfig{
		width:      1280,
		height:     720,
		fps:        DefaultFPS,
		classifier: DefaultClassifier(),
		scheduler:  TimerScheduler{Interval: DefaultSchedulerInterval},
		clock:      systemClock{},
		watchdog:   noWatchdog{},
		warnLimit:  3,
	}
}

// WithSize sets the size passed to set_mode.
func WithSize(width, height int) Option {
	return func(c *loopConfig) {
		c.width = width
		c.height = height
	}
}

// WithFPS sets the initial frame rate. Non-positive values are ignored.
func WithFPS(fps float64) Option {
	return func(c *loopConfig) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// WithClassifier replaces the draw failure classifier.
func WithClassifier(cl Classifier) Option {
	return func(c *loopConfig) {
		c.classifier = cl
	}
}

// WithScheduler replaces the timer-based scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *loopConfig) {
		c.scheduler = s
	}
}

// WithClock replaces the wall clock used for pacing.
func WithClock(clock Clock) Option {
	return func(c *loopConfig) {
		c.clock = clock
	}
}

// WithWatchdog installs a watchdog around setup and draw.
func WithWatchdog(w Watchdog) Option {
	return func(c *loopConfig) {
		c.watchdog = w
	}
}

// WithReporter sets the hook notified when a mode faults.
func WithReporter(r Reporter) Option {
	return func(c *loopConfig) {
		c.reporter = r
	}
}

// WithLogger sets the loop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *loopConfig) {
		c.logger = logger
	}
}

// WithMetrics records loop activity into m.
func WithMetrics(m *Metrics) Option {
	return func(c *loopConfig) {
		c.metrics = m
	}
}

// WithResetNamespace discards every interpreter global before each
// LoadMode. By default globals persist across modes.
func WithResetNamespace(reset bool) Option {
	return func(c *loopConfig) {
		c.resetNamespace = reset
	}
}

// WithProgress receives runtime load progress when LoadMode is the first
// caller to bring the interpreter up.
func WithProgress(fn interp.ProgressFunc) Option {
	return func(c *loopConfig) {
		c.onProgress = fn
	}
}
