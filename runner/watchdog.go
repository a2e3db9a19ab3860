package runner

// Phase names the mode entry point being executed.
type Phase string

const (
	PhaseSetup Phase = "setup"
	PhaseDraw  Phase = "draw"
)

// Watchdog is armed around every call into mode code and disarmed when the
// call returns. Mode code runs to completion either way; a Watchdog can
// only observe, not interrupt. The loop installs none by default.
type Watchdog interface {
	Arm(phase Phase) (disarm func())
}

// WatchdogFunc adapts a function to Watchdog.
type WatchdogFunc func(phase Phase) func()

func (f WatchdogFunc) Arm(phase Phase) func() { return f(phase) }

type noWatchdog struct{}

func (noWatchdog) Arm(Phase) func() { return func() {} }
