package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caffeineduck/eyesy/interp"
)

var (
	ErrNoMode     = errors.New("no mode loaded; call LoadMode first")
	ErrFaulted    = errors.New("mode faulted; load a mode to recover")
	ErrInvalidFPS = errors.New("fps must be a positive number")
)

// SurfaceError reports that set_mode produced no usable surface.
type SurfaceError struct {
	Err error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("create surface: %v", e.Err)
}

func (e *SurfaceError) Unwrap() error { return e.Err }

// ModeContractError reports a mode that does not define the entry points
// the loop needs.
type ModeContractError struct {
	Missing []string
}

func (e *ModeContractError) Error() string {
	return fmt.Sprintf("mode must define setup() and draw(): missing %s", strings.Join(e.Missing, ", "))
}

// ModeSetupError wraps an exception raised by setup().
type ModeSetupError struct {
	Err error
}

func (e *ModeSetupError) Error() string {
	return fmt.Sprintf("setup: %v", e.Err)
}

func (e *ModeSetupError) Unwrap() error { return e.Err }

// Severity classifies a draw failure.
type Severity int

const (
	// Transient failures are logged and the loop keeps ticking.
	Transient Severity = iota
	// Critical failures stop the loop and fault the mode.
	Critical
)

func (s Severity) String() string {
	if s == Critical {
		return "critical"
	}
	return "transient"
}

// DrawError is a classified failure of one tick.
type DrawError struct {
	Severity    Severity
	Consecutive int
	Err         error
}

func (e *DrawError) Error() string {
	return fmt.Sprintf("%s draw error (%d consecutive): %v", e.Severity, e.Consecutive, e.Err)
}

func (e *DrawError) Unwrap() error { return e.Err }

// ErrorKind names the class of a LoadMode failure: "load", "surface",
// "interpreter", "contract", "setup" or "error" for anything else.
func ErrorKind(err error) string {
	var (
		loadErr     *interp.LoadError
		surfaceErr  *SurfaceError
		contractErr *ModeContractError
		setupErr    *ModeSetupError
		interpErr   *interp.InterpreterError
	)
	switch {
	case errors.As(err, &loadErr):
		return "load"
	case errors.As(err, &surfaceErr):
		return "surface"
	case errors.As(err, &contractErr):
		return "contract"
	case errors.As(err, &setupErr):
		return "setup"
	case errors.As(err, &interpErr):
		return "interpreter"
	default:
		return "error"
	}
}
