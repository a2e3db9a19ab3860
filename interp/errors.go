package interp

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrNotCallable   = errors.New("value is not callable")
)

// LoadError reports that the embedded runtime could not be fetched or
// initialized. It is terminal for the load attempt that produced it.
type LoadError struct {
	Engine string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s runtime: %v", e.Engine, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InterpreterError carries the runtime's diagnostic for a syntax or runtime
// failure inside the interpreter.
type InterpreterError struct {
	Message string
}

func (e *InterpreterError) Error() string { return e.Message }

// AsInterpreterError wraps err as an *InterpreterError unless it already is one.
func AsInterpreterError(err error) error {
	if err == nil {
		return nil
	}
	var ie *InterpreterError
	if errors.As(err, &ie) {
		return err
	}
	if errors.Is(err, ErrSessionClosed) {
		return err
	}
	return &InterpreterError{Message: err.Error()}
}
