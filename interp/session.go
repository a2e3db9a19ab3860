package interp

import (
	"fmt"
	"sync"
)

// Session is a loaded interpreter and its persistent global namespace.
// All methods are safe for concurrent use; calls into the interpreter are
// serialized.
type Session struct {
	engine string
	rt     Runtime

	execMu sync.Mutex
	closed bool
}

func newSession(engine string, rt Runtime) *Session {
	return &Session{engine: engine, rt: rt}
}

// Engine returns the name of the engine backing the session.
func (s *Session) Engine() string {
	return s.engine
}

// RunCode executes source in the global namespace. Bindings the source
// creates persist until overwritten.
func (s *Session) RunCode(source string) (any, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	v, err := s.rt.Exec(source)
	if err != nil {
		return nil, AsInterpreterError(err)
	}
	return v, nil
}

// GetGlobal returns the value bound to name, or nil when unbound.
func (s *Session) GetGlobal(name string) (any, error) {
	v, _, err := s.lookup(name)
	return v, err
}

// Has reports whether name is bound to a value other than None/undefined.
func (s *Session) Has(name string) bool {
	v, ok, err := s.lookup(name)
	return err == nil && ok && v != nil
}

func (s *Session) lookup(name string) (any, bool, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.closed {
		return nil, false, ErrSessionClosed
	}
	v, ok, err := s.rt.Get(name)
	if err != nil {
		return nil, false, AsInterpreterError(err)
	}
	return v, ok, nil
}

// SetGlobal binds name to value.
func (s *Session) SetGlobal(name string, value any) error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.rt.Set(name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// DeleteGlobal removes the binding for name.
func (s *Session) DeleteGlobal(name string) error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	return s.rt.Delete(name)
}

// SetAttr assigns attr on the object bound to the global name.
func (s *Session) SetAttr(name, attr string, value any) error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.rt.SetAttr(name, attr, value); err != nil {
		return fmt.Errorf("set %s.%s: %w", name, attr, err)
	}
	return nil
}

// Call invokes fn with args. Args may include Refs to pass global bindings.
func (s *Session) Call(fn Callable, args ...any) (any, error) {
	if fn == nil {
		return nil, ErrNotCallable
	}

	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	v, err := s.rt.Call(fn, args...)
	if err != nil {
		return nil, AsInterpreterError(err)
	}
	return v, nil
}

// Reset discards every global binding. Callables obtained before the reset
// must not be used afterwards.
func (s *Session) Reset() error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	return s.rt.Reset()
}

// Close releases the runtime.
func (s *Session) Close() error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.rt.Close()
}
