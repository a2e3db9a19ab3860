package interp

import "context"

// Engine creates interpreter runtimes for one scripting language.
type Engine interface {
	// Name returns a unique identifier for this language (e.g., "javascript", "python").
	Name() string

	// Init fetches and initializes a fresh runtime. Coarse progress stages
	// are reported through progress, which is never nil.
	Init(ctx context.Context, progress ProgressFunc) (Runtime, error)
}

// Runtime is a live interpreter instance with a persistent global namespace.
// Implementations need not be safe for concurrent use; Session serializes
// every call.
type Runtime interface {
	// Exec runs source in the global namespace and returns the value of the
	// last expression, if the language has one.
	Exec(source string) (any, error)

	// Get returns the global binding for name. ok is false when the name
	// is not bound at all.
	Get(name string) (value any, ok bool, err error)

	// Set binds name in the global namespace.
	Set(name string, value any) error

	// Delete removes a global binding. Deleting an unbound name is not an error.
	Delete(name string) error

	// SetAttr assigns attr on the object bound to the global name.
	SetAttr(name, attr string, value any) error

	// Call invokes a callable previously returned by Get or Exec.
	Call(fn Callable, args ...any) (any, error)

	// Reset discards every global binding.
	Reset() error

	// Close releases the runtime.
	Close() error
}

// Progress is one coarse stage of runtime initialization.
type Progress struct {
	Status   string
	Fraction float64
}

// ProgressFunc receives initialization progress.
type ProgressFunc func(Progress)
