// Package hostfunc holds the host functions a guest interpreter running out
// of process can call back into.
//
// In-process engines bind Go functions directly. The WASI Python engine
// cannot, so every Go function handed to it is registered here under a
// generated name and the guest calls it through the stderr protocol:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("f1", hostfunc.Positional(func(args ...any) (any, error) {
//	    return len(args), nil
//	}))
//
// Names are scoped to one interpreter session and removed again when the
// session's namespace is reset.
package hostfunc
