// Package interp hosts the embedded scripting runtime that executes mode
// programs.
//
// # Overview
//
// A [Host] owns exactly one interpreter [Session] for its lifetime. The
// session is created lazily by [Host.Load]; concurrent callers issued while
// the first load is in flight share that single initialization. The
// session's global namespace persists across every piece of code run in it,
// so bindings created by one mode stay visible to the next until they are
// overwritten.
//
// # Basic Usage
//
//	host := interp.NewHost(javascript.New())
//	session, err := host.Load(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session.RunCode(`var frames = 0; function draw() { frames++ }`)
//	draw, _ := session.GetGlobal("draw")
//	session.Call(draw.(interp.Callable))
//
// # Values
//
// Values crossing the boundary use a small Go vocabulary: nil for absence,
// bool, string, int64/float64, []any, map[string]any, [Object] for
// attribute bags, [Func] for host functions, [Callable] for functions
// defined inside the interpreter and [Ref] to hand a global binding back to
// the interpreter untouched.
//
// # Engine Interface
//
// To add support for a new language, implement [Engine] and [Runtime].
// See [github.com/caffeineduck/eyesy/language/javascript] for an example.
package interp
