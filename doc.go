// Package eyesy runs EYESY video synthesizer modes outside the hardware.
//
// # Overview
//
// A mode is a small program defining setup(screen, eyesy) and
// draw(screen, eyesy). The runtime loads it into an interpreter, runs setup
// once, then calls draw at the target frame rate with the current knob,
// trigger and audio state.
//
// # Basic Usage
//
//	host := interp.NewHost(javascript.New())
//	bridge := hardware.NewBridge(1280, 720)
//	loop := runner.New(host, bridge, surface.NewLayer())
//	defer loop.Close()
//
//	if _, err := loop.LoadModeFile(ctx, "modes/Scope/main.js"); err != nil {
//	    log.Fatal(err)
//	}
//	loop.Start()
//
//	// Knobs and triggers can change at any time; the next frame sees them.
//	bridge.Update(func(s *hardware.State) {
//	    s.Knob4 = 0.25
//	    s.Trig = true
//	})
//
// Draw errors are counted. Ten in a row, or any error that looks like a
// broken mode rather than a bad frame, stop the loop and fault it until the
// next load.
//
// See the [runner], [interp], [hardware] and [surface] packages for detailed
// API documentation, and cmd/eyesy for the command line.
package eyesy
