// Package bench measures how much of a frame budget mode execution uses.
//
// Run with: go test -v -run=Test ./bench/
// Benchmarks: go test -bench=. ./bench/
//
// Python benchmarks need the interpreter module; set EYESY_PYTHON_WASM or
// run go generate ./language/python first.
package bench

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/caffeineduck/eyesy/hardware"
	"github.com/caffeineduck/eyesy/internal/logging"
	"github.com/caffeineduck/eyesy/interp"
	"github.com/caffeineduck/eyesy/language/javascript"
	"github.com/caffeineduck/eyesy/language/python"
	"github.com/caffeineduck/eyesy/runner"
	"github.com/caffeineduck/eyesy/surface"
)

const (
	width  = 1280
	height = 720
)

const emptyJS = `
function setup(screen, eyesy) {}
function draw(screen, eyesy) {}
`

// scopeJS draws the audio buffer as a scope trace, like most stock modes.
const scopeJS = `
function setup(screen, eyesy) {}
function draw(screen, eyesy) {
  var color = eyesy.color_picker(eyesy.knob4);
  var step = eyesy.xres / eyesy.audio_in.length;
  for (var i = 1; i < eyesy.audio_in.length; i++) {
    var y0 = eyesy.yres / 2 + eyesy.audio_in[i - 1] / 100;
    var y1 = eyesy.yres / 2 + eyesy.audio_in[i] / 100;
    pygame.draw.line(screen, color, [(i - 1) * step, y0], [i * step, y1], 2);
  }
}
`

const scopePy = `
import pygame

def setup(screen, eyesy):
    pass

def draw(screen, eyesy):
    color = eyesy.color_picker(eyesy.knob4)
    n = len(eyesy.audio_in)
    step = eyesy.xres / n
    for i in range(1, n):
        y0 = eyesy.yres / 2 + eyesy.audio_in[i - 1] / 100
        y1 = eyesy.yres / 2 + eyesy.audio_in[i] / 100
        pygame.draw.line(screen, color, [(i - 1) * step, y0], [i * step, y1], 2)
`

func newLoop(tb testing.TB, engine interp.Engine, source string) *runner.Loop {
	tb.Helper()
	loop := runner.New(
		interp.NewHost(engine, interp.WithLogger(logging.NewNop())),
		hardware.NewBridge(width, height, hardware.WithAudioSource(hardware.NewSynth(1))),
		surface.NewLayer(),
		runner.WithSize(width, height),
		runner.WithLogger(logging.NewNop()),
	)
	tb.Cleanup(func() { loop.Close() })
	if _, err := loop.LoadMode(context.Background(), source, "bench", "/modes/bench"); err != nil {
		tb.Fatalf("load mode: %v", err)
	}
	return loop
}

func pythonEngine(tb testing.TB) interp.Engine {
	tb.Helper()
	path := os.Getenv("EYESY_PYTHON_WASM")
	if path == "" {
		path = "../language/python/python.wasm"
	}
	if _, err := os.Stat(path); err != nil {
		tb.Skipf("python interpreter module not available at %s", path)
	}
	return python.New(python.WithModulePath(path), python.WithDiskCache(), python.WithLogger(logging.NewNop()))
}

func benchTick(b *testing.B, loop *runner.Loop) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := loop.Tick(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTick_JS_Empty(b *testing.B) {
	benchTick(b, newLoop(b, javascript.New(), emptyJS))
}

func BenchmarkTick_JS_Scope(b *testing.B) {
	benchTick(b, newLoop(b, javascript.New(), scopeJS))
}

func BenchmarkTick_Python_Scope(b *testing.B) {
	benchTick(b, newLoop(b, pythonEngine(b), scopePy))
}

func BenchmarkLoadMode_JS(b *testing.B) {
	loop := newLoop(b, javascript.New(), emptyJS)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := loop.LoadMode(context.Background(), scopeJS, "bench", "/modes/bench"); err != nil {
			b.Fatal(err)
		}
	}
}

// =============================================================================
// FRAME BUDGET
// =============================================================================

func TestFrameBudget(t *testing.T) {
	fmt.Println()
	fmt.Printf("Platform: %s/%s, CPUs: %d, screen %dx%d\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), width, height)
	fmt.Println()

	budget := time.Second / runner.DefaultFPS
	cases := []struct {
		name   string
		engine func(testing.TB) interp.Engine
		source string
	}{
		{"javascript empty", func(testing.TB) interp.Engine { return javascript.New() }, emptyJS},
		{"javascript scope", func(testing.TB) interp.Engine { return javascript.New() }, scopeJS},
		{"python scope", pythonEngine, scopePy},
	}

	const frames = 30
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			loop := newLoop(t, c.engine(t), c.source)

			start := time.Now()
			for range frames {
				if err := loop.Tick(); err != nil {
					t.Fatal(err)
				}
			}
			per := time.Since(start) / frames

			fmt.Printf("%-20s %10s/frame  %5.1f%% of a %s frame\n",
				c.name, per, 100*float64(per)/float64(budget), budget)
		})
	}
	fmt.Println()
}

func TestMemoryUsage(t *testing.T) {
	var m runtime.MemStats

	runtime.GC()
	runtime.ReadMemStats(&m)
	before := m.Alloc

	loop := newLoop(t, javascript.New(), scopeJS)
	for range 100 {
		loop.Tick()
	}

	runtime.ReadMemStats(&m)
	after := m.Alloc

	loop.Close()
	runtime.GC()
	runtime.ReadMemStats(&m)

	t.Logf("Memory before: %d MB", before/1024/1024)
	t.Logf("Memory after 100 frames: %d MB", after/1024/1024)
	t.Logf("Memory after close: %d MB", m.Alloc/1024/1024)
}
