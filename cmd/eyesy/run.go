package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"time"

	"github.com/caffeineduck/eyesy/display"
	"github.com/caffeineduck/eyesy/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <mode>",
	Short: "Run a mode",
	Long: `Load a mode and run its draw loop.

By default the loop runs in real time until interrupted (or for --duration).
With --frames the mode is ticked that many times as fast as possible, which
is useful for rendering a still with --out:

  eyesy run modes/spiral/main.py --frames 120 --out spiral.png --set knob1=0.2`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int("frames", 0, "Tick this many frames headlessly, then exit")
	runCmd.Flags().Duration("duration", 0, "Run in real time for this long (0 = until interrupted)")
	runCmd.Flags().StringP("out", "o", "", "Write the last frame to this PNG file")
	runCmd.Flags().StringArray("set", nil, "Set a control before loading, e.g. knob1=0.3 (repeatable)")
	runCmd.Flags().Bool("window", false, "Show the screen in a window (requires -tags sdl)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	frames, _ := cmd.Flags().GetInt("frames")
	duration, _ := cmd.Flags().GetDuration("duration")
	out, _ := cmd.Flags().GetString("out")
	sets, _ := cmd.Flags().GetStringArray("set")
	window, _ := cmd.Flags().GetBool("window")

	if frames < 0 {
		return fmt.Errorf("--frames must not be negative")
	}
	values, err := parseSet(sets)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, path, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.bridge.Apply(values); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := a.loop.LoadModeFile(ctx, path); err != nil {
		return fmt.Errorf("%s error: %w", runner.ErrorKind(err), err)
	}

	if frames > 0 {
		ran := tickFrames(a.loop, frames)
		fmt.Fprintf(cmd.OutOrStdout(), "ran %d frames\n", ran)
	} else if err := runRealtime(ctx, a, duration, window); err != nil {
		return err
	}

	if out != "" {
		if err := writePNG(out, a.loop.Surface().Image()); err != nil {
			return err
		}
	}

	if a.loop.Status() == runner.Faulted {
		return fmt.Errorf("mode faulted: %w", a.loop.LastError())
	}
	return nil
}

// tickFrames ticks up to n frames and returns how many ran before the
// mode faulted.
func tickFrames(loop *runner.Loop, n int) int {
	for i := range n {
		if err := loop.Tick(); errors.Is(err, runner.ErrFaulted) {
			return i
		}
		if loop.Status() == runner.Faulted {
			return i + 1
		}
	}
	return n
}

func runRealtime(ctx context.Context, a *app, duration time.Duration, window bool) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := a.loop.Start(); err != nil {
		return err
	}
	defer a.loop.Stop()

	if !window {
		<-ctx.Done()
		return nil
	}

	w, err := display.Open("eyesy - "+a.loop.Program().Name, a.cfg.Width, a.cfg.Height)
	if err != nil {
		return err
	}
	defer w.Close()

	interval := time.Duration(float64(time.Second) / a.loop.FPS())
	return display.Run(ctx, w, interval, func() *image.RGBA {
		if a.loop.Status() == runner.Faulted {
			return nil
		}
		return a.loop.Surface().Image()
	})
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
