package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caffeineduck/eyesy/interp"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl [mode]",
	Short: "Interactive session inside a mode's namespace",
	Long: `Start an interactive session in the interpreter that runs modes.

With a mode argument the mode is loaded first, so screen, eyesy and pygame
are bound and the mode's own globals can be inspected or changed.

Lines are evaluated as code. Lines starting with ':' are commands:
  :tick [n]          draw n frames (default 1)
  :set name=value    set a control, e.g. :set knob1=0.3
  :status            show loop status
  :save file.png     write the current screen

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - Multi-line input (end line with \)

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepl,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.eyesy_history)")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".eyesy_history")
	}

	var mode string
	if len(args) > 0 {
		mode = args[0]
	}
	a, err := newApp(cmd, mode, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if mode != "" {
		if _, err := a.loop.LoadModeFile(ctx, mode); err != nil {
			return err
		}
	}
	session, err := a.host.Load(ctx, nil)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(os.Stderr, "eyesy %s REPL (type 'exit' to quit, Ctrl+D to exit)\n", session.Engine())

	r := &repl{app: a, session: session, out: rl.Stdout(), errOut: rl.Stderr()}
	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				multiLine.Reset()
				inMultiLine = false
				rl.SetPrompt(">>> ")
				continue
			}
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}
		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt(">>> ")
		}

		if r.eval(line) {
			return nil
		}
	}
}

type repl struct {
	app     *app
	session *interp.Session
	out     io.Writer
	errOut  io.Writer
}

// eval handles one input and reports whether the session should end.
func (r *repl) eval(line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "exit" || line == "quit":
		return true
	case strings.HasPrefix(line, ":"):
		if err := r.command(line[1:]); err != nil {
			fmt.Fprintf(r.errOut, "Error: %v\n", err)
		}
		return false
	}

	v, err := r.session.RunCode(line)
	if err != nil {
		fmt.Fprintf(r.errOut, "Error: %v\n", err)
		return false
	}
	if v != nil {
		fmt.Fprintln(r.out, v)
	}
	return false
}

func (r *repl) command(line string) error {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	loop := r.app.loop

	switch name {
	case "tick":
		n := 1
		if arg != "" {
			var err error
			if n, err = strconv.Atoi(arg); err != nil || n < 1 {
				return fmt.Errorf("invalid frame count %q", arg)
			}
		}
		for range n {
			if err := loop.Tick(); err != nil {
				return err
			}
		}
		return nil
	case "set":
		values, err := parseSet([]string{arg})
		if err != nil {
			return err
		}
		return r.app.bridge.Apply(values)
	case "status":
		mode := "-"
		if p := loop.Program(); p != nil {
			mode = p.Name
		}
		fmt.Fprintf(r.out, "status=%s mode=%s fps=%v errors=%d\n",
			loop.Status(), mode, loop.FPS(), loop.ConsecutiveErrors())
		return nil
	case "save":
		if arg == "" {
			return fmt.Errorf("usage: :save file.png")
		}
		surf := loop.Surface()
		if surf == nil {
			return fmt.Errorf("no screen yet; load a mode first")
		}
		return writePNG(arg, surf.Image())
	default:
		return fmt.Errorf("unknown command :%s", name)
	}
}
