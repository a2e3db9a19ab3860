package main

import (
	"context"
	"fmt"

	"github.com/caffeineduck/eyesy/runner"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <mode>",
	Short: "Load a mode and draw one frame",
	Long: `Check that a mode loads, defines setup and draw, survives setup and
draws one frame. Exits non-zero with the failure kind otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]
	a, err := newApp(cmd, path, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	prog, err := a.loop.LoadModeFile(context.Background(), path)
	if err != nil {
		return fmt.Errorf("%s error: %w", runner.ErrorKind(err), err)
	}
	if err := a.loop.Tick(); err != nil {
		return fmt.Errorf("draw error: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%s engine)\n", prog.Name, a.host.Engine())
	return nil
}
