package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/caffeineduck/eyesy/internal/server"
	"github.com/caffeineduck/eyesy/runner"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control server",
	Long: `Start an HTTP server that drives one mode loop.

Endpoints:
  GET   /health      Health check
  GET   /status      Loop status, mode and error count
  POST  /mode        Load a mode: {"path":"..."} or {"source":"...","name":"..."}
  POST  /start       Start the loop
  POST  /stop        Stop the loop
  PUT   /fps         Change the frame rate: {"fps":30}
  GET   /state       Hardware state (knobs, audio, colors)
  PATCH /state       Turn knobs: {"knob1":0.3}
  GET   /frame.png   Current screen
  GET   /metrics     Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (default from config: 127.0.0.1:8080)")
	serveCmd.Flags().String("mode", "", "Mode to load at startup")
	serveCmd.Flags().Bool("start", false, "Start the preloaded mode immediately")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	start, _ := cmd.Flags().GetBool("start")

	a, err := newApp(cmd, mode, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	listen := a.cfg.Listen
	if cmd.Flags().Changed("listen") {
		listen, _ = cmd.Flags().GetString("listen")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if mode != "" {
		if _, err := a.loop.LoadModeFile(ctx, mode); err != nil {
			return fmt.Errorf("%s error: %w", runner.ErrorKind(err), err)
		}
		if start {
			if err := a.loop.Start(); err != nil {
				return err
			}
		}
	}

	srv := server.New(a.loop, server.WithLogger(a.logger), server.WithGatherer(a.registry))
	return srv.Serve(ctx, listen)
}
