package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/eyesy/hardware"
	"github.com/caffeineduck/eyesy/hardware/portaudio"
	"github.com/caffeineduck/eyesy/internal/config"
	"github.com/caffeineduck/eyesy/internal/logging"
	"github.com/caffeineduck/eyesy/interp"
	"github.com/caffeineduck/eyesy/language/javascript"
	"github.com/caffeineduck/eyesy/language/python"
	"github.com/caffeineduck/eyesy/runner"
	"github.com/caffeineduck/eyesy/surface"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eyesy",
	Short: "Run EYESY video synthesizer modes",
	Long: `eyesy - Run EYESY visual modes outside the hardware.

A mode is a Python or JavaScript program defining setup(screen, eyesy) and
draw(screen, eyesy). The runtime binds the knobs, audio input and color
helpers of the EYESY as the eyesy object, provides a pygame-style drawing
API, and calls draw at a fixed frame rate. Failing modes are stopped after
repeated or fatal drawing errors instead of taking the host down.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringP("lang", "l", "", "Language: python, js (default: from mode file extension)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable the Python compilation cache")
	rootCmd.PersistentFlags().Float64("fps", 0, "Target frame rate (default from config: 60)")
	rootCmd.PersistentFlags().Int("width", 0, "Screen width (default from config: 1280)")
	rootCmd.PersistentFlags().Int("height", 0, "Screen height (default from config: 720)")
	rootCmd.PersistentFlags().String("audio", "", "Audio source: synthetic, portaudio")
}

// loadConfig reads --config, if given, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("lang") {
		lang, _ := flags.GetString("lang")
		engine, err := engineName(lang, "")
		if err != nil {
			return cfg, err
		}
		cfg.Engine = engine
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("fps") {
		cfg.FPS, _ = flags.GetFloat64("fps")
	}
	if flags.Changed("width") {
		cfg.Width, _ = flags.GetInt("width")
	}
	if flags.Changed("height") {
		cfg.Height, _ = flags.GetInt("height")
	}
	if flags.Changed("audio") {
		cfg.Audio, _ = flags.GetString("audio")
	}
	return cfg, cfg.Validate()
}

// engineName resolves the engine from an explicit language or, failing
// that, from the mode file's extension.
func engineName(lang, filename string) (string, error) {
	if lang == "" && filename != "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".py":
			lang = "python"
		case ".js", ".mjs":
			lang = "js"
		}
	}

	switch lang {
	case "":
		return "", fmt.Errorf("language required: use --lang python or --lang js")
	case "js", "javascript":
		return config.EngineJavaScript, nil
	case "python", "py":
		return config.EnginePython, nil
	default:
		return "", fmt.Errorf("unknown language %q: use python or js", lang)
	}
}

func newEngine(cfg config.Config, logger *slog.Logger, noCache bool) interp.Engine {
	if cfg.Engine == config.EnginePython {
		opts := []python.Option{
			python.WithModulePath(cfg.Python.Module),
			python.WithMemoryLimit(cfg.Python.MemoryLimitPages),
			python.WithLogger(logger),
		}
		if !noCache {
			opts = append(opts, python.WithDiskCache(cfg.Python.CacheDir))
		}
		if d := cfg.Python.CallTimeout.Std(); d > 0 {
			opts = append(opts, python.WithCallTimeout(d))
		}
		return python.New(opts...)
	}
	return javascript.New(javascript.WithLogger(logger))
}

// app is one assembled runtime: engine host, hardware bridge, drawing
// layer and loop.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	loop     *runner.Loop
	host     *interp.Host
	bridge   *hardware.Bridge
	registry *prometheus.Registry
	closers  []func() error
}

// newApp assembles the runtime for cmd. modePath, when set, picks the
// engine if the config does not name one. Fault messages go to errOut.
func newApp(cmd *cobra.Command, modePath string, errOut io.Writer, extra ...runner.Option) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Engine == "" {
		if cfg.Engine, err = engineName("", modePath); err != nil {
			return nil, err
		}
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(level)

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}

	bridgeOpts := []hardware.Option{hardware.WithLogger(logger)}
	if cfg.Audio == config.AudioPortAudio {
		src, err := portaudio.Open(logger)
		if err != nil {
			return nil, fmt.Errorf("audio: %w", err)
		}
		a.closers = append(a.closers, src.Close)
		bridgeOpts = append(bridgeOpts, hardware.WithAudioSource(src))
	}
	a.bridge = hardware.NewBridge(cfg.Width, cfg.Height, bridgeOpts...)
	if len(cfg.InitialState) > 0 {
		if err := a.bridge.Apply(cfg.InitialState); err != nil {
			a.Close()
			return nil, fmt.Errorf("initial_state: %w", err)
		}
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	a.host = interp.NewHost(newEngine(cfg, logger, noCache), interp.WithLogger(logger))
	opts := []runner.Option{
		runner.WithSize(cfg.Width, cfg.Height),
		runner.WithFPS(cfg.FPS),
		runner.WithClassifier(runner.SubstringClassifier{
			Patterns:  cfg.FatalPatterns,
			Threshold: cfg.ErrorThreshold,
		}),
		runner.WithScheduler(runner.TimerScheduler{Interval: cfg.SchedulerInterval.Std()}),
		runner.WithResetNamespace(cfg.ResetNamespace),
		runner.WithLogger(logger),
		runner.WithMetrics(runner.NewMetrics(a.registry)),
		runner.WithReporter(func(msg string) { fmt.Fprintln(errOut, msg) }),
		runner.WithProgress(func(p interp.Progress) {
			logger.Debug("loading runtime", "status", p.Status, "progress", p.Fraction)
		}),
	}
	a.loop = runner.New(a.host, a.bridge, surface.NewLayer(), append(opts, extra...)...)
	return a, nil
}

// parseSet parses repeated --set key=value flags into control values.
// Values stay strings; the bridge decodes them weakly.
func parseSet(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q (expected name=value)", p)
		}
		values[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return values, nil
}

func (a *app) Close() error {
	var first error
	if a.loop != nil {
		first = a.loop.Close()
	}
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
