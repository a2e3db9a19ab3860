// Package config loads eyesy runtime settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caffeineduck/eyesy/internal/logging"
	"gopkg.in/yaml.v3"
)

// Audio sources.
const (
	AudioSynthetic = "synthetic"
	AudioPortAudio = "portaudio"
)

// Engines. An empty engine picks one from the mode file's extension.
const (
	EngineJavaScript = "javascript"
	EnginePython     = "python"
)

// Config holds every runtime setting. Zero values are replaced by Default
// only when loading from a file; a literal Config is taken as is.
type Config struct {
	Engine            string         `yaml:"engine" json:"engine"`
	Width             int            `yaml:"width" json:"width"`
	Height            int            `yaml:"height" json:"height"`
	FPS               float64        `yaml:"fps" json:"fps"`
	ErrorThreshold    int            `yaml:"error_threshold" json:"error_threshold"`
	FatalPatterns     []string       `yaml:"fatal_patterns" json:"fatal_patterns"`
	ResetNamespace    bool           `yaml:"reset_namespace" json:"reset_namespace"`
	SchedulerInterval Duration       `yaml:"scheduler_interval" json:"scheduler_interval"`
	LogLevel          string         `yaml:"log_level" json:"log_level"`
	Listen            string         `yaml:"listen" json:"listen"`
	Audio             string         `yaml:"audio" json:"audio"`
	Python            Python         `yaml:"python" json:"python"`
	InitialState      map[string]any `yaml:"initial_state" json:"initial_state"`
}

// Python configures the WASI Python engine.
type Python struct {
	Module           string   `yaml:"module" json:"module"`
	CacheDir         string   `yaml:"cache_dir" json:"cache_dir"`
	MemoryLimitPages uint32   `yaml:"memory_limit_pages" json:"memory_limit_pages"`
	CallTimeout      Duration `yaml:"call_timeout" json:"call_timeout"`
}

// Default returns the stock configuration: a 1280x720 screen at 60 fps
// with the synthetic audio source.
func Default() Config {
	return Config{
		Width:             1280,
		Height:            720,
		FPS:               60,
		ErrorThreshold:    10,
		FatalPatterns:     []string{"NoneType", "None", "not found", "of undefined", "of null"},
		SchedulerInterval: Duration(4 * time.Millisecond),
		LogLevel:          "info",
		Listen:            "127.0.0.1:8080",
		Audio:             AudioSynthetic,
		Python: Python{
			Module:      "python.wasm",
			CallTimeout: Duration(30 * time.Second),
		},
	}
}

// Load reads path as JSON when it ends in .json and as YAML otherwise.
// Keys absent from the file keep their Default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Engine {
	case "", EngineJavaScript, EnginePython:
	default:
		errs = append(errs, fmt.Errorf("engine: unknown engine %q", c.Engine))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("width/height: must be positive, got %dx%d", c.Width, c.Height))
	}
	if !(c.FPS > 0) {
		errs = append(errs, fmt.Errorf("fps: must be positive, got %v", c.FPS))
	}
	if c.ErrorThreshold < 0 {
		errs = append(errs, fmt.Errorf("error_threshold: must not be negative, got %d", c.ErrorThreshold))
	}
	if c.SchedulerInterval < 0 {
		errs = append(errs, errors.New("scheduler_interval: must not be negative"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.Audio {
	case AudioSynthetic, AudioPortAudio:
	default:
		errs = append(errs, fmt.Errorf("audio: unknown source %q", c.Audio))
	}
	return errors.Join(errs...)
}

// Duration is a time.Duration written as a string such as "4ms" in
// config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
