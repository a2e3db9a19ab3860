package hardware

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caffeineduck/eyesy/interp"
	"github.com/mitchellh/mapstructure"
)

// Global is the interpreter global the hardware object is bound to.
const Global = "eyesy"

// Bridge owns the hardware State and mirrors it into an interpreter
// session as the eyesy object.
type Bridge struct {
	mu     sync.Mutex
	state  State
	audio  AudioSource
	lfo    LFO
	logger *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithAudioSource replaces the synthetic audio generator.
func WithAudioSource(src AudioSource) Option {
	return func(b *Bridge) {
		b.audio = src
	}
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// NewBridge returns a Bridge in the power-on state for a screen of the
// given size.
func NewBridge(width, height int, opts ...Option) *Bridge {
	b := &Bridge{state: DefaultState(width, height)}
	for _, opt := range opts {
		opt(b)
	}
	if b.audio == nil {
		b.audio = NewSynth(uint64(time.Now().UnixNano()))
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.refreshAudio()
	return b
}

// Snapshot returns a copy of the current state.
func (b *Bridge) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Clone()
}

// Update mutates the state under the bridge lock.
func (b *Bridge) Update(fn func(*State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.state)
}

// SetMode records the identity of the mode being loaded.
func (b *Bridge) SetMode(name, root string) {
	b.Update(func(s *State) {
		s.Mode = name
		s.ModeRoot = root
	})
}

// Apply decodes control changes keyed by field name, as sent by a control
// surface. Only controls are accepted; host-written fields such as
// audio_in or mode are rejected. Knobs are clamped to [0,1].
func (b *Bridge) Apply(values map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.state.Clone()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &next,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("apply controls: %w", err)
	}

	for _, k := range []*float64{&next.Knob1, &next.Knob2, &next.Knob3, &next.Knob4, &next.Knob5} {
		*k = min(max(*k, 0), 1)
	}
	next.AudioGain = max(next.AudioGain, 0)
	for i, c := range next.BGColor {
		next.BGColor[i] = min(max(c, 0), 255)
	}

	b.state = next
	return nil
}

// ColorPickerBG computes ColorPicker(knob) and stores it as the background
// color.
func (b *Bridge) ColorPickerBG(knob float64) [3]int {
	c := ColorPicker(knob)
	b.mu.Lock()
	b.state.BGColor = c
	b.mu.Unlock()
	return c
}

// ColorPickerLFO is LFO.Color on the bridge's shared accumulator.
func (b *Bridge) ColorPickerLFO(knob, maxRate float64) [3]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lfo.Color(knob, maxRate)
}

func (b *Bridge) refreshAudio() {
	left, right := b.audio.Next()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.AudioIn = fit(left)
	b.state.AudioInR = fit(right)
	b.state.AudioTrig = Peak(b.state.AudioIn) > TrigThreshold
}

// fit pads or truncates buf to AudioBufferLen.
func fit(buf []int16) []int16 {
	out := make([]int16, AudioBufferLen)
	copy(out, buf)
	return out
}

// Inject binds the eyesy object in s. It does nothing when eyesy is already
// bound, so helper state such as the LFO clock survives re-injection.
func (b *Bridge) Inject(s *interp.Session) error {
	if s.Has(Global) {
		return nil
	}

	st := b.Snapshot()
	obj := interp.Object(Values(&st))
	for name, fn := range b.methods() {
		obj[name] = fn
	}
	if err := s.SetGlobal(Global, obj); err != nil {
		return fmt.Errorf("inject %s: %w", Global, err)
	}
	b.logger.Debug("hardware bridge injected", "engine", s.Engine())
	return nil
}

// Push regenerates the audio buffers and writes every field onto the eyesy
// object. It is called exactly once per tick.
func (b *Bridge) Push(s *interp.Session) error {
	b.refreshAudio()
	st := b.Snapshot()
	for _, f := range Fields {
		if err := s.SetAttr(Global, f.Name, f.Value(&st)); err != nil {
			return fmt.Errorf("push %s: %w", f.Name, err)
		}
	}
	return nil
}

// methods are the helpers exposed on the eyesy object. They run inside mode
// code, so they must not call back into the session.
func (b *Bridge) methods() map[string]interp.Func {
	return map[string]interp.Func{
		"color_picker": func(args ...any) (any, error) {
			knob, err := knobArg("color_picker", args)
			if err != nil {
				return nil, err
			}
			c := ColorPicker(knob)
			return c[:], nil
		},
		"color_picker_lfo": func(args ...any) (any, error) {
			knob, err := knobArg("color_picker_lfo", args)
			if err != nil {
				return nil, err
			}
			rate := DefaultLFORate
			if len(args) > 1 && args[1] != nil {
				if rate, err = interp.ToFloat(args[1]); err != nil {
					return nil, fmt.Errorf("color_picker_lfo: max_rate: %w", err)
				}
			}
			c := b.ColorPickerLFO(knob, rate)
			return c[:], nil
		},
		"color_picker_bg": func(args ...any) (any, error) {
			knob, err := knobArg("color_picker_bg", args)
			if err != nil {
				return nil, err
			}
			c := b.ColorPickerBG(knob)
			return c[:], nil
		},
		"set_mode_root": func(args ...any) (any, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("set_mode_root: missing path")
			}
			path, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("set_mode_root: expected string, got %T", args[0])
			}
			b.Update(func(s *State) { s.ModeRoot = path })
			return nil, nil
		},
	}
}

func knobArg(fn string, args []any) (float64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s: missing knob", fn)
	}
	knob, err := interp.ToFloat(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fn, err)
	}
	return knob, nil
}
