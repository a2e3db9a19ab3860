package hardware

// MidiNoteCount is the length of the midi_notes table.
const MidiNoteCount = 128

// State is the emulated hardware as seen by mode code. The host owns it;
// the interpreter only ever holds a copy refreshed once per tick.
type State struct {
	Knob1 float64 `mapstructure:"knob1"`
	Knob2 float64 `mapstructure:"knob2"`
	Knob3 float64 `mapstructure:"knob3"`
	Knob4 float64 `mapstructure:"knob4"`
	Knob5 float64 `mapstructure:"knob5"`

	Button1 bool `mapstructure:"button1"`
	Button2 bool `mapstructure:"button2"`
	Button3 bool `mapstructure:"button3"`
	Button4 bool `mapstructure:"button4"`
	Shift   bool `mapstructure:"shift"`

	AudioGain float64 `mapstructure:"audio_gain"`
	Trig      bool    `mapstructure:"trig"`
	AutoClear bool    `mapstructure:"auto_clear"`
	BGColor   [3]int  `mapstructure:"bg_color"`

	MidiNotes   [MidiNoteCount]bool `mapstructure:"midi_notes"`
	MidiNoteNew bool                `mapstructure:"midi_note_new"`

	// Written by the host only.
	AudioIn   []int16 `mapstructure:"-"`
	AudioInR  []int16 `mapstructure:"-"`
	AudioTrig bool    `mapstructure:"-"`
	ModeRoot  string  `mapstructure:"-"`
	Mode      string  `mapstructure:"-"`
	XRes      int     `mapstructure:"-"`
	YRes      int     `mapstructure:"-"`
}

// DefaultState returns the power-on state for a screen of the given size:
// knobs centered, unity gain, auto clear on and the background taken from
// knob5.
func DefaultState(width, height int) State {
	s := State{
		Knob1:     0.5,
		Knob2:     0.5,
		Knob3:     0.5,
		Knob4:     0.5,
		Knob5:     0.5,
		AudioGain: 1,
		AutoClear: true,
		XRes:      width,
		YRes:      height,
		AudioIn:   make([]int16, AudioBufferLen),
		AudioInR:  make([]int16, AudioBufferLen),
	}
	s.BGColor = ColorPicker(s.Knob5)
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.AudioIn = append([]int16(nil), s.AudioIn...)
	s.AudioInR = append([]int16(nil), s.AudioInR...)
	return s
}

// Direction says which way a field flows between host and interpreter.
type Direction int

const (
	// Push fields are written into the interpreter every tick and never
	// read back.
	Push Direction = iota
	// Feedback fields are pushed like any other, but a helper callable
	// from mode code also writes them on the host side.
	Feedback
)

func (d Direction) String() string {
	if d == Feedback {
		return "feedback"
	}
	return "push"
}

// Kind is the value type of a field as mode code sees it.
type Kind int

const (
	Float Kind = iota
	Int
	Bool
	String
	Samples
	Color
	Notes
)

// Field is one row of the wire contract between host and mode code.
type Field struct {
	Name      string
	Kind      Kind
	Direction Direction
	get       func(*State) any
}

// Value reads the field from s in the form handed to the interpreter.
func (f Field) Value(s *State) any {
	return f.get(s)
}

// Fields is the full set of attributes mirrored onto the eyesy object, in
// push order.
var Fields = []Field{
	{"xres", Int, Push, func(s *State) any { return s.XRes }},
	{"yres", Int, Push, func(s *State) any { return s.YRes }},
	{"knob1", Float, Push, func(s *State) any { return s.Knob1 }},
	{"knob2", Float, Push, func(s *State) any { return s.Knob2 }},
	{"knob3", Float, Push, func(s *State) any { return s.Knob3 }},
	{"knob4", Float, Push, func(s *State) any { return s.Knob4 }},
	{"knob5", Float, Push, func(s *State) any { return s.Knob5 }},
	{"button1", Bool, Push, func(s *State) any { return s.Button1 }},
	{"button2", Bool, Push, func(s *State) any { return s.Button2 }},
	{"button3", Bool, Push, func(s *State) any { return s.Button3 }},
	{"button4", Bool, Push, func(s *State) any { return s.Button4 }},
	{"shift", Bool, Push, func(s *State) any { return s.Shift }},
	{"audio_gain", Float, Push, func(s *State) any { return s.AudioGain }},
	{"trig", Bool, Push, func(s *State) any { return s.Trig }},
	{"audio_in", Samples, Push, func(s *State) any { return samples(s.AudioIn) }},
	{"audio_in_r", Samples, Push, func(s *State) any { return samples(s.AudioInR) }},
	{"auto_clear", Bool, Push, func(s *State) any { return s.AutoClear }},
	{"mode_root", String, Push, func(s *State) any { return s.ModeRoot }},
	{"mode", String, Push, func(s *State) any { return s.Mode }},
	{"bg_color", Color, Feedback, func(s *State) any { return append([]int(nil), s.BGColor[:]...) }},
	{"midi_notes", Notes, Push, func(s *State) any { return append([]bool(nil), s.MidiNotes[:]...) }},
	{"midi_note_new", Bool, Push, func(s *State) any { return s.MidiNoteNew }},
	{"audio_trig", Bool, Push, func(s *State) any { return s.AudioTrig }},
}

// FieldByName looks up a row of Fields.
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Values renders every field of s, keyed by field name.
func Values(s *State) map[string]any {
	out := make(map[string]any, len(Fields))
	for _, f := range Fields {
		out[f.Name] = f.Value(s)
	}
	return out
}

func samples(buf []int16) []int {
	out := make([]int, len(buf))
	for i, v := range buf {
		out[i] = int(v)
	}
	return out
}
