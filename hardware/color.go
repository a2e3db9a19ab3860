package hardware

import "math"

// DefaultLFORate is the max_rate color_picker_lfo uses when none is given.
const DefaultLFORate = 0.1

const (
	lfoStep      = 0.016
	lfoAmplitude = 30.0
	lfoRateScale = 10.0
)

// ColorPicker maps a knob position to a fully saturated RGB color by
// sweeping the hue circle. Both ends of the knob give red.
func ColorPicker(knob float64) [3]int {
	return hueToRGB(knob * 360)
}

func hueToRGB(hue float64) [3]int {
	h := hue / 60
	sector := math.Floor(h)
	if sector < 0 {
		sector = 0
	}
	// hue 360 lands on sector 6; fold it onto the end of sector 5.
	if sector > 5 {
		sector = 5
	}
	f := h - sector
	q := 1 - f
	t := f

	var r, g, b float64
	switch int(sector) {
	case 0:
		r, g, b = 1, t, 0
	case 1:
		r, g, b = q, 1, 0
	case 2:
		r, g, b = 0, 1, t
	case 3:
		r, g, b = 0, q, 1
	case 4:
		r, g, b = t, 0, 1
	default:
		r, g, b = 1, 0, q
	}
	return [3]int{channel(r), channel(g), channel(b)}
}

func channel(v float64) int {
	c := int(math.Round(v * 255))
	return min(max(c, 0), 255)
}

// LFO is the animated color picker. Its time accumulator advances on every
// call, so one LFO must be shared by everything that animates together.
type LFO struct {
	t float64
}

// Color returns the LFO color for knob. Below 0.5 the knob is a static hue
// ramp over the whole circle; above it the hue oscillates around red at a
// rate proportional to how far the knob is past the midpoint.
func (l *LFO) Color(knob, maxRate float64) [3]int {
	var hue float64
	if knob < 0.5 {
		hue = knob * 2 * 360
	} else {
		rate := (knob - 0.5) * 2 * maxRate
		hue = math.Mod(360+math.Sin(l.t*rate*lfoRateScale)*lfoAmplitude, 360)
	}
	l.t += lfoStep
	return hueToRGB(hue)
}

// Time returns the accumulated LFO time.
func (l *LFO) Time() float64 {
	return l.t
}
