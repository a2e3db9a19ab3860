package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorPicker(t *testing.T) {
	tests := []struct {
		name string
		knob float64
		want [3]int
	}{
		{"zero is red", 0, [3]int{255, 0, 0}},
		{"one third is green", 1.0 / 3, [3]int{0, 255, 0}},
		{"two thirds is blue", 2.0 / 3, [3]int{0, 0, 255}},
		{"one sixth is yellow", 1.0 / 6, [3]int{255, 255, 0}},
		{"one folds back to red", 1, [3]int{255, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ColorPicker(tt.knob)
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1, "channel %d of %v", i, got)
			}
		})
	}
}

func TestColorPickerDominantChannel(t *testing.T) {
	green := ColorPicker(1.0 / 3)
	assert.InDelta(t, 255, green[1], 10)
	assert.Greater(t, green[1], green[0])
	assert.Greater(t, green[1], green[2])

	blue := ColorPicker(2.0 / 3)
	assert.InDelta(t, 255, blue[2], 10)
	assert.Greater(t, blue[2], blue[0])
	assert.Greater(t, blue[2], blue[1])
}

func TestColorPickerChannelsInRange(t *testing.T) {
	for knob := -0.1; knob <= 1.1; knob += 0.01 {
		for _, c := range ColorPicker(knob) {
			assert.GreaterOrEqual(t, c, 0)
			assert.LessOrEqual(t, c, 255)
		}
	}
}

func TestLFOStaticBelowMidpoint(t *testing.T) {
	var l LFO
	first := l.Color(0.25, DefaultLFORate)
	second := l.Color(0.25, DefaultLFORate)

	assert.Equal(t, ColorPicker(0.5), first)
	assert.Equal(t, first, second)
	assert.InDelta(t, 0.032, l.Time(), 1e-9)
}

func TestLFOAnimatesAboveMidpoint(t *testing.T) {
	var l LFO
	first := l.Color(1, DefaultLFORate)
	for range 100 {
		l.Color(1, DefaultLFORate)
	}
	later := l.Color(1, DefaultLFORate)

	assert.Equal(t, [3]int{255, 0, 0}, first, "t=0 sits on red")
	assert.NotEqual(t, first, later)
}

func TestLFOAtMidpointHoldsRed(t *testing.T) {
	var l LFO
	for range 10 {
		assert.Equal(t, [3]int{255, 0, 0}, l.Color(0.5, DefaultLFORate))
	}
}
