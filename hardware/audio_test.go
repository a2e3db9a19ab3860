package hardware

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthBufferShape(t *testing.T) {
	s := NewSynth(1)
	for range 500 {
		left, right := s.Next()
		require.Len(t, left, AudioBufferLen)
		require.Len(t, right, AudioBufferLen)
		assert.Equal(t, left, right)
		for _, v := range left {
			assert.GreaterOrEqual(t, int(v), math.MinInt16)
			assert.LessOrEqual(t, int(v), math.MaxInt16)
		}
	}
}

func TestSynthAccumulators(t *testing.T) {
	s := NewSynth(1)
	for range 3 {
		s.Next()
	}
	assert.InDelta(t, 0.03, s.audioTime, 1e-9)
	assert.InDelta(t, 0.048, s.beatTime, 1e-9)
	assert.InDelta(t, 0.048, s.patternTime, 1e-9)
}

func TestSynthDeterministicForSeed(t *testing.T) {
	a, b := NewSynth(42), NewSynth(42)
	for range 10 {
		la, _ := a.Next()
		lb, _ := b.Next()
		assert.Equal(t, la, lb)
	}
}

func TestSynthProducesSignal(t *testing.T) {
	s := NewSynth(7)
	peak := 0
	for range 100 {
		left, _ := s.Next()
		peak = max(peak, Peak(left))
	}
	assert.Greater(t, peak, 1000)
}

func TestBeatEnvelope(t *testing.T) {
	tests := []struct {
		phase float64
		want  float64
	}{
		{0, 1},
		{0.05, 0.5},
		{0.1, 1},
		{0.35, 0.5},
		{0.6, 0.1},
		{0.99, 0.1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, beatEnvelope(tt.phase), 1e-9, "phase %v", tt.phase)
	}
}

func TestToSampleClamps(t *testing.T) {
	assert.Equal(t, int16(math.MaxInt16), toSample(2))
	assert.Equal(t, int16(math.MinInt16), toSample(-2))
	assert.Equal(t, int16(16384), toSample(0.5))
}

func TestPeak(t *testing.T) {
	assert.Equal(t, 0, Peak(nil))
	assert.Equal(t, 32768, Peak([]int16{3, math.MinInt16, 100}))
}
