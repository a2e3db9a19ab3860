package hardware

import (
	"math"
	"math/rand/v2"
)

const (
	// AudioBufferLen is the number of samples per channel in every frame.
	AudioBufferLen = 200

	// TrigThreshold is the peak magnitude above which audio_trig is set.
	TrigThreshold = 26214

	sampleScale = 32768

	audioStep   = 0.01
	beatStep    = 0.016
	patternStep = 0.016
)

// AudioSource fills the per-frame audio buffers.
type AudioSource interface {
	// Next returns the next left and right buffers, each AudioBufferLen
	// samples long.
	Next() (left, right []int16)
}

// Synth generates a procedural beat-driven test signal.
type Synth struct {
	rng *rand.Rand

	audioTime   float64
	beatTime    float64
	patternTime float64
}

// NewSynth returns a Synth whose noise is drawn from a generator seeded
// with seed.
func NewSynth(seed uint64) *Synth {
	return &Synth{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next advances the synth by one frame. The right channel mirrors the left.
func (s *Synth) Next() (left, right []int16) {
	s.beatTime += beatStep
	s.patternTime += patternStep

	env := beatEnvelope(math.Mod(s.beatTime, 0.5) / 0.5)
	patternPhase := math.Mod(s.patternTime, 2) / 2
	baseFreq := 220 + math.Sin(s.patternTime*0.5)*100
	ampMod := 0.7 + 0.3*math.Sin(s.patternTime*0.3)

	left = make([]int16, AudioBufferLen)
	for i := range left {
		t := s.audioTime + float64(i)/AudioBufferLen*audioStep

		v := math.Sin(t*baseFreq)*0.4*env +
			math.Sin(t*baseFreq*2)*0.25*env +
			math.Sin(t*baseFreq*3)*0.15*env +
			math.Sin(t*baseFreq*0.5)*0.2*env
		v += math.Sin(t*baseFreq*4) * 0.1 * env * 0.5
		v += math.Sin(t*baseFreq*5) * 0.05 * env * 0.5
		v += (s.rng.Float64() - 0.5) * 0.15 * env

		if patternPhase > 0.3 && patternPhase < 0.35 {
			v += math.Sin(t*baseFreq*8) * 0.3 * env
		}

		left[i] = toSample(v * ampMod)
	}
	s.audioTime += audioStep

	right = make([]int16, len(left))
	copy(right, left)
	return left, right
}

// beatEnvelope ramps from 1 to 0 over the first tenth of the beat, then
// jumps back to 1 and decays linearly, floored at 0.1.
func beatEnvelope(phase float64) float64 {
	if phase < 0.1 {
		return 1 - phase/0.1
	}
	return math.Max(0.1, 1-(phase-0.1)*2)
}

func toSample(v float64) int16 {
	n := math.Round(v * sampleScale)
	return int16(min(max(n, math.MinInt16), math.MaxInt16))
}

// Peak returns the largest sample magnitude in buf.
func Peak(buf []int16) int {
	peak := 0
	for _, s := range buf {
		a := int(s)
		if a < 0 {
			a = -a
		}
		peak = max(peak, a)
	}
	return peak
}
