package graph

import (
	"math"
	"math/rand/v2"
)

const twoPi = 2 * math.Pi

// Waveform selects the periodic shape of an Oscillator.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

// Source is a scheduled generator that can be halted.
type Source interface {
	Node
	Finisher
	Start(t float64)
	Stop(t float64)
	StartFrame() int64
	StopFrame() int64
	haltAt(frame int64)
}

type scheduled struct {
	sr         float64
	startFrame int64
	stopFrame  int64
}

func newScheduled(sampleRate int) scheduled {
	return scheduled{sr: float64(sampleRate), startFrame: math.MaxInt64, stopFrame: math.MaxInt64}
}

func (s *scheduled) Start(t float64) {
	s.startFrame = int64(math.Round(t * s.sr))
}

func (s *scheduled) Stop(t float64) {
	s.haltAt(int64(math.Round(t * s.sr)))
}

func (s *scheduled) haltAt(frame int64) {
	if frame < s.stopFrame {
		s.stopFrame = frame
	}
}

func (s *scheduled) Finished(frame int64) bool {
	return frame >= s.stopFrame
}

// StartFrame and StopFrame expose the scheduled window.
func (s *scheduled) StartFrame() int64 { return s.startFrame }
func (s *scheduled) StopFrame() int64  { return s.stopFrame }

func (s *scheduled) playing(frame int64) bool {
	return frame >= s.startFrame && frame < s.stopFrame
}

// Oscillator is a band-limited periodic generator with automatable frequency.
type Oscillator struct {
	scheduled
	Wave      Waveform
	Frequency *Param
	phase     float64
}

func (c *Context) NewOscillator(wave Waveform, freq float64) *Oscillator {
	return &Oscillator{
		scheduled: newScheduled(c.sampleRate),
		Wave:      wave,
		Frequency: NewParam(freq),
	}
}

func (o *Oscillator) Render(dst []float32, start int64) {
	frames := len(dst) / 2
	for i := 0; i < frames; i++ {
		f := start + int64(i)
		if !o.playing(f) {
			continue
		}
		dt := o.Frequency.ValueAt(float64(f)/o.sr) / o.sr
		v := float32(o.sample(dt))
		dst[i*2] += v
		dst[i*2+1] += v
	}
}

func (o *Oscillator) sample(dt float64) float64 {
	p := o.phase
	o.phase += dt
	o.phase -= math.Floor(o.phase)
	switch o.Wave {
	case Square:
		out := -1.0
		if p < 0.5 {
			out = 1
		}
		out += polyBLEP(p, dt)
		out -= polyBLEP(math.Mod(p+0.5, 1), dt)
		return out
	case Sawtooth:
		return 2*p - 1 - polyBLEP(p, dt)
	case Triangle:
		return 1 - 4*math.Abs(p-0.5)
	default:
		return math.Sin(twoPi * p)
	}
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// Noise is uniform white noise in [-1, 1).
type Noise struct {
	scheduled
	rng *rand.Rand
}

func (c *Context) NewNoise() *Noise {
	seed := c.nextSeed()
	return &Noise{
		scheduled: newScheduled(c.sampleRate),
		rng:       rand.New(rand.NewPCG(seed, seed*0x9e3779b97f4a7c15)),
	}
}

func (n *Noise) Render(dst []float32, start int64) {
	frames := len(dst) / 2
	for i := 0; i < frames; i++ {
		if !n.playing(start + int64(i)) {
			continue
		}
		v := float32(n.rng.Float64()*2 - 1)
		dst[i*2] += v
		dst[i*2+1] += v
	}
}
