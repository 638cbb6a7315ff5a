package graph

import (
	"math"
	"sync/atomic"
)

// Gain scales the sum of its inputs by an automatable factor. It finishes
// once every input has finished.
type Gain struct {
	inputs
	sr   float64
	Gain *Param
}

func (c *Context) NewGain(level float64) *Gain {
	return &Gain{sr: float64(c.sampleRate), Gain: NewParam(level)}
}

func (g *Gain) Render(dst []float32, start int64) {
	if g.empty() {
		return
	}
	buf := g.mix(len(dst), start)
	for i := 0; i < len(dst)/2; i++ {
		k := float32(g.Gain.ValueAt(float64(start+int64(i)) / g.sr))
		dst[i*2] += buf[i*2] * k
		dst[i*2+1] += buf[i*2+1] * k
	}
}

func (g *Gain) Finished(int64) bool { return g.empty() }

// Mixer sums its inputs at unity. It never finishes.
type Mixer struct {
	inputs
}

func (c *Context) NewMixer() *Mixer { return &Mixer{} }

func (m *Mixer) Render(dst []float32, start int64) {
	if m.empty() {
		return
	}
	buf := m.mix(len(dst), start)
	for i, s := range buf {
		dst[i] += s
	}
}

// Inputs reports the number of connected inputs.
func (m *Mixer) Inputs() int { return len(m.nodes) }

// MasterGain is a persistent gain whose level is smoothed toward a target so
// volume changes never click. The target is set from any goroutine.
type MasterGain struct {
	inputs
	target  atomic.Uint64
	current float64
	coeff   float64
}

// NewMasterGain smooths level changes with a one-pole filter of time
// constant tau seconds.
func (c *Context) NewMasterGain(level, tau float64) *MasterGain {
	m := &MasterGain{current: level}
	if tau > 0 {
		m.coeff = 1 - math.Exp(-1/(tau*float64(c.sampleRate)))
	} else {
		m.coeff = 1
	}
	m.target.Store(math.Float64bits(level))
	return m
}

// SetLevel clamps negative levels to 0.
func (m *MasterGain) SetLevel(level float64) {
	if level < 0 {
		level = 0
	}
	m.target.Store(math.Float64bits(level))
}

func (m *MasterGain) Level() float64 {
	return math.Float64frombits(m.target.Load())
}

func (m *MasterGain) Render(dst []float32, start int64) {
	target := m.Level()
	if m.empty() {
		m.current = target
		return
	}
	buf := m.mix(len(dst), start)
	for i := 0; i < len(dst)/2; i++ {
		m.current += m.coeff * (target - m.current)
		k := float32(m.current)
		dst[i*2] += buf[i*2] * k
		dst[i*2+1] += buf[i*2+1] * k
	}
}
