package graph

import "math"

type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
)

// Butterworth is the default filter Q.
const Butterworth = math.Sqrt2 / 2

// BiquadFilter is an RBJ cookbook second-order filter with fixed cutoff.
type BiquadFilter struct {
	inputs
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     [2]float64
}

func (c *Context) NewBiquadFilter(typ FilterType, cutoff, q float64) *BiquadFilter {
	f := &BiquadFilter{}
	f.design(typ, cutoff, q, float64(c.sampleRate))
	return f
}

func (f *BiquadFilter) design(typ FilterType, cutoff, q, sr float64) {
	if q <= 0 {
		q = Butterworth
	}
	cutoff = math.Min(math.Max(cutoff, 1), sr*0.49)
	w0 := 2 * math.Pi * cutoff / sr
	cosw, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	var b0, b1, b2 float64
	switch typ {
	case Highpass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = b0
	default:
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = b0
	}
	a0 := 1 + alpha
	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1, f.a2 = -2*cosw/a0, (1-alpha)/a0
}

func (f *BiquadFilter) Render(dst []float32, start int64) {
	if f.empty() {
		return
	}
	buf := f.mix(len(dst), start)
	for i, s := range buf {
		ch := i & 1
		x := float64(s)
		y := f.b0*x + f.b1*f.x1[ch] + f.b2*f.x2[ch] - f.a1*f.y1[ch] - f.a2*f.y2[ch]
		f.x2[ch], f.x1[ch] = f.x1[ch], x
		f.y2[ch], f.y1[ch] = f.y1[ch], y
		dst[i] += float32(y)
	}
}

func (f *BiquadFilter) Finished(int64) bool { return f.empty() }
