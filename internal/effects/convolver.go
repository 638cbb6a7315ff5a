package effects

import "github.com/cbegin/skyline-go/internal/dsp"

// ConvolverBlock is the partition size of the convolution. Output lags input
// by one block.
const ConvolverBlock = 1024

// Convolver runs a mono input through a stereo impulse response using
// uniformly partitioned overlap-add FFT convolution. The two IR channels are
// packed into one complex spectrum (left real, right imaginary), so one
// inverse transform per block yields both output channels.
type Convolver struct {
	fft     *dsp.FFT
	block   int
	parts   [][]complex128
	history [][]complex128
	silent  []bool
	head    int

	in         []float64
	outL, outR []float32
	overlap    []complex128
	acc        []complex128
	pos        int
}

// NewConvolver prepares the partitioned spectrum of the IR. irL and irR must
// have equal length.
func NewConvolver(irL, irR []float32) *Convolver {
	block := ConvolverBlock
	n := block * 2
	count := (len(irL) + block - 1) / block
	if count < 1 {
		count = 1
	}
	c := &Convolver{
		fft:     dsp.NewFFT(n),
		block:   block,
		parts:   make([][]complex128, count),
		history: make([][]complex128, count),
		silent:  make([]bool, count),
		in:      make([]float64, block),
		outL:    make([]float32, block),
		outR:    make([]float32, block),
		overlap: make([]complex128, block),
		acc:     make([]complex128, n),
	}
	for k := range c.parts {
		h := make([]complex128, n)
		for i := 0; i < block; i++ {
			j := k*block + i
			if j >= len(irL) {
				break
			}
			h[i] = complex(float64(irL[j]), float64(irR[j]))
		}
		c.fft.Transform(h)
		c.parts[k] = h
		c.history[k] = make([]complex128, n)
		c.silent[k] = true
	}
	return c
}

func (c *Convolver) Process(l, r float32) (float32, float32) {
	c.in[c.pos] = float64(l+r) * 0.5
	outL, outR := c.outL[c.pos], c.outR[c.pos]
	c.pos++
	if c.pos == c.block {
		c.pos = 0
		c.flush()
	}
	return outL, outR
}

func (c *Convolver) flush() {
	x := c.history[c.head]
	silent := true
	for i, v := range c.in {
		x[i] = complex(v, 0)
		if v != 0 {
			silent = false
		}
	}
	clear(x[c.block:])
	if !silent {
		c.fft.Transform(x)
	}
	c.silent[c.head] = silent

	clear(c.acc)
	active := false
	count := len(c.parts)
	for k, h := range c.parts {
		slot := (c.head - k + count) % count
		if c.silent[slot] {
			continue
		}
		active = true
		xs := c.history[slot]
		for i := range c.acc {
			c.acc[i] += xs[i] * h[i]
		}
	}
	c.head = (c.head + 1) % count

	if active {
		c.fft.Inverse(c.acc)
	}
	for i := 0; i < c.block; i++ {
		y := c.acc[i] + c.overlap[i]
		c.outL[i] = float32(real(y))
		c.outR[i] = float32(imag(y))
		c.overlap[i] = c.acc[i+c.block]
	}
}
