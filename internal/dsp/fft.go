package dsp

import (
	"math"
	"math/cmplx"
)

// FFT is a precomputed radix-2 transform plan for one size.
type FFT struct {
	n       int
	rev     []int
	twiddle []complex128 // e^{-2πik/n} for k < n/2
}

// NewFFT builds a plan for n points. n must be a power of two.
func NewFFT(n int) *FFT {
	if n < 1 || n&(n-1) != 0 {
		panic("dsp: FFT size must be a power of two")
	}
	bits := 0
	for m := n; m > 1; m >>= 1 {
		bits++
	}
	f := &FFT{
		n:       n,
		rev:     make([]int, n),
		twiddle: make([]complex128, n/2),
	}
	for i := 0; i < n; i++ {
		j := 0
		for b := 0; b < bits; b++ {
			if i&(1<<b) != 0 {
				j |= 1 << (bits - 1 - b)
			}
		}
		f.rev[i] = j
	}
	for k := range f.twiddle {
		f.twiddle[k] = cmplx.Rect(1, -2*math.Pi*float64(k)/float64(n))
	}
	return f
}

func (f *FFT) Size() int { return f.n }

// Transform computes the forward FFT of x in place.
func (f *FFT) Transform(x []complex128) {
	f.run(x, false)
}

// Inverse computes the inverse FFT of x in place, including the 1/n scale.
func (f *FFT) Inverse(x []complex128) {
	f.run(x, true)
	scale := complex(1/float64(f.n), 0)
	for i := range x {
		x[i] *= scale
	}
}

func (f *FFT) run(x []complex128, inverse bool) {
	n := f.n
	if len(x) != n {
		panic("dsp: FFT input length mismatch")
	}
	for i, j := range f.rev {
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}
	// Cooley-Tukey iterative FFT.
	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := n / size
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				w := f.twiddle[k*step]
				if inverse {
					w = cmplx.Conj(w)
				}
				t := w * x[start+k+half]
				x[start+k+half] = x[start+k] - t
				x[start+k] = x[start+k] + t
			}
		}
	}
}
