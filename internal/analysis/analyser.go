// Package analysis exposes what is currently audible as waveform samples and
// smoothed frequency magnitudes for a visualiser. It is fed by a tap on the
// rendered output and read by polling.
package analysis

import (
	"math"
	"sync"

	"github.com/cbegin/skyline-go/internal/dsp"
)

const (
	DefaultFFTSize   = 2048
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100
	DefaultMaxDB     = -30

	ringBufLen = 131072
)

type Option func(*Analyser)

// WithFFTSize sets the analysis window. It must be a power of two.
func WithFFTSize(n int) Option {
	return func(a *Analyser) { a.fftSize = n }
}

// WithSmoothing sets the time smoothing of magnitudes in [0,1).
func WithSmoothing(v float64) Option {
	return func(a *Analyser) { a.smoothing = math.Min(math.Max(v, 0), 0.999) }
}

func WithDecibelRange(minDB, maxDB float64) Option {
	return func(a *Analyser) { a.minDB, a.maxDB = minDB, maxDB }
}

// WithPosition aligns reads with the audible output. pos reports how many
// frames the audio device has actually played.
func WithPosition(pos func() int64) Option {
	return func(a *Analyser) { a.position = pos }
}

type Analyser struct {
	mu          sync.Mutex
	ring        []float32 // mono ring buffer
	writePos    int
	totalTapped int64

	fftSize      int
	smoothing    float64
	minDB, maxDB float64
	position     func() int64

	fft      *dsp.FFT
	window   []float64
	smoothed []float64
	spectrum []complex128
}

func New(opts ...Option) *Analyser {
	a := &Analyser{
		ring:      make([]float32, ringBufLen),
		fftSize:   DefaultFFTSize,
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDB,
		maxDB:     DefaultMaxDB,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.fft = dsp.NewFFT(a.fftSize)
	a.window = blackman(a.fftSize)
	a.smoothed = make([]float64, a.fftSize/2)
	a.spectrum = make([]complex128, a.fftSize)
	return a
}

func (a *Analyser) FFTSize() int { return a.fftSize }

func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// Tap receives interleaved stereo from the audio goroutine.
func (a *Analyser) Tap(samples []float32) {
	a.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		a.ring[a.writePos] = (samples[i] + samples[i+1]) * 0.5
		a.writePos = (a.writePos + 1) % ringBufLen
		a.totalTapped++
	}
	a.mu.Unlock()
}

// snapshot copies the n samples that are playing now. Caller holds mu.
func (a *Analyser) snapshot(out []float32) {
	n := len(out)
	delay := 0
	if a.position != nil {
		delay = int(a.totalTapped - a.position())
	}
	if delay < 0 {
		delay = 0
	}
	if delay > ringBufLen-n {
		delay = ringBufLen - n
	}
	start := (a.writePos - delay - n + ringBufLen*2) % ringBufLen
	for i := range out {
		out[i] = a.ring[(start+i)%ringBufLen]
	}
}

// FloatTimeDomainData fills dst with up to FFTSize of the most recent audible
// samples in [-1,1].
func (a *Analyser) FloatTimeDomainData(dst []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot(dst[:min(len(dst), a.fftSize)])
}

// ByteTimeDomainData maps samples to bytes with 128 as silence.
func (a *Analyser) ByteTimeDomainData(dst []byte) {
	buf := make([]float32, min(len(dst), a.fftSize))
	a.FloatTimeDomainData(buf)
	for i, v := range buf {
		dst[i] = toByte(128 * (1 + float64(v)))
	}
}

// FloatFrequencyData fills dst with up to FrequencyBinCount smoothed
// magnitudes in dB. Every call advances the smoothing.
func (a *Analyser) FloatFrequencyData(dst []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analyse()
	for i := range dst[:min(len(dst), len(a.smoothed))] {
		dst[i] = float32(decibels(a.smoothed[i]))
	}
}

// ByteFrequencyData scales the dB magnitudes linearly so the configured
// range spans 0..255.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analyse()
	span := a.maxDB - a.minDB
	for i := range dst[:min(len(dst), len(a.smoothed))] {
		db := decibels(a.smoothed[i])
		dst[i] = toByte(255 * (db - a.minDB) / span)
	}
}

// analyse windows the current snapshot and folds its magnitudes into the
// smoothed spectrum. Caller holds mu.
func (a *Analyser) analyse() {
	frame := make([]float32, a.fftSize)
	a.snapshot(frame)
	for i, v := range frame {
		a.spectrum[i] = complex(float64(v)*a.window[i], 0)
	}
	a.fft.Transform(a.spectrum)
	scale := 1 / float64(a.fftSize)
	for i := range a.smoothed {
		re, im := real(a.spectrum[i]), imag(a.spectrum[i])
		mag := math.Sqrt(re*re+im*im) * scale
		a.smoothed[i] = a.smoothing*a.smoothed[i] + (1-a.smoothing)*mag
	}
}

func blackman(n int) []float64 {
	const alpha = 0.16
	a0, a1, a2 := (1-alpha)/2, 0.5, alpha/2
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}

func decibels(mag float64) float64 {
	if mag <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(mag)
}

func toByte(v float64) byte {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
