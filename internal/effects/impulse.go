package effects

import (
	"math"
	"math/rand/v2"
)

const (
	// MinImpulseSeconds is the shortest synthesised room.
	MinImpulseSeconds = 0.1
	impulseExponent   = 5.0
)

// Impulse synthesises a stereo room response: independent white noise per
// channel shaped by (1 - i/len)^5 over max(0.1, decay) seconds, scaled so each
// channel has unit energy on average.
func Impulse(sampleRate int, decay float64, seed uint64) (l, r []float32) {
	seconds := math.Max(MinImpulseSeconds, decay)
	length := int(float64(sampleRate) * seconds)
	if length < 1 {
		length = 1
	}
	rng := rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))
	l = make([]float32, length)
	r = make([]float32, length)
	var energy float64
	for i := 0; i < length; i++ {
		env := math.Pow(1-float64(i)/float64(length), impulseExponent)
		a := (rng.Float64()*2 - 1) * env
		b := (rng.Float64()*2 - 1) * env
		l[i], r[i] = float32(a), float32(b)
		energy += a*a + b*b
	}
	if energy > 0 {
		scale := float32(math.Sqrt(2 / energy))
		for i := range l {
			l[i] *= scale
			r[i] *= scale
		}
	}
	return l, r
}
