package effects

// MaxDelaySeconds caps the delay line length.
const MaxDelaySeconds = 2.0

// FeedbackDelay is a stereo echo: each channel's delayed signal is fed back
// into the line through a gain and added to the dry input.
type FeedbackDelay struct {
	bufL, bufR []float32
	pos        int
	feedback   float32
}

// NewFeedbackDelay creates a delay of seconds (capped at MaxDelaySeconds)
// with feedback clamped to [0, 0.95].
func NewFeedbackDelay(sampleRate int, seconds float64, feedback float32) *FeedbackDelay {
	if seconds > MaxDelaySeconds {
		seconds = MaxDelaySeconds
	}
	samples := int(seconds*float64(sampleRate) + 0.5)
	if samples < 1 {
		samples = 1
	}
	return &FeedbackDelay{
		bufL:     make([]float32, samples),
		bufR:     make([]float32, samples),
		feedback: clamp(feedback, 0, 0.95),
	}
}

// Len is the delay in samples.
func (d *FeedbackDelay) Len() int { return len(d.bufL) }

func (d *FeedbackDelay) Process(l, r float32) (float32, float32) {
	delL := d.bufL[d.pos]
	delR := d.bufR[d.pos]
	d.bufL[d.pos] = l + delL*d.feedback
	d.bufR[d.pos] = r + delR*d.feedback
	d.pos++
	if d.pos >= len(d.bufL) {
		d.pos = 0
	}
	return l + delL, r + delR
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
