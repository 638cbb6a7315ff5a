// Package synth turns one scheduled note into a transient graph fragment.
// Every voice decays to near silence by the end of its window and stops
// itself, so fragments drop out of the graph on their own.
package synth

import (
	"math"
	"strings"

	"github.com/cbegin/skyline-go/internal/graph"
	"github.com/cbegin/skyline-go/internal/score"
)

// Request describes one note to synthesise. Start and Duration are seconds
// on the graph clock.
type Request struct {
	Category score.Category
	Token    string
	Start    float64
	Duration float64
	Volume   float64
	Pitch    int
}

// decayFloor is the level exponential decays aim for.
const decayFloor = 0.01

// Synthesize builds the voice for req. It returns nil when the request makes
// no sound: an unknown drum token, an unknown note name or a non-positive
// duration for a tonal voice.
func Synthesize(ctx *graph.Context, req Request) *graph.Fragment {
	if req.Category == score.Percussion {
		return drum(ctx, strings.ToLower(strings.TrimSpace(req.Token)), req.Start, req.Volume)
	}
	if req.Duration <= 0 {
		return nil
	}
	freq, ok := score.Frequency(req.Token)
	if !ok {
		return nil
	}
	freq = score.Transpose(freq, req.Pitch)
	switch req.Category {
	case score.Lead:
		return lead(ctx, freq, req.Start, req.Duration, req.Volume)
	case score.Bass:
		return bass(ctx, freq, req.Start, req.Duration, req.Volume)
	case score.Pad:
		return pad(ctx, freq, req.Start, req.Duration, req.Volume)
	}
	return nil
}

// floor keeps a decay target at or below the peak so quiet voices never
// swell toward it.
func floor(peak float64) float64 {
	return math.Min(decayFloor, peak)
}

// decay sets peak at t and ramps exponentially to the floor at end.
func decay(p *graph.Param, peak, t, end float64) {
	p.SetValueAtTime(peak, t)
	p.ExponentialRampToValueAtTime(floor(peak), end)
}
