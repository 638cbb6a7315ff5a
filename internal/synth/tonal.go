package synth

import "github.com/cbegin/skyline-go/internal/graph"

const (
	leadLevel = 0.3
	bassLevel = 0.7
	padLevel  = 0.2
	padDetune = 1.01
	padAttack = 0.2
)

func lead(ctx *graph.Context, freq, t, dur, volume float64) *graph.Fragment {
	return single(ctx, graph.Sawtooth, freq, t, dur, leadLevel*volume)
}

func bass(ctx *graph.Context, freq, t, dur, volume float64) *graph.Fragment {
	return single(ctx, graph.Sine, freq, t, dur, bassLevel*volume)
}

func single(ctx *graph.Context, wave graph.Waveform, freq, t, dur, peak float64) *graph.Fragment {
	osc := ctx.NewOscillator(wave, freq)
	amp := ctx.NewGain(peak)
	decay(amp.Gain, peak, t, t+dur)
	ctx.Connect(osc, amp)
	osc.Start(t)
	osc.Stop(t + dur)
	return graph.NewFragment(amp, osc)
}

// pad is two triangles a percent apart with a linear attack over the first
// fifth of the note and a linear release over the rest.
func pad(ctx *graph.Context, freq, t, dur, volume float64) *graph.Fragment {
	peak := padLevel * volume
	amp := ctx.NewGain(0)
	amp.Gain.SetValueAtTime(0, t)
	amp.Gain.LinearRampToValueAtTime(peak, t+dur*padAttack)
	amp.Gain.LinearRampToValueAtTime(floor(peak), t+dur)

	a := ctx.NewOscillator(graph.Triangle, freq)
	b := ctx.NewOscillator(graph.Triangle, freq*padDetune)
	for _, osc := range []*graph.Oscillator{a, b} {
		ctx.Connect(osc, amp)
		osc.Start(t)
		osc.Stop(t + dur)
	}
	return graph.NewFragment(amp, a, b)
}
