package synth

import "github.com/cbegin/skyline-go/internal/graph"

// Drum tokens understood by the percussion voice.
const (
	Kick  = "kick"
	Snare = "snare"
	HiHat = "hihat"
)

const (
	kickLength  = 0.2
	kickSweep   = 0.1
	kickStartHz = 150
	kickEndHz   = 0.01
	snareLength = 0.2
	snareCutoff = 1000
	hihatLength = 0.1
	hihatDecay  = 0.05
	hihatCutoff = 7000
)

// drum ignores the requested duration; every kit piece has a fixed length.
func drum(ctx *graph.Context, token string, t, volume float64) *graph.Fragment {
	switch token {
	case Kick:
		osc := ctx.NewOscillator(graph.Sine, kickStartHz)
		osc.Frequency.SetValueAtTime(kickStartHz, t)
		osc.Frequency.ExponentialRampToValueAtTime(kickEndHz, t+kickSweep)
		amp := ctx.NewGain(volume)
		decay(amp.Gain, volume, t, t+kickLength)
		ctx.Connect(osc, amp)
		osc.Start(t)
		osc.Stop(t + kickLength)
		return graph.NewFragment(amp, osc)
	case Snare:
		return noiseHit(ctx, t, volume, snareCutoff, snareLength, snareLength)
	case HiHat:
		return noiseHit(ctx, t, volume, hihatCutoff, hihatLength, hihatDecay)
	}
	return nil
}

// noiseHit is white noise through a high-pass with an exponential decay.
func noiseHit(ctx *graph.Context, t, volume, cutoff, length, fall float64) *graph.Fragment {
	noise := ctx.NewNoise()
	hp := ctx.NewBiquadFilter(graph.Highpass, cutoff, graph.Butterworth)
	amp := ctx.NewGain(volume)
	decay(amp.Gain, volume, t, t+fall)
	ctx.Connect(noise, hp)
	ctx.Connect(hp, amp)
	noise.Start(t)
	noise.Stop(t + length)
	return graph.NewFragment(amp, noise)
}
