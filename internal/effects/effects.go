package effects

import "github.com/cbegin/skyline-go/internal/score"

// Effector processes one stereo frame and keeps its own state. A unit lives
// for one playback session and is discarded with it.
type Effector interface {
	Process(l, r float32) (float32, float32)
}

// Build returns the processing unit for an instrument's effect selection, or
// nil for EffectNone. Each call returns an independent instance; seed selects
// the noise of a synthesised room.
func Build(effect score.EffectType, params score.EffectParams, sampleRate int, seed uint64) Effector {
	switch effect {
	case score.EffectReverb, score.EffectCathedral:
		l, r := Impulse(sampleRate, params.ReverbDecay, seed)
		return NewConvolver(l, r)
	case score.EffectDelay:
		return NewFeedbackDelay(sampleRate, params.DelayTime, float32(params.DelayFeedback))
	default:
		return nil
	}
}
