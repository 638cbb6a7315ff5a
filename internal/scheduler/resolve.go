package scheduler

import "github.com/cbegin/skyline-go/internal/score"

// ShouldRender decides whether an instrument plays in a pass. Once any
// instrument is soloed only soloed instruments play and mute flags are
// ignored.
func ShouldRender(in score.Instrument, anySolo bool) bool {
	if anySolo {
		return in.Solo
	}
	return !in.Muted
}

func AnySolo(instruments []score.Instrument) bool {
	for _, in := range instruments {
		if in.Solo {
			return true
		}
	}
	return false
}

// RenderSet returns the instruments that play this pass keyed by category.
func RenderSet(instruments []score.Instrument) map[score.Category]score.Instrument {
	solo := AnySolo(instruments)
	set := make(map[score.Category]score.Instrument, len(instruments))
	for _, in := range instruments {
		if ShouldRender(in, solo) {
			set[in.Category] = in
		}
	}
	return set
}

// NeedsRestart reports whether moving from old to next changes anything that
// is baked into a running session: the instrument set, a category, volume,
// pitch or effect settings. Mute, solo and cosmetic fields are read at every
// pass and do not need a restart.
func NeedsRestart(old, next []score.Instrument) bool {
	if len(old) != len(next) {
		return true
	}
	byID := make(map[string]score.Instrument, len(old))
	for _, in := range old {
		byID[in.ID] = in
	}
	for _, in := range next {
		prev, ok := byID[in.ID]
		if !ok {
			return true
		}
		if prev.Category != in.Category || prev.Volume != in.Volume || prev.Pitch != in.Pitch ||
			prev.Effect != in.Effect || prev.EffectParams != in.EffectParams {
			return true
		}
	}
	return false
}
