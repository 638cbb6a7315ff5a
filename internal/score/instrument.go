package score

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EffectType selects the optional per-instrument processing unit.
type EffectType string

const (
	EffectNone      EffectType = "none"
	EffectReverb    EffectType = "reverb"
	EffectDelay     EffectType = "delay"
	EffectCathedral EffectType = "cathedral"
)

func (e *EffectType) UnmarshalText(text []byte) error {
	switch v := EffectType(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case "":
		*e = EffectNone
	case EffectNone, EffectReverb, EffectDelay, EffectCathedral:
		*e = v
	default:
		return fmt.Errorf("unknown effect %q", string(text))
	}
	return nil
}

// Parameter ranges accepted by Validate.
const (
	MinPitch          = -12
	MaxPitch          = 12
	MinReverbDecay    = 0.5
	MaxReverbDecay    = 4.0
	MaxCathedralDecay = 8.0
	MinDelayTime      = 0.1
	MaxDelayTime      = 1.0
	MaxDelayFeedback  = 0.8
)

// EffectParams holds the settings for every effect kind; only the fields for
// the selected effect are read.
type EffectParams struct {
	ReverbDecay   float64 `json:"reverbDecay"`
	DelayTime     float64 `json:"delayTime"`
	DelayFeedback float64 `json:"delayFeedback"`
}

// Instrument is a user-configured sound source. The engine only ever reads
// copies of it.
type Instrument struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    Category   `json:"type"`
	Description string     `json:"description"`
	Color       string     `json:"color"`
	Volume      float64    `json:"volume"`
	Pitch       int        `json:"pitch"`
	Effect      EffectType `json:"effect"`
	EffectParams
	Muted bool `json:"isMuted"`
	Solo  bool `json:"isSolo"`
}

var defaultDescriptions = map[Category]string{
	Percussion: "Punchy electronic drum kit with a tight kick and crisp hats",
	Bass:       "Warm round sub bass",
	Lead:       "Bright buzzy sawtooth lead",
	Pad:        "Soft airy chorus pad",
}

var defaultColors = map[Category]string{
	Percussion: "#f97316",
	Bass:       "#3b82f6",
	Lead:       "#ec4899",
	Pad:        "#22c55e",
}

// NewInstrument returns an instrument of the given category with default
// mix and effect settings and a fresh ID.
func NewInstrument(c Category) Instrument {
	return Instrument{
		ID:          uuid.NewString(),
		Name:        string(c),
		Category:    c,
		Description: defaultDescriptions[c],
		Color:       defaultColors[c],
		Volume:      0.8,
		Effect:      EffectNone,
		EffectParams: EffectParams{
			ReverbDecay:   2.0,
			DelayTime:     0.3,
			DelayFeedback: 0.4,
		},
	}
}

// Validate reports every parameter outside its documented range.
func (in Instrument) Validate() error {
	var errs []error
	if !in.Category.Valid() {
		errs = append(errs, fmt.Errorf("unknown category %q", in.Category))
	}
	if in.Volume < 0 || in.Volume > 1 {
		errs = append(errs, fmt.Errorf("volume %.2f outside [0,1]", in.Volume))
	}
	if in.Pitch < MinPitch || in.Pitch > MaxPitch {
		errs = append(errs, fmt.Errorf("pitch %d outside [%d,%d]", in.Pitch, MinPitch, MaxPitch))
	}
	switch in.Effect {
	case EffectNone, "":
	case EffectReverb:
		if in.ReverbDecay < MinReverbDecay || in.ReverbDecay > MaxReverbDecay {
			errs = append(errs, fmt.Errorf("reverb decay %.2f outside [%.1f,%.1f]", in.ReverbDecay, MinReverbDecay, MaxReverbDecay))
		}
	case EffectCathedral:
		if in.ReverbDecay < MinReverbDecay || in.ReverbDecay > MaxCathedralDecay {
			errs = append(errs, fmt.Errorf("cathedral decay %.2f outside [%.1f,%.1f]", in.ReverbDecay, MinReverbDecay, MaxCathedralDecay))
		}
	case EffectDelay:
		if in.DelayTime < MinDelayTime || in.DelayTime > MaxDelayTime {
			errs = append(errs, fmt.Errorf("delay time %.2f outside [%.1f,%.1f]", in.DelayTime, MinDelayTime, MaxDelayTime))
		}
		if in.DelayFeedback < 0 || in.DelayFeedback > MaxDelayFeedback {
			errs = append(errs, fmt.Errorf("delay feedback %.2f outside [0,%.1f]", in.DelayFeedback, MaxDelayFeedback))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown effect %q", in.Effect))
	}
	return errors.Join(errs...)
}

// HasEffect reports whether the instrument needs its own processing unit.
func (in Instrument) HasEffect() bool {
	return in.Effect != EffectNone && in.Effect != ""
}
