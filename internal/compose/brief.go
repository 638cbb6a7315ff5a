package compose

import (
	"fmt"
	"strings"

	"github.com/cbegin/skyline-go/internal/score"
)

// Harmony selects how the melodic instruments are told to share the
// harmonic space, keyed by which of Bass, Lead and Pad are present.
type Harmony int

const (
	HarmonyRhythmOnly Harmony = iota
	HarmonyBassOnly
	HarmonySoloVoice
	HarmonyBassLead
	HarmonyBassPad
	HarmonyLeadPad
	HarmonyFull
)

var harmonyBlocks = map[Harmony]string{
	HarmonyRhythmOnly: `There are no pitched instruments. Build the whole loop from rhythm: vary
density between bars, leave space before the downbeat of bar 4 and make the
last beat lead naturally back into the first.`,
	HarmonyBassOnly: `The bass is the only pitched instrument, so it carries the harmony alone.
Outline a clear chord progression with root motion, add fifths and octave
jumps for movement and lock the rhythm to the kick if drums are present.`,
	HarmonySoloVoice: `A single melodic instrument carries both melody and harmony. Use chord tones
on strong beats, arpeggiate the progression where the melody rests and keep
the phrase singable across the four bars.`,
	HarmonyBassLead: `Bass and Lead must interlock. The bass holds the root of each chord in a low
octave (octaves 1-2) while the lead plays a melody in octaves 4-5 built from
chord tones on strong beats. Avoid unison: when the lead moves, the bass
sustains, and when the bass moves, the lead rests or holds.`,
	HarmonyBassPad: `Bass and Pad share the harmony. The pad sustains full chords (three or four
notes, octaves 3-4) lasting one or two bars; the bass plays roots and fifths
under them in octaves 1-2 with a rhythmic figure. Change chords on the same
beat in both parts.`,
	HarmonyLeadPad: `Lead and Pad share the harmony. The pad sustains chords in octaves 3-4 that
define the progression; the lead plays a melody above them in octave 5 using
chord tones on strong beats and passing tones in between. Keep the lead out of
the pad's register.`,
	HarmonyFull: `Bass, Lead and Pad form a full arrangement with separate registers: bass in
octaves 1-2 on roots and fifths, pad sustaining chords in octaves 3-4, lead
melody in octaves 4-5. All three follow the same chord progression and change
chords together. The lead is the focus; the pad fills; the bass drives.`,
}

// HarmonyFor classifies an instrument set.
func HarmonyFor(instruments []score.Instrument) Harmony {
	var bass, lead, pad bool
	for _, in := range instruments {
		switch in.Category {
		case score.Bass:
			bass = true
		case score.Lead:
			lead = true
		case score.Pad:
			pad = true
		}
	}
	switch {
	case bass && lead && pad:
		return HarmonyFull
	case bass && lead:
		return HarmonyBassLead
	case bass && pad:
		return HarmonyBassPad
	case lead && pad:
		return HarmonyLeadPad
	case bass:
		return HarmonyBassOnly
	case lead || pad:
		return HarmonySoloVoice
	default:
		return HarmonyRhythmOnly
	}
}

// BuildBrief writes the composition request for an instrument set.
func BuildBrief(instruments []score.Instrument) string {
	var b strings.Builder
	b.WriteString(`Compose a short seamless loop for a night-time city skyline: warm,
hypnotic electronic music in the spirit of synthwave and lo-fi house.

Rules:
- The loop is exactly 16 beats (4 bars of 4/4). Every note's startTime is in
  beats, from 0 up to but not including 16. Every duration is in beats and
  greater than 0.
- Choose a tempo between 110 and 130 BPM.
- Pitched notes use scientific pitch names such as "C2", "F#3" or "Bb4".
- Percussion notes use only the drum names "kick", "snare" and "hihat".
- Write exactly one track per instrument below and use the instrument name
  exactly as given for the track's "instrument" field.
- The last beat must flow back into the first so the loop repeats without a
  seam.

Instruments:
`)
	names := make([]string, 0, len(instruments))
	for _, in := range instruments {
		names = append(names, string(in.Category))
	}
	fmt.Fprintf(&b, "%s\n\n", strings.Join(names, ", "))
	for _, in := range instruments {
		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			desc = "no description"
		}
		fmt.Fprintf(&b, "- %s: %s\n", in.Category, desc)
	}
	b.WriteString("\nHarmony:\n")
	b.WriteString(harmonyBlocks[HarmonyFor(instruments)])
	b.WriteString("\n")
	return b.String()
}
