package compose

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cbegin/skyline-go/internal/score"
)

// rawNote keeps absent and null fields distinguishable from zero values.
type rawNote struct {
	Note      *string  `json:"note"`
	StartTime *float64 `json:"startTime"`
	Duration  *float64 `json:"duration"`
}

type rawTrack struct {
	Instrument string     `json:"instrument"`
	Notes      []*rawNote `json:"notes"`
}

type rawScore struct {
	BPM    *float64   `json:"bpm"`
	Tracks []rawTrack `json:"tracks"`
}

var ErrMissingTempo = errors.New("generated score has no usable bpm")

// Parse decodes model output into a Score and drops malformed notes.
func Parse(text string) (*score.Score, error) {
	var raw rawScore
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if raw.BPM == nil || *raw.BPM <= 0 {
		return nil, ErrMissingTempo
	}
	sc := &score.Score{BPM: *raw.BPM, Tracks: make([]score.Track, 0, len(raw.Tracks))}
	for _, tr := range raw.Tracks {
		sc.Tracks = append(sc.Tracks, score.Track{
			Instrument: tr.Instrument,
			Notes:      cleanNotes(tr.Notes),
		})
	}
	return sc, nil
}

// cleanNotes keeps notes with every field present that are Playable. The result is never nil so an
// emptied track still encodes as an empty list.
func cleanNotes(notes []*rawNote) []score.Note {
	out := make([]score.Note, 0, len(notes))
	for _, n := range notes {
		if n == nil || n.Note == nil || n.StartTime == nil || n.Duration == nil {
			continue
		}
		note := score.Note{Note: *n.Note, StartTime: *n.StartTime, Duration: *n.Duration}
		if !note.Playable() {
			continue
		}
		out = append(out, note)
	}
	return out
}
