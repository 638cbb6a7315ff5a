package score

import (
	"errors"
	"slices"
)

// LoopBeats is the fixed loop length: four bars of 4/4.
const LoopBeats = 16

// Note is one event in a track. Note holds a pitch name such as "C4" or a
// drum token ("kick", "snare", "hihat"). Times are in beats.
type Note struct {
	Note      string  `json:"note"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
}

// Playable reports whether the note names something, starts inside the loop
// and has a positive length. Out-of-range notes are dropped, never clamped.
func (n Note) Playable() bool {
	return n.Note != "" && n.StartTime >= 0 && n.StartTime < LoopBeats && n.Duration > 0
}

// Track binds a note list to an instrument category by name.
type Track struct {
	Instrument string `json:"instrument"`
	Notes      []Note `json:"notes"`
}

// Score is one 16-beat loop. It is replaced wholesale, never edited.
type Score struct {
	BPM    float64 `json:"bpm"`
	Tracks []Track `json:"tracks"`
}

var ErrInvalidTempo = errors.New("score tempo must be positive")

func (s *Score) Validate() error {
	if s == nil {
		return errors.New("nil score")
	}
	if s.BPM <= 0 {
		return ErrInvalidTempo
	}
	return nil
}

// Clone returns a deep copy so callers can hold it without sharing slices.
func (s *Score) Clone() *Score {
	if s == nil {
		return nil
	}
	out := &Score{BPM: s.BPM, Tracks: make([]Track, len(s.Tracks))}
	for i, tr := range s.Tracks {
		out.Tracks[i] = Track{Instrument: tr.Instrument, Notes: slices.Clone(tr.Notes)}
	}
	return out
}

// SecondsPerBeat converts a tempo to beat length.
func SecondsPerBeat(bpm float64) float64 {
	return 60 / bpm
}

// DropInvalidNotes removes unplayable notes from every track in place and
// returns how many were dropped. Tracks are kept even when emptied.
func (s *Score) DropInvalidNotes() int {
	if s == nil {
		return 0
	}
	dropped := 0
	for i := range s.Tracks {
		before := len(s.Tracks[i].Notes)
		s.Tracks[i].Notes = slices.DeleteFunc(s.Tracks[i].Notes, func(n Note) bool { return !n.Playable() })
		if s.Tracks[i].Notes == nil {
			s.Tracks[i].Notes = []Note{}
		}
		dropped += before - len(s.Tracks[i].Notes)
	}
	return dropped
}

// LoopDuration is the length of one loop in seconds.
func LoopDuration(bpm float64) float64 {
	return SecondsPerBeat(bpm) * LoopBeats
}
