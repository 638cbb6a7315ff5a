package scheduler

import (
	"slices"

	"github.com/cbegin/skyline-go/internal/graph"
	"github.com/cbegin/skyline-go/internal/score"
)

type liveFragment struct {
	frag *graph.Fragment
	dst  graph.Receiver
}

// session is the graph state of one playback run. It is only touched with
// the scheduler lock held.
type session struct {
	score        *score.Score
	instruments  []score.Instrument
	spb          float64
	loopDuration float64
	loopStart    float64
	inserts      map[score.Category]*graph.Insert
	live         []liveFragment
	task         *Task
	passes       int
}

func newSession(sc *score.Score, instruments []score.Instrument) *session {
	return &session{
		score:        sc,
		instruments:  slices.Clone(instruments),
		spb:          score.SecondsPerBeat(sc.BPM),
		loopDuration: score.LoopDuration(sc.BPM),
		inserts:      make(map[score.Category]*graph.Insert),
	}
}

// prune forgets fragments that have stopped on their own.
func (s *session) prune(ctx *graph.Context) {
	s.live = slices.DeleteFunc(s.live, func(l liveFragment) bool {
		return ctx.Finished(l.frag)
	})
}

// teardown halts everything still sounding and detaches the inserts.
func (s *session) teardown(ctx *graph.Context, bus graph.Receiver) {
	if s.task != nil {
		s.task.Cancel()
	}
	for _, l := range s.live {
		ctx.Release(l.frag, l.dst)
	}
	s.live = nil
	for _, ins := range s.inserts {
		ctx.Disconnect(ins, bus)
	}
	clear(s.inserts)
}
