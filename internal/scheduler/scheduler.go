// Package scheduler plays a score as an endless loop. Each pass schedules a
// whole 16-beat loop of notes at absolute times on the graph clock and a
// repeating task starts the next pass one loop later.
package scheduler

import (
	"slices"
	"sync"
	"time"

	"github.com/cbegin/skyline-go/internal/effects"
	"github.com/cbegin/skyline-go/internal/graph"
	"github.com/cbegin/skyline-go/internal/logger"
	"github.com/cbegin/skyline-go/internal/score"
	"github.com/cbegin/skyline-go/internal/synth"
)

// DefaultLeadIn is how far ahead of the clock a pass places its loop start so
// the first notes are not already late.
const DefaultLeadIn = 50 * time.Millisecond

// State of the scheduler.
type State int

const (
	Idle State = iota
	Scheduled
)

func (s State) String() string {
	if s == Scheduled {
		return "scheduled"
	}
	return "idle"
}

type Option func(*Scheduler)

// WithAfterFunc replaces the wall-clock timer that re-arms each loop.
func WithAfterFunc(after AfterFunc) Option {
	return func(s *Scheduler) { s.after = after }
}

func WithLeadIn(d time.Duration) Option {
	return func(s *Scheduler) { s.leadIn = d.Seconds() }
}

// WithSeed sets the first seed handed to synthesised rooms.
func WithSeed(seed uint64) Option {
	return func(s *Scheduler) { s.seed = seed }
}

type Scheduler struct {
	mu      sync.Mutex
	ctx     *graph.Context
	bus     graph.Receiver
	after   AfterFunc
	leadIn  float64
	seed    uint64
	session *session
}

// New schedules notes into ctx and mixes every instrument into bus.
func New(ctx *graph.Context, bus graph.Receiver, opts ...Option) *Scheduler {
	s := &Scheduler{
		ctx:    ctx,
		bus:    bus,
		after:  RealTime,
		leadIn: DefaultLeadIn.Seconds(),
		seed:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start replaces any running session with one playing sc on instruments.
// The first pass is scheduled before Start returns.
func (s *Scheduler) Start(sc *score.Score, instruments []score.Instrument) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	sess := newSession(sc, instruments)
	for _, in := range sess.instruments {
		if !in.HasEffect() {
			continue
		}
		unit := effects.Build(in.Effect, in.EffectParams, s.ctx.SampleRate(), s.seed)
		s.seed++
		if unit == nil {
			continue
		}
		ins := s.ctx.NewInsert(unit)
		s.ctx.Connect(ins, s.bus)
		sess.inserts[in.Category] = ins
	}
	s.session = sess
	s.passLocked(sess)

	interval := time.Duration(sess.loopDuration * float64(time.Second))
	sess.task = NewTask(s.after, interval, func(tok *Token) { s.pass(sess, tok) })
	sess.task.Start()

	logger.Info("playback started", logger.Fields{
		"bpm":           sc.BPM,
		"tracks":        len(sc.Tracks),
		"instruments":   len(sess.instruments),
		"loop_duration": sess.loopDuration,
	})
	return nil
}

// Stop halts every sound of the current session and cancels the next pass.
// Stopping an idle scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		logger.Info("playback stopped", nil)
	}
}

func (s *Scheduler) stopLocked() bool {
	if s.session == nil {
		return false
	}
	s.session.teardown(s.ctx, s.bus)
	s.session = nil
	return true
}

// SetInstruments swaps the snapshot read by the next pass without touching
// what is already scheduled. Callers restart instead when NeedsRestart says
// so.
func (s *Scheduler) SetInstruments(instruments []score.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.instruments = slices.Clone(instruments)
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Idle
	}
	return Scheduled
}

// Score returns the score of the running session, or nil when idle.
func (s *Scheduler) Score() *score.Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.score
}

// LoopStart is the clock time of the most recent pass.
func (s *Scheduler) LoopStart() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0, false
	}
	return s.session.loopStart, true
}

// Passes counts passes run by the current session.
func (s *Scheduler) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0
	}
	return s.session.passes
}

// Live returns the number of fragments the session still tracks.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0
	}
	return len(s.session.live)
}

func (s *Scheduler) pass(sess *session, tok *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.Cancelled() || s.session != sess {
		return
	}
	s.passLocked(sess)
}

// passLocked schedules one loop of every audible track.
func (s *Scheduler) passLocked(sess *session) {
	sess.prune(s.ctx)
	sess.loopStart = s.ctx.CurrentTime() + s.leadIn
	playing := RenderSet(sess.instruments)

	for _, track := range sess.score.Tracks {
		cat, ok := score.ParseCategory(track.Instrument)
		if !ok {
			continue
		}
		in, ok := playing[cat]
		if !ok {
			continue
		}
		var dst graph.Receiver = s.bus
		if ins, ok := sess.inserts[cat]; ok {
			dst = ins
		}
		for _, n := range track.Notes {
			frag := synth.Synthesize(s.ctx, synth.Request{
				Category: cat,
				Token:    n.Note,
				Start:    sess.loopStart + n.StartTime*sess.spb,
				Duration: n.Duration * sess.spb,
				Volume:   in.Volume,
				Pitch:    in.Pitch,
			})
			if frag == nil {
				continue
			}
			s.ctx.Connect(frag.Output, dst)
			sess.live = append(sess.live, liveFragment{frag: frag, dst: dst})
		}
	}
	sess.passes++
	logger.Debug("loop scheduled", logger.Fields{
		"loop_start": sess.loopStart,
		"live":       len(sess.live),
		"pass":       sess.passes,
	})
}
