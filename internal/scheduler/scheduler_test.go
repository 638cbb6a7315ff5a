package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/skyline-go/internal/graph"
	"github.com/cbegin/skyline-go/internal/score"
)

const rate = 1000

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func newTestScheduler(t *testing.T) (*Scheduler, *graph.Context, *fakeClock) {
	t.Helper()
	ctx := graph.NewContext(rate)
	clock := &fakeClock{}
	s := New(ctx, ctx.Destination(), WithAfterFunc(clock.AfterFunc), WithLeadIn(0))
	return s, ctx, clock
}

func bassScore(notes ...score.Note) *score.Score {
	return &score.Score{BPM: 120, Tracks: []score.Track{{Instrument: "Bass", Notes: notes}}}
}

func TestLoopTiming(t *testing.T) {
	s, _, clock := newTestScheduler(t)
	bass := score.NewInstrument(score.Bass)
	require.NoError(t, s.Start(bassScore(score.Note{Note: "C2", StartTime: 4, Duration: 2}), []score.Instrument{bass}))

	timer := clock.last()
	require.NotNil(t, timer)
	assert.Equal(t, 8*time.Second, timer.d)

	require.Equal(t, 1, s.Live())
	start, stop := s.session.live[0].frag.Window()
	assert.Equal(t, int64(2*rate), start, "note begins at loopStart + 2.0s")
	assert.Equal(t, int64(1*rate), stop-start, "note lasts 1.0s")
}

func TestRepeatingPassUsesFreshClock(t *testing.T) {
	s, ctx, clock := newTestScheduler(t)
	bass := score.NewInstrument(score.Bass)
	require.NoError(t, s.Start(bassScore(score.Note{Note: "C2", StartTime: 0, Duration: 1}), []score.Instrument{bass}))

	ctx.Process(make([]float32, 2*8*rate))
	first := clock.last()
	first.f()

	assert.Equal(t, 2, s.Passes())
	loopStart, ok := s.LoopStart()
	require.True(t, ok)
	assert.InDelta(t, 8.0, loopStart, 1e-9)
	assert.Equal(t, 1, s.Live(), "the first loop's finished note is pruned")
	assert.NotSame(t, first, clock.last(), "firing re-arms the next loop")
	assert.Equal(t, 8*time.Second, clock.last().d)
}

func TestStopIsIdempotent(t *testing.T) {
	s, ctx, clock := newTestScheduler(t)
	s.Stop()
	assert.Equal(t, Idle, s.State())

	bass := score.NewInstrument(score.Bass)
	require.NoError(t, s.Start(bassScore(score.Note{Note: "C2", StartTime: 0, Duration: 8}), []score.Instrument{bass}))
	assert.Equal(t, Scheduled, s.State())
	ctx.Process(make([]float32, 2*100))

	s.Stop()
	s.Stop()
	assert.Equal(t, Idle, s.State())
	assert.True(t, clock.last().stopped)
	assert.Equal(t, 0, ctx.Destination().Inputs())

	buf := make([]float32, 2*100)
	ctx.Process(buf)
	for _, v := range buf {
		require.Zero(t, v, "nothing sounds after stop")
	}

	clock.last().f()
	assert.Equal(t, Idle, s.State(), "a stale timer does not revive the session")
	assert.Equal(t, 0, ctx.Destination().Inputs())
}

func TestStartReplacesSession(t *testing.T) {
	s, ctx, clock := newTestScheduler(t)
	bass := score.NewInstrument(score.Bass)
	sc := bassScore(score.Note{Note: "C2", StartTime: 0, Duration: 4})
	require.NoError(t, s.Start(sc, []score.Instrument{bass}))
	firstTimer := clock.last()
	require.NoError(t, s.Start(sc, []score.Instrument{bass}))

	assert.True(t, firstTimer.stopped)
	assert.Equal(t, 1, s.Live())
	assert.Equal(t, 1, ctx.Destination().Inputs())
}

func TestStartRejectsInvalidScore(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	assert.Error(t, s.Start(nil, nil))
	assert.ErrorIs(t, s.Start(&score.Score{BPM: 0}, nil), score.ErrInvalidTempo)
	assert.Equal(t, Idle, s.State())
}

func TestTracksResolveThroughConfig(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	drums := score.NewInstrument(score.Percussion)
	sc := &score.Score{BPM: 120, Tracks: []score.Track{
		{Instrument: "drums", Notes: []score.Note{{Note: "kick", StartTime: 0, Duration: 1}, {Note: "cowbell", StartTime: 1, Duration: 1}}},
		{Instrument: "Pad", Notes: []score.Note{{Note: "C4", StartTime: 0, Duration: 4}}},
		{Instrument: "Theremin", Notes: []score.Note{{Note: "C4", StartTime: 0, Duration: 4}}},
	}}
	require.NoError(t, s.Start(sc, []score.Instrument{drums}))
	assert.Equal(t, 1, s.Live(), "only the kick is scheduled")
}

func TestMuteAppliesAtNextPass(t *testing.T) {
	s, _, clock := newTestScheduler(t)
	bass := score.NewInstrument(score.Bass)
	require.NoError(t, s.Start(bassScore(score.Note{Note: "C2", StartTime: 0, Duration: 16}), []score.Instrument{bass}))
	require.Equal(t, 1, s.Live())

	bass.Muted = true
	s.SetInstruments([]score.Instrument{bass})
	assert.Equal(t, 1, s.Live(), "scheduled notes are left alone")
	clock.last().f()
	assert.Equal(t, 1, s.Live(), "muted pass adds nothing")
}

func TestEffectInsertRouting(t *testing.T) {
	s, ctx, _ := newTestScheduler(t)
	bass := score.NewInstrument(score.Bass)
	bass.Effect = score.EffectDelay
	lead := score.NewInstrument(score.Lead)
	sc := &score.Score{BPM: 120, Tracks: []score.Track{
		{Instrument: "Bass", Notes: []score.Note{{Note: "C2", StartTime: 0, Duration: 1}}},
		{Instrument: "Lead", Notes: []score.Note{{Note: "C4", StartTime: 0, Duration: 1}}},
	}}
	require.NoError(t, s.Start(sc, []score.Instrument{bass, lead}))

	ins, ok := s.session.inserts[score.Bass]
	require.True(t, ok)
	_, ok = s.session.inserts[score.Lead]
	assert.False(t, ok, "no insert without an effect")
	assert.Same(t, graph.Receiver(ins), s.session.live[0].dst)
	assert.Same(t, graph.Receiver(ctx.Destination()), s.session.live[1].dst)
	assert.Equal(t, 2, ctx.Destination().Inputs(), "insert and dry lead")

	s.Stop()
	assert.Equal(t, 0, ctx.Destination().Inputs())
}

func TestTaskCancelBeforeFire(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	task := NewTask(clock.AfterFunc, time.Second, func(*Token) { calls++ })
	task.Start()
	task.Start()
	require.Len(t, clock.timers, 1)
	task.Cancel()
	task.Cancel()
	clock.timers[0].f()
	assert.Zero(t, calls)
	assert.True(t, task.Token().Cancelled())
}

func TestTaskRearms(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	task := NewTask(clock.AfterFunc, time.Second, func(*Token) { calls++ })
	task.Start()
	clock.last().f()
	clock.last().f()
	assert.Equal(t, 2, calls)
	assert.Len(t, clock.timers, 3)
}
