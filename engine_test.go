package skyline

import (
	"errors"
	"sync"
	"testing"
	"time"

	intaudio "github.com/cbegin/skyline-go/internal/audio"
	intseq "github.com/cbegin/skyline-go/internal/scheduler"
	intscore "github.com/cbegin/skyline-go/internal/score"
)

type fakeOutput struct {
	mu      sync.Mutex
	src     intaudio.SampleSource
	playing bool
	closed  bool
	frames  int64
}

func (o *fakeOutput) Play()  { o.mu.Lock(); o.playing = true; o.mu.Unlock() }
func (o *fakeOutput) Pause() { o.mu.Lock(); o.playing = false; o.mu.Unlock() }

func (o *fakeOutput) PlayedFrames() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

// pull renders frames of audio the way the device would.
func (o *fakeOutput) pull(frames int) []float32 {
	buf := make([]float32, frames*2)
	o.src.Process(buf)
	o.mu.Lock()
	o.frames += int64(frames)
	o.mu.Unlock()
	return buf
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type timers struct {
	mu  sync.Mutex
	all []*fakeTimer
}

func (ts *timers) AfterFunc(_ time.Duration, f func()) intseq.Timer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &fakeTimer{f: f}
	ts.all = append(ts.all, t)
	return t
}

func newTestEngine(t *testing.T) (*Engine, *fakeOutput, *timers) {
	t.Helper()
	out := &fakeOutput{}
	ts := &timers{}
	e, err := NewEngine(8000,
		WithOutput(func(_ int, src intaudio.SampleSource) (intaudio.Output, error) {
			out.src = src
			return out, nil
		}),
		WithAfterFunc(ts.AfterFunc),
		WithLeadIn(0),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, out, ts
}

func bassLoop() *intscore.Score {
	return &intscore.Score{BPM: 120, Tracks: []intscore.Track{{
		Instrument: "Bass",
		Notes:      []intscore.Note{{Note: "A2", StartTime: 0, Duration: 4}},
	}}}
}

func peak(buf []float32) float32 {
	var p float32
	for _, v := range buf {
		if v < 0 {
			v = -v
		}
		p = max(p, v)
	}
	return p
}

func TestEngineMasterVolumeRuntimeAPI(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if got := e.MasterVolume(); got != DefaultMasterVolume {
		t.Fatalf("default master volume = %v, want %v", got, DefaultMasterVolume)
	}
	e.SetMasterVolume(0.35)
	if got := e.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	e.SetMasterVolume(-2)
	if got := e.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestNewEngineRejectsBadSampleRate(t *testing.T) {
	if _, err := NewEngine(0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestEnginePlayProducesSound(t *testing.T) {
	e, out, _ := newTestEngine(t)
	if err := e.Play(bassLoop(), []intscore.Instrument{intscore.NewInstrument(intscore.Bass)}); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !out.playing {
		t.Fatal("output should be playing after Play")
	}
	if !e.IsPlaying() {
		t.Fatal("engine should report playing")
	}
	if p := peak(out.pull(4000)); p < 0.05 {
		t.Fatalf("peak = %v, want audible bass", p)
	}
}

func TestEngineStopIsIdempotent(t *testing.T) {
	e, out, ts := newTestEngine(t)
	if err := e.Play(bassLoop(), []intscore.Instrument{intscore.NewInstrument(intscore.Bass)}); err != nil {
		t.Fatalf("play: %v", err)
	}
	out.pull(800)
	e.Stop()
	e.Stop()
	if e.IsPlaying() {
		t.Fatal("engine should be idle after Stop")
	}
	if p := peak(out.pull(4000)); p != 0 {
		t.Fatalf("peak after stop = %v, want silence", p)
	}
	for _, tm := range ts.all {
		if !tm.stopped {
			t.Fatal("re-arm timer left running after Stop")
		}
	}
}

func TestEngineMutedSilence(t *testing.T) {
	e, out, _ := newTestEngine(t)
	bass := intscore.NewInstrument(intscore.Bass)
	bass.Muted = true
	if err := e.Play(bassLoop(), []intscore.Instrument{bass}); err != nil {
		t.Fatalf("play: %v", err)
	}
	if p := peak(out.pull(4000)); p != 0 {
		t.Fatalf("muted peak = %v, want 0", p)
	}
}

func TestEnginePlayRejectsInvalidScore(t *testing.T) {
	e, _, _ := newTestEngine(t)
	err := e.Play(&intscore.Score{BPM: 0}, nil)
	if !errors.Is(err, intscore.ErrInvalidTempo) {
		t.Fatalf("err = %v, want ErrInvalidTempo", err)
	}
	if err := e.Play(nil, nil); err == nil {
		t.Fatal("nil score should fail")
	}
	if e.IsPlaying() {
		t.Fatal("invalid play must not start a session")
	}
}

func TestEnginePlayOutputError(t *testing.T) {
	e, err := NewEngine(8000, WithOutput(func(int, intaudio.SampleSource) (intaudio.Output, error) {
		return nil, errors.New("no device")
	}))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.Play(bassLoop(), nil); err == nil {
		t.Fatal("expected output error")
	}
}

func TestEngineUpdateInstrumentsRestartsOnVolumeChange(t *testing.T) {
	e, out, ts := newTestEngine(t)
	bass := intscore.NewInstrument(intscore.Bass)
	if err := e.Play(bassLoop(), []intscore.Instrument{bass}); err != nil {
		t.Fatalf("play: %v", err)
	}
	out.pull(400)
	bass.Volume = 0.1
	if err := e.UpdateInstruments([]intscore.Instrument{bass}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !e.IsPlaying() {
		t.Fatal("engine should keep playing after a restart")
	}
	if len(ts.all) != 2 {
		t.Fatalf("timers = %d, want a fresh re-arm after restart", len(ts.all))
	}
	if !ts.all[0].stopped {
		t.Fatal("old session timer should be stopped")
	}
	if got := e.Instruments()[0].Volume; got != 0.1 {
		t.Fatalf("stored volume = %v, want 0.1", got)
	}
}

func TestEngineUpdateInstrumentsMuteWaitsForNextPass(t *testing.T) {
	e, out, ts := newTestEngine(t)
	bass := intscore.NewInstrument(intscore.Bass)
	if err := e.Play(bassLoop(), []intscore.Instrument{bass}); err != nil {
		t.Fatalf("play: %v", err)
	}
	bass.Muted = true
	if err := e.UpdateInstruments([]intscore.Instrument{bass}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(ts.all) != 1 {
		t.Fatalf("timers = %d, mute must not restart the session", len(ts.all))
	}
	if p := peak(out.pull(4000)); p < 0.05 {
		t.Fatalf("current loop should keep sounding, peak = %v", p)
	}
}

func TestEngineUpdateInstrumentsWhileIdle(t *testing.T) {
	e, _, ts := newTestEngine(t)
	if err := e.UpdateInstruments([]intscore.Instrument{intscore.NewInstrument(intscore.Lead)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if e.IsPlaying() || len(ts.all) != 0 {
		t.Fatal("idle update must not start playback")
	}
	if len(e.Instruments()) != 1 {
		t.Fatal("snapshot should be stored")
	}
}

func TestEngineCopiesInputs(t *testing.T) {
	e, _, _ := newTestEngine(t)
	sc := bassLoop()
	ins := []intscore.Instrument{intscore.NewInstrument(intscore.Bass)}
	if err := e.Play(sc, ins); err != nil {
		t.Fatalf("play: %v", err)
	}
	sc.BPM = 60
	ins[0].Volume = 0
	if e.Score().BPM != 120 {
		t.Fatal("engine score aliased the caller's score")
	}
	if e.Instruments()[0].Volume == 0 {
		t.Fatal("engine instruments aliased the caller's slice")
	}
}

func TestEngineAnalyserSeesOutput(t *testing.T) {
	e, out, _ := newTestEngine(t)
	if err := e.Play(bassLoop(), []intscore.Instrument{intscore.NewInstrument(intscore.Bass)}); err != nil {
		t.Fatalf("play: %v", err)
	}
	out.pull(4000)
	a := e.Analyser()
	wave := make([]float32, a.FFTSize())
	a.FloatTimeDomainData(wave)
	if peak(wave) == 0 {
		t.Fatal("analyser saw only silence")
	}
}

func TestEngineClose(t *testing.T) {
	e, out, _ := newTestEngine(t)
	if err := e.Play(bassLoop(), nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !out.closed {
		t.Fatal("output should be closed")
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := e.Play(bassLoop(), nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("play after close = %v, want ErrClosed", err)
	}
}
