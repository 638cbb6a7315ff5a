// Package skyline is a looping multi-track music engine. An Engine schedules
// a Score against a configured set of instruments, routes them through
// per-instrument effects into a shared master bus, and exposes the mixed
// output to an analyser for visualisation.
package skyline

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	intanalysis "github.com/cbegin/skyline-go/internal/analysis"
	intaudio "github.com/cbegin/skyline-go/internal/audio"
	intfx "github.com/cbegin/skyline-go/internal/effects"
	intgraph "github.com/cbegin/skyline-go/internal/graph"
	intlog "github.com/cbegin/skyline-go/internal/logger"
	intseq "github.com/cbegin/skyline-go/internal/scheduler"
	intscore "github.com/cbegin/skyline-go/internal/score"
)

const (
	// DefaultMasterVolume is the master bus level of a new engine.
	DefaultMasterVolume = 0.8
	// masterSmoothing is the time constant of master volume changes.
	masterSmoothing = 0.015
)

var ErrClosed = errors.New("engine is closed")

// OutputOpener opens a device stream pulling from src.
type OutputOpener func(sampleRate int, src intaudio.SampleSource) (intaudio.Output, error)

type EngineOption func(*engineConfig)

type engineConfig struct {
	masterVolume float64
	leadIn       time.Duration
	after        intseq.AfterFunc
	open         OutputOpener
	sampleTap    func([]float32)
	analyserOpts []intanalysis.Option
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		masterVolume: DefaultMasterVolume,
		leadIn:       intseq.DefaultLeadIn,
		after:        intseq.RealTime,
		open:         intaudio.Open,
	}
}

func WithMasterVolume(level float64) EngineOption {
	return func(c *engineConfig) { c.masterVolume = max(level, 0) }
}

// WithLeadIn sets how far ahead of the clock each loop pass starts.
func WithLeadIn(d time.Duration) EngineOption {
	return func(c *engineConfig) { c.leadIn = d }
}

// WithAfterFunc replaces the wall-clock timer that re-arms each loop.
func WithAfterFunc(after intseq.AfterFunc) EngineOption {
	return func(c *engineConfig) { c.after = after }
}

// WithOutput replaces the audio device. Tests pass a fake output here.
func WithOutput(open OutputOpener) EngineOption {
	return func(c *engineConfig) { c.open = open }
}

// WithSampleTap registers a callback that receives every rendered block of
// interleaved stereo samples after the master bus. The callback runs on the
// audio goroutine and must not block.
func WithSampleTap(fn func([]float32)) EngineOption {
	return func(c *engineConfig) { c.sampleTap = fn }
}

func WithAnalyserOptions(opts ...intanalysis.Option) EngineOption {
	return func(c *engineConfig) { c.analyserOpts = append(c.analyserOpts, opts...) }
}

// bus is the engine-lifetime part of the graph: master gain into the
// limiter into the destination.
type bus struct {
	ctx     *intgraph.Context
	master  *intgraph.MasterGain
	limiter *intgraph.Insert
}

func newBus(sampleRate int, level float64) *bus {
	ctx := intgraph.NewContext(sampleRate)
	b := &bus{
		ctx:     ctx,
		master:  ctx.NewMasterGain(level, masterSmoothing),
		limiter: ctx.NewInsert(intfx.NewMasterLimiter(sampleRate)),
	}
	ctx.Connect(b.master, b.limiter)
	ctx.Connect(b.limiter, ctx.Destination())
	return b
}

// device holds the open output so the analyser can read its position
// without taking the engine lock.
type device struct {
	intaudio.Output
}

type Engine struct {
	mu          sync.Mutex
	cfg         engineConfig
	sampleRate  int
	bus         *bus
	analyser    *intanalysis.Analyser
	sched       *intseq.Scheduler
	out         atomic.Pointer[device]
	score       *intscore.Score
	instruments []intscore.Instrument
	closed      bool
}

// NewEngine builds the master bus and analyser. The audio device is opened
// on the first Play.
func NewEngine(sampleRate int, opts ...EngineOption) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		cfg:        cfg,
		sampleRate: sampleRate,
		bus:        newBus(sampleRate, cfg.masterVolume),
	}
	aopts := append([]intanalysis.Option{intanalysis.WithPosition(e.playedFrames)}, cfg.analyserOpts...)
	e.analyser = intanalysis.New(aopts...)
	e.bus.ctx.AddTap(e.analyser.Tap)
	if cfg.sampleTap != nil {
		e.bus.ctx.AddTap(cfg.sampleTap)
	}
	e.sched = intseq.New(e.bus.ctx, e.bus.master,
		intseq.WithAfterFunc(cfg.after),
		intseq.WithLeadIn(cfg.leadIn),
	)
	return e, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// Play stops any running session and loops sc on instruments. The engine
// keeps its own copy of both.
func (e *Engine) Play(sc *intscore.Score, instruments []intscore.Instrument) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.ensureOutputLocked(); err != nil {
		return err
	}
	e.score = sc.Clone()
	e.instruments = slices.Clone(instruments)
	return e.sched.Start(e.score, e.instruments)
}

func (e *Engine) ensureOutputLocked() error {
	if e.out.Load() != nil {
		return nil
	}
	out, err := e.cfg.open(e.sampleRate, e.bus.ctx)
	if err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}
	e.out.Store(&device{out})
	out.Play()
	intlog.Info("audio output opened", intlog.Fields{"sample_rate": e.sampleRate})
	return nil
}

// Stop silences the current session at once. It is safe to call at any time
// and any number of times.
func (e *Engine) Stop() {
	e.sched.Stop()
}

// UpdateInstruments stores a new instrument snapshot. While playing, changes
// to volume, pitch, category or effects restart the session with the same
// score; mute and solo changes apply from the next loop.
func (e *Engine) UpdateInstruments(instruments []intscore.Instrument) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	next := slices.Clone(instruments)
	old := e.instruments
	e.instruments = next
	if e.sched.State() != intseq.Scheduled || e.score == nil {
		return nil
	}
	if intseq.NeedsRestart(old, next) {
		e.sched.Stop()
		return e.sched.Start(e.score, next)
	}
	e.sched.SetInstruments(next)
	return nil
}

func (e *Engine) IsPlaying() bool {
	return e.sched.State() == intseq.Scheduled
}

// Score returns the score last passed to Play, or nil.
func (e *Engine) Score() *intscore.Score {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.score == nil {
		return nil
	}
	return e.score.Clone()
}

func (e *Engine) Instruments() []intscore.Instrument {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.instruments)
}

// SetMasterVolume sets the master bus level. Negative values clamp to 0.
// The change is smoothed on the audio thread.
func (e *Engine) SetMasterVolume(level float64) {
	e.bus.master.SetLevel(level)
}

func (e *Engine) MasterVolume() float64 {
	return e.bus.master.Level()
}

// Analyser exposes the read-only analysis tap on the master output.
func (e *Engine) Analyser() *intanalysis.Analyser {
	return e.analyser
}

// CurrentTime is the graph clock in seconds.
func (e *Engine) CurrentTime() float64 {
	return e.bus.ctx.CurrentTime()
}

func (e *Engine) playedFrames() int64 {
	d := e.out.Load()
	if d == nil {
		return e.bus.ctx.CurrentFrame()
	}
	return d.PlayedFrames()
}

// Close stops playback and releases the audio device.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.sched.Stop()
	d := e.out.Swap(nil)
	if d == nil {
		return nil
	}
	d.Pause()
	return d.Close()
}
