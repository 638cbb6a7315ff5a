package skyline

import (
	"cmp"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"time"

	intseq "github.com/cbegin/skyline-go/internal/scheduler"
	intscore "github.com/cbegin/skyline-go/internal/score"
)

const offlineBlock = 512

// RenderLoops renders loops repetitions of sc on instruments into interleaved
// stereo float32 samples. Loop passes are driven by a virtual timer that
// fires on exact frame boundaries, so the output is deterministic.
// Only master volume is taken from opts.
func RenderLoops(sc *intscore.Score, instruments []intscore.Instrument, sampleRate, loops int, opts ...EngineOption) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if loops <= 0 {
		return nil, nil
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := newBus(sampleRate, cfg.masterVolume)
	clock := &virtualClock{}
	sched := intseq.New(b.ctx, b.master,
		intseq.WithAfterFunc(clock.AfterFunc),
		intseq.WithLeadIn(0),
	)
	if err := sched.Start(sc.Clone(), slices.Clone(instruments)); err != nil {
		return nil, err
	}
	defer sched.Stop()

	total := int64(math.Round(intscore.LoopDuration(sc.BPM) * float64(loops) * float64(sampleRate)))
	out := make([]float32, total*2)
	var frame int64
	for frame < total {
		n := min(int64(offlineBlock), total-frame)
		if due, ok := clock.next(sampleRate); ok && due > frame && due < frame+n {
			n = due - frame
		}
		b.ctx.Process(out[frame*2 : (frame+n)*2])
		frame += n
		if frame < total {
			clock.advance(frame, sampleRate)
		}
	}
	return out, nil
}

type virtualTimer struct {
	due  time.Duration
	f    func()
	done bool
}

func (t *virtualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	return true
}

// virtualClock is an intseq.AfterFunc whose time only moves when advanced.
type virtualClock struct {
	now    time.Duration
	timers []*virtualTimer
}

func (c *virtualClock) AfterFunc(d time.Duration, f func()) intseq.Timer {
	t := &virtualTimer{due: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func frameOf(d time.Duration, sampleRate int) int64 {
	return int64(math.Round(d.Seconds() * float64(sampleRate)))
}

// next returns the frame of the earliest pending timer.
func (c *virtualClock) next(sampleRate int) (int64, bool) {
	c.timers = slices.DeleteFunc(c.timers, func(t *virtualTimer) bool { return t.done })
	if len(c.timers) == 0 {
		return 0, false
	}
	first := slices.MinFunc(c.timers, func(a, b *virtualTimer) int { return cmp.Compare(a.due, b.due) })
	return frameOf(first.due, sampleRate), true
}

// advance fires every timer due at or before frame, in due order.
func (c *virtualClock) advance(frame int64, sampleRate int) {
	for {
		var first *virtualTimer
		for _, t := range c.timers {
			if !t.done && frameOf(t.due, sampleRate) <= frame && (first == nil || t.due < first.due) {
				first = t
			}
		}
		if first == nil {
			return
		}
		first.done = true
		c.now = first.due
		first.f()
	}
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAVE header
// (format 3, IEEE float).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
