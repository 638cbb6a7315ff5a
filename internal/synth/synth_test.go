package synth

import (
	"math"
	"testing"

	"github.com/cbegin/skyline-go/internal/graph"
	"github.com/cbegin/skyline-go/internal/score"
)

const rate = 8000

func render(t *testing.T, ctx *graph.Context, frag *graph.Fragment, seconds float64) []float32 {
	t.Helper()
	if frag == nil {
		t.Fatal("expected a fragment")
	}
	ctx.Connect(frag.Output, ctx.Destination())
	buf := make([]float32, 2*int(seconds*rate))
	ctx.Process(buf)
	return buf
}

func peak(buf []float32, from, to int) float64 {
	var p float64
	for i := from; i < to; i++ {
		p = math.Max(p, math.Abs(float64(buf[i*2])))
	}
	return p
}

func TestLeadPitchOffsetIsOctave(t *testing.T) {
	ctx := graph.NewContext(rate)
	frag := Synthesize(ctx, Request{Category: score.Lead, Token: "A4", Start: 0.5, Duration: 1, Volume: 1, Pitch: 12})
	if frag == nil {
		t.Fatal("expected a fragment")
	}
	osc, ok := frag.Sources()[0].(*graph.Oscillator)
	if !ok {
		t.Fatalf("lead source is %T", frag.Sources()[0])
	}
	if osc.Wave != graph.Sawtooth {
		t.Errorf("lead wave = %v, want sawtooth", osc.Wave)
	}
	if f := osc.Frequency.ValueAt(0.75); f != 880 {
		t.Errorf("lead frequency = %f, want 880", f)
	}
}

func TestTonalWindowAndDecay(t *testing.T) {
	ctx := graph.NewContext(rate)
	frag := Synthesize(ctx, Request{Category: score.Bass, Token: "A2", Start: 0.1, Duration: 0.5, Volume: 1})
	start, stop := frag.Window()
	if start != 800 || stop != 4800 {
		t.Fatalf("window = [%d,%d), want [800,4800)", start, stop)
	}
	buf := render(t, ctx, frag, 1)
	if p := peak(buf, 0, 800); p != 0 {
		t.Errorf("sound before start: %f", p)
	}
	if p := peak(buf, 800, 1200); p < 0.5 || p > 0.7 {
		t.Errorf("bass onset peak = %f, want near 0.7", p)
	}
	if p := peak(buf, 4700, 4800); p > 0.02 {
		t.Errorf("bass tail = %f, want decayed", p)
	}
	if p := peak(buf, 4800, 8000); p != 0 {
		t.Errorf("sound after stop: %f", p)
	}
	if ctx.Destination().Inputs() != 0 {
		t.Error("finished voice should leave the graph")
	}
}

func TestPadAttack(t *testing.T) {
	ctx := graph.NewContext(rate)
	frag := Synthesize(ctx, Request{Category: score.Pad, Token: "C4", Start: 0, Duration: 1, Volume: 1})
	if n := len(frag.Sources()); n != 2 {
		t.Fatalf("pad sources = %d, want 2", n)
	}
	b := frag.Sources()[1].(*graph.Oscillator)
	if f := b.Frequency.ValueAt(0); math.Abs(f-261.6256*1.01) > 0.01 {
		t.Errorf("detuned frequency = %f", f)
	}
	buf := render(t, ctx, frag, 1)
	early := peak(buf, 0, 200)
	// the detuned pair is back in phase near 0.38s
	top := peak(buf, 3000, 3200)
	if early >= top {
		t.Errorf("pad should swell: early %f top %f", early, top)
	}
	if top > 0.4+1e-3 {
		t.Errorf("pad peak %f above two voices at 0.2", top)
	}
}

func TestDrums(t *testing.T) {
	cases := []struct {
		token  string
		length int64
	}{
		{"kick", 1600},
		{"snare", 1600},
		{"HiHat", 800},
	}
	for _, tc := range cases {
		ctx := graph.NewContext(rate)
		frag := Synthesize(ctx, Request{Category: score.Percussion, Token: tc.token, Start: 0, Duration: 4, Volume: 0.8})
		if frag == nil {
			t.Fatalf("%s: no fragment", tc.token)
		}
		start, stop := frag.Window()
		if stop-start != tc.length {
			t.Errorf("%s: length %d frames, want %d", tc.token, stop-start, tc.length)
		}
		buf := render(t, ctx, frag, 0.5)
		if peak(buf, 0, int(tc.length)) == 0 {
			t.Errorf("%s: silent", tc.token)
		}
		if p := peak(buf, int(tc.length), 4000); p > 0.01 {
			t.Errorf("%s: sound after fixed length: %f", tc.token, p)
		}
	}
}

func TestKickSweep(t *testing.T) {
	ctx := graph.NewContext(rate)
	frag := Synthesize(ctx, Request{Category: score.Percussion, Token: "kick", Start: 1, Volume: 1})
	osc := frag.Sources()[0].(*graph.Oscillator)
	if f := osc.Frequency.ValueAt(1); f != 150 {
		t.Errorf("kick start = %f", f)
	}
	if f := osc.Frequency.ValueAt(1.1); math.Abs(f-0.01) > 1e-9 {
		t.Errorf("kick end = %f", f)
	}
}

func TestSilentRequests(t *testing.T) {
	ctx := graph.NewContext(rate)
	reqs := []Request{
		{Category: score.Percussion, Token: "cowbell", Duration: 1, Volume: 1},
		{Category: score.Lead, Token: "H4", Duration: 1, Volume: 1},
		{Category: score.Bass, Token: "C2", Duration: 0, Volume: 1},
		{Category: score.Category("Choir"), Token: "C4", Duration: 1, Volume: 1},
	}
	for _, req := range reqs {
		if frag := Synthesize(ctx, req); frag != nil {
			t.Errorf("%+v produced a fragment", req)
		}
	}
}

func TestQuietVoiceNeverSwells(t *testing.T) {
	ctx := graph.NewContext(rate)
	frag := Synthesize(ctx, Request{Category: score.Lead, Token: "C4", Start: 0, Duration: 0.5, Volume: 0.01})
	buf := render(t, ctx, frag, 0.5)
	if p := peak(buf, 3000, 4000); p > 0.0031 {
		t.Errorf("quiet voice rose to %f", p)
	}
}
