package effects

import (
	"math"
	"testing"

	"github.com/cbegin/skyline-go/internal/score"
)

func TestFeedbackDelayEchoes(t *testing.T) {
	d := NewFeedbackDelay(1000, 0.1, 0.5)
	if d.Len() != 100 {
		t.Fatalf("delay length = %d, want 100", d.Len())
	}
	l, _ := d.Process(1, 1)
	if l != 1 {
		t.Fatalf("dry path = %f, want 1", l)
	}
	var out []float32
	for i := 0; i < 250; i++ {
		l, _ := d.Process(0, 0)
		out = append(out, l)
	}
	// out[i] is frame i+1
	if math.Abs(float64(out[99])-1) > 1e-6 {
		t.Errorf("first echo = %f, want 1", out[99])
	}
	if math.Abs(float64(out[199])-0.5) > 1e-6 {
		t.Errorf("second echo = %f, want 0.5", out[199])
	}
	if out[50] != 0 {
		t.Errorf("unexpected output between echoes: %f", out[50])
	}
}

func TestFeedbackDelayCapsTimeAndFeedback(t *testing.T) {
	d := NewFeedbackDelay(1000, 5, 3)
	if d.Len() != 2000 {
		t.Errorf("delay length = %d, want capped 2000", d.Len())
	}
	if d.feedback != 0.95 {
		t.Errorf("feedback = %f, want 0.95", d.feedback)
	}
	d.Process(1, 0)
	for i := 1; i < 2000; i++ {
		if l, _ := d.Process(0, 0); l != 0 {
			t.Fatalf("early echo at %d: %f", i, l)
		}
	}
	if l, _ := d.Process(0, 0); l != 1 {
		t.Fatalf("echo at 2000 = %f, want 1", l)
	}
}

func TestImpulseShape(t *testing.T) {
	l, r := Impulse(1000, 0.02, 7)
	if len(l) != 100 || len(r) != 100 {
		t.Fatalf("impulse length = %d, want 100 (0.1s floor)", len(l))
	}
	var energy float64
	for i := range l {
		energy += float64(l[i]*l[i] + r[i]*r[i])
	}
	if math.Abs(energy-2) > 1e-3 {
		t.Errorf("impulse energy = %f, want 2", energy)
	}
	head, tail := 0.0, 0.0
	for i := 0; i < 20; i++ {
		head += math.Abs(float64(l[i]))
		tail += math.Abs(float64(l[len(l)-1-i]))
	}
	if tail >= head/10 {
		t.Errorf("tail %f not decayed relative to head %f", tail, head)
	}
	l2, _ := Impulse(1000, 0.02, 7)
	if l2[10] != l[10] {
		t.Error("same seed should synthesise the same room")
	}
}

func TestConvolverMatchesDirectConvolution(t *testing.T) {
	irL := make([]float32, 1500)
	irR := make([]float32, 1500)
	irL[0] = 1
	irL[1100] = 0.5
	irR[3] = -1
	c := NewConvolver(irL, irR)

	n := 4 * ConvolverBlock
	var outL, outR []float32
	for i := 0; i < n; i++ {
		var x float32
		if i == 10 {
			x = 1
		}
		l, r := c.Process(x, x)
		outL = append(outL, l)
		outR = append(outR, r)
	}
	lag := ConvolverBlock
	check := func(name string, got []float32, at int, want float32) {
		t.Helper()
		if math.Abs(float64(got[at]-want)) > 1e-4 {
			t.Errorf("%s[%d] = %f, want %f", name, at, got[at], want)
		}
	}
	check("L", outL, lag+10, 1)
	check("L", outL, lag+10+1100, 0.5)
	check("L", outL, lag+11, 0)
	check("R", outR, lag+13, -1)
	check("R", outR, lag+10, 0)
}

func TestConvolverSilentInSilentOut(t *testing.T) {
	l, r := Impulse(8000, 0.5, 1)
	c := NewConvolver(l, r)
	for i := 0; i < 3*ConvolverBlock; i++ {
		if a, b := c.Process(0, 0); a != 0 || b != 0 {
			t.Fatalf("non-zero output %f,%f at %d", a, b, i)
		}
	}
}

func TestBuildSelectsUnit(t *testing.T) {
	params := score.EffectParams{ReverbDecay: 2, DelayTime: 0.3, DelayFeedback: 0.4}
	if e := Build(score.EffectNone, params, 8000, 1); e != nil {
		t.Errorf("none built %T", e)
	}
	if _, ok := Build(score.EffectReverb, params, 8000, 1).(*Convolver); !ok {
		t.Error("reverb should build a convolver")
	}
	if _, ok := Build(score.EffectCathedral, params, 8000, 1).(*Convolver); !ok {
		t.Error("cathedral should build a convolver")
	}
	d, ok := Build(score.EffectDelay, params, 8000, 1).(*FeedbackDelay)
	if !ok {
		t.Fatal("delay should build a feedback delay")
	}
	if d.Len() != 2400 {
		t.Errorf("delay length = %d, want 2400", d.Len())
	}
	a := Build(score.EffectDelay, params, 8000, 1)
	b := Build(score.EffectDelay, params, 8000, 1)
	if a == b {
		t.Error("each build must return an independent instance")
	}
}

func TestLimiterTransparentBelowThreshold(t *testing.T) {
	c := NewMasterLimiter(44100)
	for i := 0; i < 1000; i++ {
		l, r := c.Process(0.5, -0.5)
		if l != 0.5 || r != -0.5 {
			t.Fatalf("limiter altered quiet signal: %f %f", l, r)
		}
	}
}

func TestLimiterReducesLoud(t *testing.T) {
	c := NewMasterLimiter(44100)
	var out float32
	for i := 0; i < 1000; i++ {
		out, _ = c.Process(2.0, 2.0)
	}
	if out >= 1.0 {
		t.Errorf("expected limiting, got %f", out)
	}
}
