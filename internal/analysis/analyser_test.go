package analysis

import (
	"math"
	"testing"
)

func stereoSine(n int, cyclesPerWindow, size int, amp float64) []float32 {
	out := make([]float32, n*2)
	for i := 0; i < n; i++ {
		v := float32(amp * math.Sin(2*math.Pi*float64(cyclesPerWindow)*float64(i)/float64(size)))
		out[i*2], out[i*2+1] = v, v
	}
	return out
}

func TestSilenceIsFloor(t *testing.T) {
	a := New()
	a.Tap(make([]float32, 4096))
	bins := make([]byte, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	for i, b := range bins {
		if b != 0 {
			t.Fatalf("bin %d = %d, want 0 for silence", i, b)
		}
	}
	wave := make([]byte, a.FFTSize())
	a.ByteTimeDomainData(wave)
	for i, b := range wave {
		if b != 128 {
			t.Fatalf("sample %d = %d, want 128 for silence", i, b)
		}
	}
}

func TestSinePeaksAtItsBin(t *testing.T) {
	a := New(WithSmoothing(0))
	a.Tap(stereoSine(2048, 64, 2048, 0.5))
	bins := make([]float32, a.FrequencyBinCount())
	a.FloatFrequencyData(bins)
	best := 0
	for i, v := range bins {
		if v > bins[best] {
			best = i
		}
	}
	if best != 64 {
		t.Errorf("peak bin = %d, want 64", best)
	}
	bytes := make([]byte, a.FrequencyBinCount())
	a.ByteFrequencyData(bytes)
	if bytes[64] != 255 {
		t.Errorf("peak byte = %d, want saturated 255", bytes[64])
	}
	if bytes[400] != 0 {
		t.Errorf("far bin byte = %d, want 0", bytes[400])
	}
}

func TestSmoothingCarriesHistory(t *testing.T) {
	a := New()
	a.Tap(stereoSine(2048, 64, 2048, 0.5))
	first := make([]float32, a.FrequencyBinCount())
	a.FloatFrequencyData(first)
	a.Tap(make([]float32, 4096))
	second := make([]float32, a.FrequencyBinCount())
	a.FloatFrequencyData(second)
	if math.IsInf(float64(second[64]), -1) {
		t.Fatal("smoothed bin dropped straight to silence")
	}
	if second[64] >= first[64] {
		t.Errorf("smoothed bin should fall: %f then %f", first[64], second[64])
	}
}

func TestReadsFollowPlaybackPosition(t *testing.T) {
	var played int64
	a := New(WithFFTSize(4), WithPosition(func() int64 { return played }))
	a.Tap([]float32{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8})
	got := make([]float32, 4)

	played = 8
	a.FloatTimeDomainData(got)
	if got[0] != 5 || got[3] != 8 {
		t.Errorf("caught-up read = %v, want [5 6 7 8]", got)
	}
	played = 6
	a.FloatTimeDomainData(got)
	if got[0] != 3 || got[3] != 6 {
		t.Errorf("lagging read = %v, want [3 4 5 6]", got)
	}
}
