// Package testsupport builds deterministic synthetic audio for tests.
package testsupport

import (
	"math"
	"math/rand"
	"testing"
)

const (
	SampleRate = 44100
	FrameSize  = 1024
)

// ToneWalk describes a signal carrying one bin-centred sine per frame. The
// bin follows a seeded upward random walk inside [LowBin, HighBin],
// wrapping back to LowBin at the top of the band.
type ToneWalk struct {
	Frames    int
	LowBin    int
	HighBin   int
	Amplitude float64
	Seed      int64
}

// Bins returns the tone bin of every frame.
func (w ToneWalk) Bins() []int {
	rng := rand.New(rand.NewSource(w.Seed))
	bins := make([]int, w.Frames)
	bin := w.LowBin
	for i := range bins {
		bins[i] = bin
		bin += 1 + rng.Intn(5)
		if bin > w.HighBin {
			bin = w.LowBin + rng.Intn(3)
		}
	}
	return bins
}

// Samples renders the walk. Each frame holds an integer number of cycles so
// all energy lands in a single bin.
func (w ToneWalk) Samples() []float64 {
	amp := w.Amplitude
	if amp == 0 {
		amp = 0.5
	}
	out := make([]float64, w.Frames*FrameSize)
	for f, bin := range w.Bins() {
		base := f * FrameSize
		for n := 0; n < FrameSize; n++ {
			out[base+n] = amp * math.Sin(2*math.Pi*float64(bin)*float64(n)/FrameSize)
		}
	}
	return out
}

// TrackA and TrackB occupy disjoint bands, so they share no probes.
func TrackA(frames int) ToneWalk {
	return ToneWalk{Frames: frames, LowBin: 20, HighBin: 150, Amplitude: 0.5, Seed: 1}
}

func TrackB(frames int) ToneWalk {
	return ToneWalk{Frames: frames, LowBin: 200, HighBin: 400, Amplitude: 0.5, Seed: 2}
}

// Excerpt copies frames [from, from+count) of samples.
func Excerpt(t testing.TB, samples []float64, from, count int) []float64 {
	t.Helper()
	start, end := from*FrameSize, (from+count)*FrameSize
	if start < 0 || end > len(samples) {
		t.Fatalf("excerpt [%d,%d) out of range for %d samples", start, end, len(samples))
	}
	out := make([]float64, end-start)
	copy(out, samples[start:end])
	return out
}

// WithNoise returns a copy of samples with seeded gaussian noise added.
func WithNoise(samples []float64, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s + rng.NormFloat64()*sigma
	}
	return out
}

// Silence returns n zero samples.
func Silence(n int) []float64 {
	return make([]float64, n)
}
