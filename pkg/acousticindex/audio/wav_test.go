package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/AcousticIndex/internal/testsupport"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

func TestWriteReadWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.wav")
	sig := fingerprint.Signal{
		Name:       "walk",
		SampleRate: testsupport.SampleRate,
		Samples:    testsupport.TrackA(20).Samples(),
	}

	if err := WriteWAV(path, sig); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	if !IsWAV(path) {
		t.Fatal("Expected written file to be a valid WAV")
	}

	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if got.Name != "walk" {
		t.Errorf("Expected name 'walk', got %q", got.Name)
	}
	if got.SampleRate != testsupport.SampleRate {
		t.Errorf("Expected sample rate %d, got %.0f", testsupport.SampleRate, got.SampleRate)
	}
	if len(got.Samples) != len(sig.Samples) {
		t.Fatalf("Expected %d samples, got %d", len(sig.Samples), len(got.Samples))
	}
	for i := range sig.Samples {
		if math.Abs(got.Samples[i]-sig.Samples[i]) > 0.5/32768 {
			t.Fatalf("Sample %d: expected %f, got %f", i, sig.Samples[i], got.Samples[i])
		}
	}
}

func TestWriteReadWAVExactFor16BitValues(t *testing.T) {
	levels := []int{math.MinInt16, -16384, -1, 0, 1, 12345, 16384, math.MaxInt16}
	samples := make([]float64, 0, len(levels)*4)
	for i := 0; i < 4; i++ {
		for _, l := range levels {
			samples = append(samples, float64(l)/32768)
		}
	}

	path := filepath.Join(t.TempDir(), "levels.wav")
	if err := WriteWAV(path, fingerprint.Signal{SampleRate: 8000, Samples: samples}); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if len(got.Samples) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(got.Samples))
	}
	for i := range samples {
		if got.Samples[i] != samples[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, samples[i], got.Samples[i])
		}
	}
}

func TestPCM16Clips(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{1, math.MaxInt16},
		{1.7, math.MaxInt16},
		{-1, math.MinInt16},
		{-3, math.MinInt16},
		{0.5, 16384},
		{0, 0},
	}
	for _, tt := range tests {
		if got := pcm16(tt.in); got != tt.want {
			t.Errorf("pcm16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFoldToMono(t *testing.T) {
	tests := []struct {
		name     string
		data     []int
		channels int
		bitDepth int
		want     []float64
	}{
		{"mono 16-bit", []int{16384, -32768}, 1, 16, []float64{0.5, -1}},
		{"stereo averages", []int{16384, 0, -16384, -16384}, 2, 16, []float64{0.25, -0.5}},
		{"unsigned 8-bit", []int{128, 255, 0}, 1, 8, []float64{0, 127.0 / 128, -1}},
		{"trailing partial frame dropped", []int{100, 100, 7}, 2, 16, []float64{100.0 / 32768}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := foldToMono(tt.data, tt.channels, tt.bitDepth)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("Sample %d: expected %f, got %f", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestReadWAVRejectsOtherFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if IsWAV(path) {
		t.Error("Expected IsWAV to be false")
	}
	if _, err := ReadWAV(path); !errors.Is(err, ErrNotWAV) {
		t.Errorf("Expected ErrNotWAV, got %v", err)
	}
}

func TestLoadSignalReadsWAVDirectly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "direct.wav")
	sig := fingerprint.Signal{SampleRate: 22050, Samples: testsupport.TrackB(4).Samples()}
	if err := WriteWAV(path, sig); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	got, err := LoadSignal(context.Background(), path, filepath.Join(dir, "scratch"), ConvertWAVConfig{})
	if err != nil {
		t.Fatalf("LoadSignal failed: %v", err)
	}
	if got.SampleRate != 22050 || len(got.Samples) != len(sig.Samples) {
		t.Errorf("Unexpected signal: rate=%.0f samples=%d", got.SampleRate, len(got.Samples))
	}
}

func TestLoadSignalConvertsWithFFmpeg(t *testing.T) {
	if !FFmpegAvailable() {
		t.Skipf("ffmpeg not available, skipping conversion test")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "source.wav")
	if err := WriteWAV(src, fingerprint.Signal{SampleRate: 48000, Samples: testsupport.TrackA(10).Samples()}); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	out, err := ConvertToMonoWAV(context.Background(), src, filepath.Join(dir, "out"), ConvertWAVConfig{SampleRate: 22050})
	if err != nil {
		t.Fatalf("ConvertToMonoWAV failed: %v", err)
	}
	got, err := ReadWAV(out)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if got.SampleRate != 22050 {
		t.Errorf("Expected 22050 Hz after conversion, got %.0f", got.SampleRate)
	}
}

func TestLoadSignalResamplesWAVToConfiguredRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studio.wav")
	samples := testsupport.TrackA(12).Samples()
	if err := WriteWAV(path, fingerprint.Signal{SampleRate: 48000, Samples: samples}); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	got, err := LoadSignal(context.Background(), path, filepath.Join(dir, "scratch"), ConvertWAVConfig{SampleRate: 44100})
	if !FFmpegAvailable() {
		if !errors.Is(err, ErrFFmpegMissing) {
			t.Fatalf("Expected ErrFFmpegMissing without ffmpeg, got %v", err)
		}
		return
	}
	if err != nil {
		t.Fatalf("LoadSignal failed: %v", err)
	}
	if got.SampleRate != 44100 {
		t.Errorf("Expected 44100 Hz, got %.0f", got.SampleRate)
	}
	if got.Name != "studio" {
		t.Errorf("Expected name 'studio', got %q", got.Name)
	}
	want := len(samples) * 44100 / 48000
	if d := len(got.Samples) - want; d < -64 || d > 64 {
		t.Errorf("Expected about %d samples, got %d", want, len(got.Samples))
	}
}

func TestLoadSignalKeepsMatchingWAVRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "native.wav")
	sig := fingerprint.Signal{SampleRate: 44100, Samples: testsupport.TrackB(4).Samples()}
	if err := WriteWAV(path, sig); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	// no ffmpeg involved, so this holds on any machine
	got, err := LoadSignal(context.Background(), path, filepath.Join(dir, "scratch"), ConvertWAVConfig{SampleRate: 44100})
	if err != nil {
		t.Fatalf("LoadSignal failed: %v", err)
	}
	if got.SampleRate != 44100 || len(got.Samples) != len(sig.Samples) {
		t.Errorf("Unexpected signal: rate=%.0f samples=%d", got.SampleRate, len(got.Samples))
	}
	if entries, _ := os.ReadDir(filepath.Join(dir, "scratch")); len(entries) != 0 {
		t.Errorf("Expected no scratch files, got %d", len(entries))
	}
}

func TestLoadSignalHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadSignal(ctx, "whatever.mp3", t.TempDir(), ConvertWAVConfig{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
