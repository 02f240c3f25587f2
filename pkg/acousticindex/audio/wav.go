package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

var ErrNotWAV = errors.New("not a PCM WAV file")

// IsWAV reports whether path holds a readable WAV file.
func IsWAV(path string) bool {
	_, ok := wavSampleRate(path)
	return ok
}

// wavSampleRate returns the rate in the WAV header of path, if path is a WAV.
func wavSampleRate(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, false
	}
	return int(dec.SampleRate), true
}

// ReadWAV decodes a PCM WAV file into a normalized mono signal. Channels
// are averaged into one.
func ReadWAV(path string) (fingerprint.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return fingerprint.Signal{}, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fingerprint.Signal{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fingerprint.Signal{}, fmt.Errorf("decoding wav: %w", err)
	}

	channels := int(dec.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if channels < 1 {
		return fingerprint.Signal{}, fmt.Errorf("%s: %w: no channels", path, ErrNotWAV)
	}

	return fingerprint.Signal{
		Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SampleRate: float64(dec.SampleRate),
		Samples:    foldToMono(buf.Data, channels, int(dec.BitDepth)),
	}, nil
}

// foldToMono averages interleaved integer frames and scales them to [-1, 1].
func foldToMono(data []int, channels, bitDepth int) []float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := math.Exp2(float64(bitDepth - 1))
	var bias float64
	if bitDepth == 8 {
		// 8-bit PCM is unsigned
		bias = scale
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c]) - bias
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

// WriteWAV stores sig as a 16-bit mono PCM WAV file.
func WriteWAV(path string, sig fingerprint.Signal) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating wav: %w", err)
	}

	rate := int(math.Round(sig.SampleRate))
	enc := wav.NewEncoder(f, rate, 16, 1, 1)

	data := make([]int, len(sig.Samples))
	for i, s := range sig.Samples {
		data[i] = pcm16(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return f.Close()
}

// pcm16 quantizes a sample with the same 2^15 scale ReadWAV divides by, so
// any value a 16-bit file can hold survives a write and read unchanged.
func pcm16(s float64) int {
	v := math.Round(s * 32768)
	return int(math.Max(math.MinInt16, math.Min(math.MaxInt16, v)))
}
