package fingerprint

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSignal is returned for signals that cannot be analyzed at all.
	ErrInvalidSignal = errors.New("invalid signal")
	// ErrTransformFailure is returned when a signal produces zero analysis frames.
	ErrTransformFailure = errors.New("transform failure")
)

// ErrEmptySignal reports a signal with no samples. It matches both
// ErrInvalidSignal and ErrTransformFailure under errors.Is.
var ErrEmptySignal error = emptySignalError{}

type emptySignalError struct{}

func (emptySignalError) Error() string { return "empty signal: no samples to analyze" }

func (emptySignalError) Is(target error) bool {
	return target == ErrInvalidSignal || target == ErrTransformFailure
}

// Signal is a normalized mono sample sequence. Samples are expected in [-1, 1].
type Signal struct {
	Name       string
	SampleRate float64
	Samples    []float64
}

// Validate rejects signals that the spectrogram cannot frame.
func (s Signal) Validate() error {
	if len(s.Samples) == 0 {
		return ErrEmptySignal
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %.0f must be positive", ErrInvalidSignal, s.SampleRate)
	}
	if len(s.Samples) < FrameSize {
		return fmt.Errorf("%w: %d samples is shorter than one %d-sample frame",
			ErrTransformFailure, len(s.Samples), FrameSize)
	}
	return nil
}

// NumFrames is the number of whole analysis frames in the signal.
func (s Signal) NumFrames() int {
	return len(s.Samples) / FrameSize
}

// Duration of the signal at its sample rate.
func (s Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / s.SampleRate * float64(time.Second))
}

// Slice returns the frames [from, to) as a new signal sharing the sample storage.
func (s Signal) Slice(from, to int) Signal {
	n := s.NumFrames()
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from > to {
		from = to
	}
	return Signal{
		Name:       s.Name,
		SampleRate: s.SampleRate,
		Samples:    s.Samples[from*FrameSize : to*FrameSize],
	}
}

// FramesToSeconds converts a frame count at the given sample rate to seconds.
func FramesToSeconds(frames int, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(frames*FrameSize) / sampleRate
}

// BinFrequency converts a bin index to Hz.
func BinFrequency(bin int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / FrameSize
}
