package fingerprint

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

type spectrogramConfig struct {
	workers int
}

// SpectrogramOption configures spectrogram construction.
type SpectrogramOption func(*spectrogramConfig)

// WithWorkers bounds the number of frames transformed in parallel.
// Values below 1 fall back to GOMAXPROCS.
func WithWorkers(n int) SpectrogramOption {
	return func(c *spectrogramConfig) {
		c.workers = n
	}
}

// Spectrogram is the sequence of power spectra of a signal, cut into
// disjoint FrameSize frames, with the peaks that survive global promotion.
type Spectrogram struct {
	Name       string
	SampleRate float64
	frames     []*PowerSpectrum
	peaks      []Peak
}

// NewSpectrogram frames the signal and promotes local peaks to global
// peaks. The trailing partial frame is dropped.
func NewSpectrogram(sig Signal, opts ...SpectrogramOption) (*Spectrogram, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	cfg := spectrogramConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}

	frames := make([]*PowerSpectrum, sig.NumFrames())

	var g errgroup.Group
	g.SetLimit(cfg.workers)
	for i := range frames {
		g.Go(func() error {
			frames[i] = NewPowerSpectrum(sig.Samples[i*FrameSize:(i+1)*FrameSize], i)
			return nil
		})
	}
	// promotion reads the neighbours of every frame
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Spectrogram{
		Name:       sig.Name,
		SampleRate: sig.SampleRate,
		frames:     frames,
		peaks:      promote(frames),
	}, nil
}

// promote keeps a local peak of frame t at bin f when, for every other
// frame u within Neighborhood frames, its power beats both u's power at f
// and u's average power by more than PeakThreshold. The final frame only
// serves as a neighbour and never contributes peaks of its own.
func promote(frames []*PowerSpectrum) []Peak {
	var global []Peak
	for t := 0; t < len(frames)-1; t++ {
		ps := frames[t]
		lo := max(0, t-Neighborhood)
		hi := min(len(frames)-1, t+Neighborhood)
		for _, pk := range ps.peaks {
			if dominatesNeighbours(pk, frames[lo:hi+1], t) {
				global = append(global, pk)
			}
		}
	}
	return global
}

func dominatesNeighbours(pk Peak, window []*PowerSpectrum, self int) bool {
	for _, other := range window {
		if other.index == self {
			continue
		}
		if pk.Power-other.Power(pk.Frequency) <= PeakThreshold {
			return false
		}
		if pk.Power-other.average <= PeakThreshold {
			return false
		}
	}
	return true
}

// Peaks returns the global peaks ordered by frame, then bin.
func (s *Spectrogram) Peaks() []Peak {
	out := make([]Peak, len(s.peaks))
	copy(out, s.peaks)
	return out
}

func (s *Spectrogram) NumFrames() int { return len(s.frames) }

// Frame returns the power spectrum at index i.
func (s *Spectrogram) Frame(i int) *PowerSpectrum { return s.frames[i] }
