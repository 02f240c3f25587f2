package fingerprint

import (
	"errors"
	"fmt"
)

// Probe is the translation invariant key of a peak pair. Absolute time,
// absolute position and power do not take part in equality.
type Probe struct {
	Dt              int `json:"dt"`
	FirstFrequency  int `json:"f1"`
	SecondFrequency int `json:"f2"`
}

func (p Probe) String() string {
	return fmt.Sprintf("probe(dt=%d f1=%d f2=%d)", p.Dt, p.FirstFrequency, p.SecondFrequency)
}

// HashPoint is a probe together with the frame of its anchor peak.
type HashPoint struct {
	Probe
	Anchor int `json:"anchor"`
}

const (
	DefaultTimeOffset = 10
	DefaultFreqOffset = 5
)

// ExtractorConfig bounds the pairing window. TimeOffset is in frames,
// FreqOffset in bins.
type ExtractorConfig struct {
	TimeOffset int `json:"time_offset" toml:"time_offset"`
	FreqOffset int `json:"freq_offset" toml:"freq_offset"`
}

// DefaultExtractorConfig returns the standard pairing window.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{TimeOffset: DefaultTimeOffset, FreqOffset: DefaultFreqOffset}
}

var ErrInvalidExtractorConfig = errors.New("invalid extractor config")

func (c ExtractorConfig) Validate() error {
	if c.TimeOffset < 1 {
		return fmt.Errorf("%w: time offset %d must be at least 1", ErrInvalidExtractorConfig, c.TimeOffset)
	}
	if c.FreqOffset < 1 {
		return fmt.Errorf("%w: freq offset %d must be at least 1", ErrInvalidExtractorConfig, c.FreqOffset)
	}
	return nil
}

// Extractor pairs global peaks into hash points. It holds no mutable state
// and may be shared between goroutines.
type Extractor struct {
	cfg ExtractorConfig
}

func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg}, nil
}

func (e *Extractor) Config() ExtractorConfig { return e.cfg }

// Extract pairs every anchor P with each later peak Q such that
// Q.Time != P.Time and Q.Frequency lies in (P.Frequency, P.Frequency+FreqOffset].
// peaks must be ordered by time; the scan for an anchor stops at the first
// peak beyond P.Time+TimeOffset. Duplicate hash points are kept.
func (e *Extractor) Extract(peaks []Peak) []HashPoint {
	var points []HashPoint
	for i, anchor := range peaks {
		horizon := anchor.Time + e.cfg.TimeOffset
		ceiling := anchor.Frequency + e.cfg.FreqOffset
		for _, target := range peaks[i+1:] {
			if target.Time > horizon {
				break
			}
			if target.Time == anchor.Time || target.Frequency == anchor.Frequency {
				continue
			}
			if target.Frequency <= anchor.Frequency || target.Frequency > ceiling {
				continue
			}
			points = append(points, HashPoint{
				Probe: Probe{
					Dt:              target.Time - anchor.Time,
					FirstFrequency:  anchor.Frequency,
					SecondFrequency: target.Frequency,
				},
				Anchor: anchor.Time,
			})
		}
	}
	return points
}

// ExtractSignal runs the full spectrogram and pairing pipeline.
func (e *Extractor) ExtractSignal(sig Signal, opts ...SpectrogramOption) ([]HashPoint, error) {
	spec, err := NewSpectrogram(sig, opts...)
	if err != nil {
		return nil, err
	}
	return e.Extract(spec.peaks), nil
}
