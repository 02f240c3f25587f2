package fingerprint

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

const (
	// FrameSize is the analysis frame length in samples. Changing it
	// invalidates every index built with the previous value.
	FrameSize = 1024

	// Bins is the number of non-redundant frequency bins per frame.
	Bins = FrameSize / 2

	// PeakThreshold is the margin a peak must exceed its competitors by.
	PeakThreshold = 1.25

	// Neighborhood is the half-width of the comparison window, in
	// candidate positions for local peaks and in frames for global ones.
	Neighborhood = 3
)

// PowerSpectrum holds the bin powers of one frame and its local peaks.
type PowerSpectrum struct {
	index   int
	power   []float64
	average float64
	peaks   []Peak
}

// NewPowerSpectrum transforms one frame of FrameSize samples. Shorter
// frames are zero padded, longer ones truncated.
func NewPowerSpectrum(frame []float64, index int) *PowerSpectrum {
	buf := make([]float64, FrameSize)
	copy(buf, frame)

	spectrum := fft.FFTReal(buf)
	power := make([]float64, Bins)
	for k := range power {
		power[k] = cmplx.Abs(spectrum[k])
	}
	return newPowerSpectrumFromPower(index, power)
}

func newPowerSpectrumFromPower(index int, power []float64) *PowerSpectrum {
	ps := &PowerSpectrum{index: index, power: power}
	if len(power) > 0 {
		ps.average = floats.Sum(power) / float64(len(power))
	}
	ps.peaks = localPeaks(index, power, ps.average)
	return ps
}

// localPeaks keeps the candidates (bins above average) that beat every
// other candidate within Neighborhood list positions by more than
// PeakThreshold. Distance is measured in the candidate list, not in bins.
func localPeaks(index int, power []float64, average float64) []Peak {
	candidates := make([]int, 0, 16)
	for k, p := range power {
		if p > average {
			candidates = append(candidates, k)
		}
	}

	var peaks []Peak
	for i, bin := range candidates {
		p := power[bin]
		dominant := true
		lo := max(0, i-Neighborhood)
		hi := min(len(candidates)-1, i+Neighborhood)
		for j := lo; j <= hi && dominant; j++ {
			if j == i {
				continue
			}
			if p-power[candidates[j]] <= PeakThreshold {
				dominant = false
			}
		}
		if dominant {
			peaks = append(peaks, Peak{Time: index, Frequency: bin, Power: p})
		}
	}
	return peaks
}

// Index is the frame position within its spectrogram.
func (ps *PowerSpectrum) Index() int { return ps.index }

// Power returns the power at bin k, or 0 outside the spectrum.
func (ps *PowerSpectrum) Power(k int) float64 {
	if k < 0 || k >= len(ps.power) {
		return 0
	}
	return ps.power[k]
}

// Powers returns a copy of all bin powers.
func (ps *PowerSpectrum) Powers() []float64 {
	out := make([]float64, len(ps.power))
	copy(out, ps.power)
	return out
}

func (ps *PowerSpectrum) AveragePower() float64 { return ps.average }

// MaxPower is the strongest bin power in the frame.
func (ps *PowerSpectrum) MaxPower() float64 {
	if len(ps.power) == 0 {
		return 0
	}
	return floats.Max(ps.power)
}

// LocalPeaks returns the frame's local peaks in ascending bin order.
func (ps *PowerSpectrum) LocalPeaks() []Peak {
	out := make([]Peak, len(ps.peaks))
	copy(out, ps.peaks)
	return out
}
