package main

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

var (
	background = spectrogram.ParseColor("000000")
	peakColor  = spectrogram.ParseColor("ff2020")
)

// savePNG draws the magnitude spectrogram of sig, scale pixels wide per
// analysis frame, marks every global peak and writes the image to path.
func savePNG(sig fingerprint.Signal, spec *fingerprint.Spectrogram, scale int, path string) error {
	if scale < 1 {
		scale = 1
	}
	frames := spec.NumFrames()
	img := spectrogram.NewImage128(image.Rect(0, 0, frames*scale, fingerprint.Bins))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	// Hamming window, FFT, linear magnitude
	spectrogram.Drawfft(img, sig.Samples[:frames*fingerprint.FrameSize],
		uint32(sig.SampleRate), uint32(fingerprint.Bins), false, false, true, false)

	markPeaks(img, spec.Peaks(), scale)
	return spectrogram.SavePng(img, path)
}

// peakPixel maps a peak to image coordinates, bin 0 at the bottom.
func peakPixel(p fingerprint.Peak, scale, height int) image.Point {
	return image.Pt(p.Time*scale+scale/2, height-1-p.Frequency)
}

func markPeaks(img draw.Image, peaks []fingerprint.Peak, scale int) {
	height := img.Bounds().Dy()
	for _, p := range peaks {
		markPeak(img, peakPixel(p, scale, height), peakColor)
	}
}

// markPeak draws a small cross clipped to the image bounds.
func markPeak(img draw.Image, at image.Point, c color.Color) {
	b := img.Bounds()
	for d := -2; d <= 2; d++ {
		for _, pt := range []image.Point{at.Add(image.Pt(d, 0)), at.Add(image.Pt(0, d))} {
			if pt.In(b) {
				img.Set(pt.X, pt.Y, c)
			}
		}
	}
}
