//go:build js && wasm

package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorInvalidSignal
	ErrorTransformFailed
	ErrorNoHashPoints
)

// generateHashPoints(audioArray, sampleRate, channels[, {timeOffset, freqOffset}])
// returns {error: number, data: {name, sample_rate, points} | string}. The data
// object is a ready request body for POST /api/match/probes.
func generateHashPoints(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: audioArray, sampleRate, channels")
	}

	audioDataJS, sampleRateJS, channelsJS := args[0], args[1], args[2]
	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array or Float64Array")
	}
	if sampleRateJS.Type() != js.TypeNumber || channelsJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate and channels must be numbers")
	}

	sampleRate := sampleRateJS.Float()
	channels := channelsJS.Int()
	if channels < 1 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid channel count: %d", channels))
	}

	cfg := fingerprint.DefaultExtractorConfig()
	if len(args) > 3 && args[3].Type() == js.TypeObject {
		if v := args[3].Get("timeOffset"); v.Type() == js.TypeNumber {
			cfg.TimeOffset = v.Int()
		}
		if v := args[3].Get("freqOffset"); v.Type() == js.TypeNumber {
			cfg.FreqOffset = v.Int()
		}
	}
	extractor, err := fingerprint.NewExtractor(cfg)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	length := audioDataJS.Length()
	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := audioDataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("audioArray element %d is not a number", i))
		}
		samples[i] = val.Float()
	}

	sig := fingerprint.Signal{Name: "browser", SampleRate: sampleRate, Samples: downmix(samples, channels)}
	points, err := extractor.ExtractSignal(sig)
	switch {
	case errors.Is(err, fingerprint.ErrTransformFailure):
		return makeErrorResponse(ErrorTransformFailed, fmt.Sprintf("Audio too short: need at least %d samples per channel", fingerprint.FrameSize))
	case err != nil:
		return makeErrorResponse(ErrorInvalidSignal, err.Error())
	case len(points) == 0:
		return makeErrorResponse(ErrorNoHashPoints, "No hash points found (audio may be silent)")
	}

	pointArray := js.Global().Get("Array").New(len(points))
	for i, p := range points {
		obj := js.Global().Get("Object").New()
		obj.Set("dt", p.Dt)
		obj.Set("f1", p.FirstFrequency)
		obj.Set("f2", p.SecondFrequency)
		obj.Set("anchor", p.Anchor)
		pointArray.SetIndex(i, obj)
	}

	data := js.Global().Get("Object").New()
	data.Set("name", sig.Name)
	data.Set("sample_rate", sampleRate)
	data.Set("points", pointArray)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

// downmix averages interleaved channels into one; a trailing partial
// frame is dropped.
func downmix(interleaved []float64, channels int) []float64 {
	if channels == 1 {
		return interleaved
	}
	mono := make([]float64, len(interleaved)/channels)
	for i := range mono {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, format string, args ...any) {
		if !console.IsUndefined() {
			console.Call(method, fmt.Sprintf(format, args...))
		}
	}

	js.Global().Set("generateHashPoints", js.FuncOf(generateHashPoints))
	logf("log", "📝 generateHashPoints registered (frame size %d)", fingerprint.FrameSize)

	window := js.Global().Get("window")
	if window.IsUndefined() {
		logf("error", "❌ window object is undefined!")
	} else {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
		logf("log", "✅ AcousticIndex WASM module loaded and ready")
	}

	select {}
}
