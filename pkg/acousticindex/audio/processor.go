package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
	"github.com/himanishpuri/AcousticIndex/pkg/utils"
)

const (
	DefaultSampleRate     = 44100
	defaultConvertTimeout = 2 * time.Minute
)

// ErrFFmpegMissing is returned when a conversion is needed but ffmpeg is not on PATH.
var ErrFFmpegMissing = errors.New("ffmpeg not found in PATH")

type ConvertWAVConfig struct {
	SampleRate int
}

// FFmpegAvailable reports whether ffmpeg can be executed.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ConvertToMonoWAV transcodes any ffmpeg readable input into a 16-bit mono
// WAV under outputDir and returns its path.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if !FFmpegAvailable() {
		return "", ErrFFmpegMissing
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultConvertTimeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	outputPath := filepath.Join(outputDir, uuid.NewString()+".wav")
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// LoadSignal reads path as a mono signal at cfg.SampleRate. WAV files
// already at that rate are decoded directly; anything else is converted
// through ffmpeg into scratchDir first. A zero SampleRate accepts a WAV at
// whatever rate it was recorded.
func LoadSignal(ctx context.Context, path, scratchDir string, cfg ConvertWAVConfig) (fingerprint.Signal, error) {
	if err := ctx.Err(); err != nil {
		return fingerprint.Signal{}, err
	}
	rate, isWAV := wavSampleRate(path)
	if isWAV && (cfg.SampleRate == 0 || rate == cfg.SampleRate) {
		return ReadWAV(path)
	}

	wavPath, err := ConvertToMonoWAV(ctx, path, scratchDir, cfg)
	if err != nil {
		if isWAV {
			return fingerprint.Signal{}, fmt.Errorf("resampling %s from %d Hz to %d Hz: %w", path, rate, cfg.SampleRate, err)
		}
		return fingerprint.Signal{}, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	sig, err := ReadWAV(wavPath)
	if err != nil {
		return fingerprint.Signal{}, err
	}
	sig.Name = utils.BaseName(path)
	return sig, nil
}
