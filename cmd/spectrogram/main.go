// Command spectrogram renders PNG spectrograms with the fingerprint's global
// peaks overlaid, for inspecting what the index keys on.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/audio"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
	"github.com/himanishpuri/AcousticIndex/pkg/logger"
	"github.com/himanishpuri/AcousticIndex/pkg/utils"
)

func main() {
	inputDir := flag.String("in", "testdata", "Directory of audio files")
	outputDir := flag.String("out", "spectrograms", "Directory for PNG output")
	tempDir := flag.String("temp", os.TempDir(), "Scratch directory for ffmpeg conversion")
	scale := flag.Int("scale", 4, "Pixels per analysis frame")
	flag.Parse()

	log := logger.GetLogger().Named("spectrogram")

	if err := utils.MakeDir(*outputDir); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	ctx := context.Background()
	var rendered int
	err := filepath.WalkDir(*inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !utils.IsAudioFile(path) {
			return nil
		}

		sig, err := audio.LoadSignal(ctx, path, *tempDir, audio.ConvertWAVConfig{})
		if err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			return nil
		}
		spec, err := fingerprint.NewSpectrogram(sig)
		if err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			return nil
		}

		outputPath := filepath.Join(*outputDir, utils.BaseName(path)+".png")
		if err := savePNG(sig, spec, *scale, outputPath); err != nil {
			log.Errorf("Failed to save %s: %v", outputPath, err)
			return nil
		}
		log.Infof("%s: %d frames, %d peaks -> %s", path, spec.NumFrames(), len(spec.Peaks()), outputPath)
		rendered++
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to walk %s: %v", *inputDir, err)
	}

	fmt.Printf("Rendered %d spectrograms\n", rendered)
}
