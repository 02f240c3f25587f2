package acousticindex

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

// FileConfig is the on-disk TOML configuration. Zero values keep defaults.
type FileConfig struct {
	DBPath        string                      `toml:"db_path"`
	TempDir       string                      `toml:"temp_dir"`
	LibraryDir    string                      `toml:"library_dir"`
	SampleRate    int                         `toml:"sample_rate"`
	Workers       int                         `toml:"workers"`
	MaxCandidates int                         `toml:"max_candidates"`
	Fingerprint   fingerprint.ExtractorConfig `toml:"fingerprint"`
}

// DefaultFileConfig mirrors the built-in defaults.
func DefaultFileConfig() FileConfig {
	d := defaultConfig()
	return FileConfig{
		DBPath:        d.DBPath,
		LibraryDir:    d.LibraryDir,
		SampleRate:    d.SampleRate,
		MaxCandidates: d.MaxCandidates,
		Fingerprint:   d.Extractor,
	}
}

// LoadConfigFile decodes and validates a TOML config file.
func LoadConfigFile(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	var fc FileConfig
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &fc, nil
}

func (fc *FileConfig) Validate() error {
	if fc.SampleRate < 0 {
		return fmt.Errorf("sample_rate must not be negative, got %d", fc.SampleRate)
	}
	if fc.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", fc.Workers)
	}
	if fc.MaxCandidates < 0 {
		return fmt.Errorf("max_candidates must not be negative, got %d", fc.MaxCandidates)
	}
	fp := fc.Fingerprint
	if fp.TimeOffset != 0 || fp.FreqOffset != 0 {
		if err := fc.extractorConfig().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// extractorConfig fills unset offsets with defaults.
func (fc *FileConfig) extractorConfig() fingerprint.ExtractorConfig {
	cfg := fc.Fingerprint
	if cfg.TimeOffset == 0 {
		cfg.TimeOffset = fingerprint.DefaultTimeOffset
	}
	if cfg.FreqOffset == 0 {
		cfg.FreqOffset = fingerprint.DefaultFreqOffset
	}
	return cfg
}

// Options converts the set fields into service options.
func (fc *FileConfig) Options() []Option {
	var opts []Option
	if fc.DBPath != "" {
		opts = append(opts, WithDBPath(fc.DBPath))
	}
	if fc.TempDir != "" {
		opts = append(opts, WithTempDir(fc.TempDir))
	}
	if fc.LibraryDir != "" {
		opts = append(opts, WithLibraryDir(fc.LibraryDir))
	}
	if fc.SampleRate > 0 {
		opts = append(opts, WithSampleRate(fc.SampleRate))
	}
	if fc.Workers > 0 {
		opts = append(opts, WithWorkers(fc.Workers))
	}
	if fc.MaxCandidates > 0 {
		opts = append(opts, WithMaxCandidates(fc.MaxCandidates))
	}
	if fc.Fingerprint != (fingerprint.ExtractorConfig{}) {
		opts = append(opts, WithExtractorConfig(fc.extractorConfig()))
	}
	return opts
}

// WriteConfig encodes fc as TOML.
func WriteConfig(w io.Writer, fc FileConfig) error {
	return toml.NewEncoder(w).Encode(fc)
}
