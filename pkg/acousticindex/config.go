package acousticindex

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

type Config struct {
	DBPath        string
	TempDir       string
	LibraryDir    string
	SampleRate    int
	Workers       int
	MaxCandidates int
	Extractor     fingerprint.ExtractorConfig
	Logger        Logger
	Catalog       Catalog
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithLibraryDir sets where normalized copies of indexed tracks are kept.
func WithLibraryDir(dir string) Option {
	return func(c *Config) {
		c.LibraryDir = dir
	}
}

// WithSampleRate sets the rate every input is resampled to before indexing.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithMaxCandidates(n int) Option {
	return func(c *Config) {
		c.MaxCandidates = n
	}
}

func WithExtractorConfig(cfg fingerprint.ExtractorConfig) Option {
	return func(c *Config) {
		c.Extractor = cfg
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithCatalog(catalog Catalog) Option {
	return func(c *Config) {
		c.Catalog = catalog
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:        "acousticindex.sqlite3",
		TempDir:       filepath.Join(os.TempDir(), "acousticindex"),
		LibraryDir:    "library",
		SampleRate:    44100,
		Workers:       runtime.NumCPU(),
		MaxCandidates: 5,
		Extractor:     fingerprint.DefaultExtractorConfig(),
	}
}
