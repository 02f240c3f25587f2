package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex"
	"github.com/himanishpuri/AcousticIndex/pkg/logger"
)

// cliContext carries the global flags shared by every command.
type cliContext struct {
	configPath string
	dbPath     string
	libraryDir string
	tempDir    string
	sampleRate int
	workers    int
	verbose    bool
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// options layers the config file, then explicitly set flags.
func (c *cliContext) options(cmd *cobra.Command) ([]acousticindex.Option, error) {
	var opts []acousticindex.Option
	if c.configPath != "" {
		fc, err := acousticindex.LoadConfigFile(c.configPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fc.Options()...)
	}

	flags := cmd.Flags()
	if c.configPath == "" || flags.Changed("db") || os.Getenv("ACOUSTIC_DB_PATH") != "" {
		opts = append(opts, acousticindex.WithDBPath(c.dbPath))
	}
	if c.configPath == "" || flags.Changed("library") || os.Getenv("ACOUSTIC_LIBRARY_DIR") != "" {
		opts = append(opts, acousticindex.WithLibraryDir(c.libraryDir))
	}
	if flags.Changed("temp") || os.Getenv("ACOUSTIC_TEMP_DIR") != "" {
		opts = append(opts, acousticindex.WithTempDir(c.tempDir))
	}
	if flags.Changed("rate") {
		opts = append(opts, acousticindex.WithSampleRate(c.sampleRate))
	}
	if flags.Changed("workers") {
		opts = append(opts, acousticindex.WithWorkers(c.workers))
	}
	return opts, nil
}

// openService creates the service with the configured options
func (c *cliContext) openService(cmd *cobra.Command) (acousticindex.Service, error) {
	opts, err := c.options(cmd)
	if err != nil {
		return nil, err
	}
	svc, err := acousticindex.NewService(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

func newRootCommand() *cobra.Command {
	c := &cliContext{}

	rootCmd := &cobra.Command{
		Use:           "acousticindex",
		Short:         "Index audio tracks and identify unknown clips",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				logger.SetLevel(logger.DEBUG)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", os.Getenv("ACOUSTIC_CONFIG"), "TOML configuration file")
	flags.StringVar(&c.dbPath, "db", getEnvOrDefault("ACOUSTIC_DB_PATH", "acousticindex.sqlite3"), "Path to the SQLite catalog")
	flags.StringVar(&c.libraryDir, "library", getEnvOrDefault("ACOUSTIC_LIBRARY_DIR", "library"), "Directory for normalized track copies")
	flags.StringVar(&c.tempDir, "temp", getEnvOrDefault("ACOUSTIC_TEMP_DIR", os.TempDir()), "Directory for temporary conversion files")
	flags.IntVar(&c.sampleRate, "rate", 44100, "Sample rate for converted audio")
	flags.IntVar(&c.workers, "workers", 0, "Parallel spectrum workers (default: number of CPUs)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newIndexCommand(c),
		newMatchCommand(c),
		newListCommand(c),
		newDeleteCommand(c),
		newStatsCommand(c),
		newConfigCommand(),
	)
	return rootCmd
}
