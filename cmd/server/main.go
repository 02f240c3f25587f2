//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex"
	"github.com/himanishpuri/AcousticIndex/pkg/logger"
)

var (
	port           int
	configPath     string
	dbPath         string
	tempDir        string
	libraryDir     string
	sampleRate     int
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&configPath, "config", os.Getenv("ACOUSTIC_CONFIG"), "TOML configuration file")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("ACOUSTIC_DB_PATH", "acousticindex.sqlite3"), "Path to SQLite catalog")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("ACOUSTIC_TEMP_DIR", os.TempDir()), "Temporary directory")
	flag.StringVar(&libraryDir, "library", getEnvOrDefault("ACOUSTIC_LIBRARY_DIR", "library"), "Directory for normalized track copies")
	flag.IntVar(&sampleRate, "rate", 44100, "Audio sample rate")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseOrigins(s string) []string {
	if s == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func main() {
	flag.Parse()
	log := logger.GetLogger().Named("server")

	var opts []acousticindex.Option
	if configPath != "" {
		fc, err := acousticindex.LoadConfigFile(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		opts = append(opts, fc.Options()...)
	}
	// explicit flags win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			opts = append(opts, acousticindex.WithDBPath(dbPath))
		case "temp":
			opts = append(opts, acousticindex.WithTempDir(tempDir))
		case "library":
			opts = append(opts, acousticindex.WithLibraryDir(libraryDir))
		case "rate":
			opts = append(opts, acousticindex.WithSampleRate(sampleRate))
		}
	})
	if configPath == "" {
		opts = append(opts,
			acousticindex.WithDBPath(dbPath),
			acousticindex.WithTempDir(tempDir),
			acousticindex.WithLibraryDir(libraryDir),
			acousticindex.WithSampleRate(sampleRate),
		)
	}

	service, err := acousticindex.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		SampleRate:     sampleRate,
		AllowedOrigins: parseOrigins(allowedOrigins),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(service, config)
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}
