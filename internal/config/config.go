// Package config loads service settings from environment variables, with
// optional .env support for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auxiliary table filenames under AUX_PATH. These are the names the
// station network ships, misspelling included.
const (
	ScalingTableFile     = "embrace_scaling_factors.csv"
	SlopeOffsetTableFile = "embrace_solpe_offset_factors.csv"
	StationTableFile     = "station_coordinates.csv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataPath   string
	AuxPath    string
	OutputPath string

	Stations  []string // canonical lowercase; empty means discover from the data tree
	YearStart int
	YearEnd   int // inclusive
	DOYStart  int
	DOYEnd    int // inclusive

	Workers         int
	CollisionPolicy string // "last" or "first"
	ExportFormat    string // "csv" or "parquet"
	ExportWithF     bool
	RunLogPath      string

	LogLevel        string
	LogFormat       string
	MetricsAddr     string // empty disables the metrics/health server
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	yearStart, err := intEnv("YEAR_START", 0)
	if err != nil {
		return nil, err
	}
	yearEnd, err := intEnv("YEAR_END", yearStart)
	if err != nil {
		return nil, err
	}
	doyStart, err := intEnv("DOY_START", 1)
	if err != nil {
		return nil, err
	}
	doyEnd, err := intEnv("DOY_END", 366)
	if err != nil {
		return nil, err
	}
	workers, err := intEnv("WORKERS", 4)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataPath:   os.Getenv("DATA_PATH"),
		AuxPath:    envOrDefault("AUX_PATH", "./aux_data"),
		OutputPath: os.Getenv("OUTPUT_PATH"),

		Stations:  parseStations(os.Getenv("STATIONS")),
		YearStart: yearStart,
		YearEnd:   yearEnd,
		DOYStart:  doyStart,
		DOYEnd:    doyEnd,

		Workers:         workers,
		CollisionPolicy: envOrDefault("COLLISION_POLICY", "last"),
		ExportFormat:    envOrDefault("EXPORT_FORMAT", "csv"),
		ExportWithF:     os.Getenv("EXPORT_WITH_F") == "true",
		RunLogPath:      envOrDefault("RUN_LOG", "iaga_conversion_logs.txt"),

		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DataPath == "" {
		return errors.New("DATA_PATH is required")
	}
	if c.OutputPath == "" {
		return errors.New("OUTPUT_PATH is required")
	}
	if c.YearStart == 0 {
		return errors.New("YEAR_START is required")
	}
	if c.YearEnd < c.YearStart {
		return errors.New("YEAR_END must not precede YEAR_START")
	}
	if c.DOYStart < 1 || c.DOYStart > 366 {
		return errors.New("DOY_START must be in 1..366")
	}
	if c.DOYEnd < c.DOYStart || c.DOYEnd > 366 {
		return errors.New("DOY_END must be in DOY_START..366")
	}
	if c.Workers < 1 {
		return errors.New("WORKERS must be at least 1")
	}
	if c.CollisionPolicy != "last" && c.CollisionPolicy != "first" {
		return fmt.Errorf("COLLISION_POLICY must be \"last\" or \"first\", got %q", c.CollisionPolicy)
	}
	if c.ExportFormat != "csv" && c.ExportFormat != "parquet" {
		return fmt.Errorf("EXPORT_FORMAT must be \"csv\" or \"parquet\", got %q", c.ExportFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// ScalingTablePath returns the scaling factor table location under AUX_PATH.
func (c *Config) ScalingTablePath() string {
	return filepath.Join(c.AuxPath, ScalingTableFile)
}

// SlopeOffsetTablePath returns the slope/offset table location under AUX_PATH.
func (c *Config) SlopeOffsetTablePath() string {
	return filepath.Join(c.AuxPath, SlopeOffsetTableFile)
}

// StationTablePath returns the station metadata table location under AUX_PATH.
func (c *Config) StationTablePath() string {
	return filepath.Join(c.AuxPath, StationTableFile)
}

func parseStations(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
