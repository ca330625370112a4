// Package config loads semtweets settings from a YAML file, a .env file and
// SEMTWEETS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "semtweets.yaml"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	DataDir   string          `yaml:"data_dir"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Report    ReportConfig    `yaml:"report"`
	Collector CollectorConfig `yaml:"collector"`
}

// PipelineConfig holds clustering parameters.
type PipelineConfig struct {
	LatentDims    int `yaml:"latent_dims"`
	Clusters      int `yaml:"clusters"`
	MaxIterations int `yaml:"max_iterations"`
	// Seed fixes the random centroid initialization; nil means time-seeded.
	Seed       *int64 `yaml:"seed,omitempty"`
	Workers    int    `yaml:"workers"`
	Keywords   int    `yaml:"keywords"`
	MinLength  int    `yaml:"min_token_length"`
	Stopwords  string `yaml:"stopwords,omitempty"`
	SampleSize int    `yaml:"sample_size"`
}

// ReportConfig holds output settings for the cluster command.
type ReportConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// CollectorConfig holds HTTP listener settings.
type CollectorConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// Load reads the config file at path, loads .env from the working directory,
// applies SEMTWEETS_* overrides and fills defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SEMTWEETS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SEMTWEETS_COLLECTOR_ADDR"); v != "" {
		cfg.Collector.Addr = v
	}
	if v := os.Getenv("SEMTWEETS_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEMTWEETS_DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	if v := os.Getenv("SEMTWEETS_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SEMTWEETS_SEED: %w", err)
		}
		cfg.Pipeline.Seed = &n
	}
	return nil
}
