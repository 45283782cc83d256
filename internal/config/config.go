// Package config loads radar.yaml with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Scan struct {
		Concurrency int           `yaml:"concurrency"`
		RuleTimeout time.Duration `yaml:"rule_timeout"`
		// Filter is a CEL expression selecting templates.
		Filter string `yaml:"filter"`
	} `yaml:"scan"`
	Sandbox struct {
		MaxSteps uint64 `yaml:"max_steps"`
	} `yaml:"sandbox"`
	Ingest struct {
		SkipValidation bool `yaml:"skip_validation"`
	} `yaml:"ingest"`
	Templates struct {
		Dir string `yaml:"dir"`
	} `yaml:"templates"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Scan.RuleTimeout = 30 * time.Second
	cfg.Sandbox.MaxSteps = 10_000_000
	cfg.Templates.Dir = "templates"
	return cfg
}

// Load reads path over the defaults, then applies RADAR_* environment
// variables (after loading .env, if present). A missing file at path is
// only an error when path was set explicitly.
func Load(path string, explicit bool) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// 3. Override with Environment Variables if present
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("RADAR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RADAR_SCAN_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RADAR_SCAN_CONCURRENCY: %w", err)
		}
		cfg.Scan.Concurrency = n
	}
	if v := os.Getenv("RADAR_SCAN_RULE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RADAR_SCAN_RULE_TIMEOUT: %w", err)
		}
		cfg.Scan.RuleTimeout = d
	}
	if v := os.Getenv("RADAR_SCAN_FILTER"); v != "" {
		cfg.Scan.Filter = v
	}
	if v := os.Getenv("RADAR_SANDBOX_MAX_STEPS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("RADAR_SANDBOX_MAX_STEPS: %w", err)
		}
		cfg.Sandbox.MaxSteps = n
	}
	if v := os.Getenv("RADAR_INGEST_SKIP_VALIDATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RADAR_INGEST_SKIP_VALIDATION: %w", err)
		}
		cfg.Ingest.SkipValidation = b
	}
	if v := os.Getenv("RADAR_TEMPLATES_DIR"); v != "" {
		cfg.Templates.Dir = v
	}
	return nil
}
