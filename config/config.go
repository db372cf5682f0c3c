// Package config loads CLI settings from defaults, an optional YAML file and
// the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"museum/solver"
)

type Config struct {
	// StatePath is the roster document loaded at startup and written by save.
	StatePath string `yaml:"state_path"`
	// MaxStates caps memoized search states per solve. Zero means no cap.
	MaxStates int `yaml:"max_states"`
	// SolveTimeout bounds one solve. Zero means no deadline.
	SolveTimeout time.Duration `yaml:"solve_timeout"`
}

func Default() Config {
	return Config{
		StatePath: DefaultStatePath(),
	}
}

// DefaultStatePath is state.json under the user config directory, or under
// .museum in the working directory when there is none.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".museum", "state.json")
	}
	return filepath.Join(dir, "museum", "state.json")
}

// DefaultPath is where Load looks when no config file is named.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "museum", "config.yaml")
}

// Load builds a Config from defaults, the YAML file at path and MUSEUM_*
// environment variables. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := loadEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv("MUSEUM_STATE"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("MUSEUM_MAX_STATES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MUSEUM_MAX_STATES: %w", err)
		}
		cfg.MaxStates = n
	}
	if v := os.Getenv("MUSEUM_SOLVE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MUSEUM_SOLVE_TIMEOUT: %w", err)
		}
		cfg.SolveTimeout = d
	}
	return nil
}

func (c Config) Validate() error {
	if c.StatePath == "" {
		return errors.New("state_path is required")
	}
	if c.MaxStates < 0 {
		return fmt.Errorf("max_states must be at least 0, got %d", c.MaxStates)
	}
	if c.SolveTimeout < 0 {
		return fmt.Errorf("solve_timeout must be at least 0, got %s", c.SolveTimeout)
	}
	return nil
}

func (c Config) Params() solver.Params {
	return solver.Params{MaxStates: c.MaxStates}
}
