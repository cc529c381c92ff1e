// Package config loads and validates the triage daemon configuration
// from a YAML file, applying defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Filters narrows which tracker items a snapshot includes. The queue
// pipeline treats this as an opaque pass-through to the fetcher.
type Filters struct {
	// Labels restricts snapshots to items carrying at least one of
	// these labels. Empty means no label filter.
	Labels []string `yaml:"labels"`
	// ExcludeAuthors drops items authored by these logins (bots etc.)
	ExcludeAuthors []string `yaml:"exclude_authors"`
}

// Poll configures the poll scheduler
type Poll struct {
	// IntervalSeconds is the poll cadence in seconds. Converted to a
	// duration internally.
	IntervalSeconds int     `yaml:"interval_seconds"`
	Filters         Filters `yaml:"filters"`
}

// Repo names the repository being triaged
type Repo struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

// Slug returns "owner/name"
func (r Repo) Slug() string {
	return r.Owner + "/" + r.Name
}

// Analysis configures the external analysis service clients
type Analysis struct {
	// Model is the model name passed to the claude CLI and the API client
	Model string `yaml:"model"`
	// Command overrides the claude CLI binary name (tests, wrappers)
	Command string `yaml:"command"`
}

// Log configures logging output
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the full daemon configuration
type Config struct {
	Repo     Repo     `yaml:"repo"`
	Poll     Poll     `yaml:"poll"`
	Analysis Analysis `yaml:"analysis"`
	Log      Log      `yaml:"log"`
	// DBPath is where conversation and label audit history is stored
	DBPath string `yaml:"db_path"`
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".triage.yaml"
	}
	return filepath.Join(home, ".config", "triage", "config.yaml")
}

// Load reads and validates a config file. A missing file is not an
// error: defaults are returned so the CLI works out of the box.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.setDefaults()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Poll.IntervalSeconds == 0 {
		c.Poll.IntervalSeconds = 60
	}
	if c.Analysis.Model == "" {
		c.Analysis.Model = "claude-sonnet-4-5-20250929"
	}
	if c.Analysis.Command == "" {
		c.Analysis.Command = "claude"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Log.File = filepath.Join(home, ".local", "share", "triage", "triage.log")
		} else {
			c.Log.File = "triage.log"
		}
	}
	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.DBPath = filepath.Join(home, ".local", "share", "triage", "triage.db")
		} else {
			c.DBPath = "triage.db"
		}
	}
}

func (c *Config) validate() error {
	if c.Poll.IntervalSeconds < 0 {
		return fmt.Errorf("poll.interval_seconds cannot be negative (got %d)", c.Poll.IntervalSeconds)
	}
	if (c.Repo.Owner == "") != (c.Repo.Name == "") {
		return fmt.Errorf("repo.owner and repo.name must be set together")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %s", c.Log.Level)
	}
	return nil
}
