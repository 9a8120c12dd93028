// Package config loads meter bindings and router settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rkotulan/wmbus-parser/internal/router"
)

// Config is the root of the YAML document.
type Config struct {
	RawLogLevel string  `yaml:"raw_log_level"`
	Meters      []Meter `yaml:"meters"`
}

// Meter describes one meter binding.
type Meter struct {
	Name    string `yaml:"name"`
	MeterID string `yaml:"meter_id"`
	Driver  string `yaml:"driver"`
	Publish string `yaml:"publish"` // log | json
}

var errNoMeters = errors.New("config: no meters defined")

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document, normalising meter ids to
// upper case and defaulting names and publishers.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RawLog returns the parsed raw log level.
func (c *Config) RawLog() router.RawLogLevel {
	level, _ := router.ParseRawLogLevel(c.RawLogLevel)
	return level
}

func (c *Config) validate() error {
	if _, err := router.ParseRawLogLevel(c.RawLogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(c.Meters) == 0 {
		return errNoMeters
	}
	seen := make(map[string]int, len(c.Meters))
	for i := range c.Meters {
		m := &c.Meters[i]
		id, err := router.NormalizeID(m.MeterID)
		if err != nil {
			return fmt.Errorf("config: meters[%d]: %w", i, err)
		}
		if j, dup := seen[id]; dup {
			return fmt.Errorf("config: meters[%d]: %w: %s also used by meters[%d]", i, router.ErrDuplicateMeter, id, j)
		}
		seen[id] = i
		m.MeterID = id
		if m.Driver == "" {
			return fmt.Errorf("config: meters[%d] (%s): driver is required", i, id)
		}
		if m.Name == "" {
			m.Name = id
		}
		switch m.Publish {
		case "":
			m.Publish = "log"
		case "log", "json":
		default:
			return fmt.Errorf("config: meters[%d] (%s): unknown publish %q", i, id, m.Publish)
		}
	}
	return nil
}
