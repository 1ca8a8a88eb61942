package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration for the viewer.
type Config struct {
	Driver   string         `yaml:"driver"` // "sqlite" or "postgres"
	DSN      string         `yaml:"dsn"`
	Table    string         `yaml:"table"`
	RowKey   string         `yaml:"row_key"`
	PageSize int            `yaml:"page_size"`
	Columns  []ColumnConfig `yaml:"columns"`
	PinLeft  []string       `yaml:"pin_left"`
	PinRight []string       `yaml:"pin_right"`
}

// ColumnConfig declares one column's sizing.
type ColumnConfig struct {
	Key   string  `yaml:"key"`
	Width string  `yaml:"width"`
	Flex  float64 `yaml:"flex"`
	Min   string  `yaml:"min"`
	Max   string  `yaml:"max"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	case "":
		c.Driver = "sqlite"
	default:
		return fmt.Errorf("driver must be sqlite or postgres, got %q", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	return nil
}
