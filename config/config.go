package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/platoon/core/eventlog"
	"github.com/kilianp07/platoon/core/metrics"
	"github.com/kilianp07/platoon/core/platoon"
)

type Config struct {
	Simulator SimulatorConfig `json:"simulator"`
	Platoon   platoon.Config  `json:"platoon"`
	Metrics   metrics.Config  `json:"metrics"`
	EventLog  eventlog.Config `json:"eventlog"`
	Service   ServiceConfig   `json:"service"`
}

// Load reads the configuration file at path. Environment variables prefixed
// with K_ override file values; "__" separates nested keys, e.g.
// K_PLATOON__MAX_PLATOON_GAP=20.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Simulator.SetDefaults()
	c.Platoon.SetDefaults()
	c.EventLog.SetDefaults()
	c.Service.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Simulator.Validate(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	if err := c.Platoon.Validate(); err != nil {
		return fmt.Errorf("platoon: %w", err)
	}
	if err := c.EventLog.Validate(); err != nil {
		return fmt.Errorf("eventlog: %w", err)
	}
	if err := c.Service.Validate(); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	return nil
}
