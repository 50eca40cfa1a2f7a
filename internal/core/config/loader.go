package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.UnmarshalStrict([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*AppConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.Version == "" {
		cfg.API.Version = "v2"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = "memory"
	}
	if cfg.Journal.Retention == 0 {
		cfg.Journal.Retention = 7 * 24 * time.Hour
	}
	if cfg.Journal.MaxSize == 0 {
		cfg.Journal.MaxSize = 1000
	}
	if cfg.Journal.PruneInterval == 0 {
		cfg.Journal.PruneInterval = time.Hour
	}
	if cfg.Watch.Interval == 0 {
		cfg.Watch.Interval = 30 * time.Second
	}
	for i := range cfg.Watch.Pairs {
		if cfg.Watch.Pairs[i].Slippage == 0 {
			cfg.Watch.Pairs[i].Slippage = 0.5
		}
		if cfg.Watch.Pairs[i].Name == "" {
			p := cfg.Watch.Pairs[i]
			cfg.Watch.Pairs[i].Name = fmt.Sprintf("%s:%s->%s", p.ChainID, p.InputToken, p.OutputToken)
		}
	}
}
