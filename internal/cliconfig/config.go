// Package cliconfig loads the moviectl configuration file.
package cliconfig

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config is the moviectl configuration.
type Config struct {
	API    APIConfig    `toml:"api"`
	Browse BrowseConfig `toml:"browse"`
}

type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Token   string   `toml:"token"`
	Session string   `toml:"session"`
	Timeout Duration `toml:"timeout"`
}

type BrowseConfig struct {
	PageSize int `toml:"page_size"`
}

// Duration decodes TOML strings such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// LoadConfig reads path over the defaults, so missing keys keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if config.Browse.PageSize < 1 || config.Browse.PageSize > 100 {
		return nil, fmt.Errorf("browse.page_size must be between 1 and 100, got %d", config.Browse.PageSize)
	}
	return config, nil
}

// DefaultConfig returns the embedded example configuration.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the example configuration to path. It refuses to
// overwrite an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
