// Package config loads tool configuration from .cfgdb/config.json with
// sensible defaults when no file exists.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete cfgdb configuration
type Config struct {
	Version      int    `json:"version" mapstructure:"version"`
	DatabasePath string `json:"databasePath" mapstructure:"databasePath"`

	Trim    TrimConfig    `json:"trim" mapstructure:"trim"`
	Graph   GraphConfig   `json:"graph" mapstructure:"graph"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// TrimConfig tunes the trim analysis workflow
type TrimConfig struct {
	BatchSize int `json:"batchSize" mapstructure:"batchSize"`
}

// GraphConfig tunes hierarchy graph construction
type GraphConfig struct {
	DefaultDepth    int      `json:"defaultDepth" mapstructure:"defaultDepth"`
	ExcludePatterns []string `json:"excludePatterns" mapstructure:"excludePatterns"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:      1,
		DatabasePath: "cfgdb.sqlite",
		Trim: TrimConfig{
			BatchSize: 1000,
		},
		Graph: GraphConfig{
			DefaultDepth:    10,
			ExcludePatterns: []string{},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <dir>/.cfgdb/config.json.
// A missing file yields the defaults.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("databasePath", "cfgdb.sqlite")
	v.SetDefault("trim.batchSize", 1000)
	v.SetDefault("graph.defaultDepth", 10)
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, ".cfgdb"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <dir>/.cfgdb/config.json
func (c *Config) Save(dir string) error {
	configDir := filepath.Join(dir, ".cfgdb")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("databasePath must not be empty")
	}
	if c.Trim.BatchSize < 0 {
		return fmt.Errorf("trim.batchSize must not be negative")
	}
	if c.Graph.DefaultDepth < 0 {
		return fmt.Errorf("graph.defaultDepth must not be negative")
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return fmt.Errorf("logging.format must be human or json, got %q", c.Logging.Format)
	}
	return nil
}
