package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Data directory for the default database and config file
	DataDir string `mapstructure:"data_dir"`

	Store  StoreConfig  `mapstructure:"store"`
	Import ImportConfig `mapstructure:"import"`
}

// StoreConfig selects and parameterizes the storage backend
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"

	// SQLite settings
	Path string `mapstructure:"path"`

	// PostgreSQL settings
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ImportConfig controls dataset ingestion
type ImportConfig struct {
	// Concurrency is the worker count; zero or less means NumCPU*2
	Concurrency int `mapstructure:"concurrency"`
}

// Default returns default configuration
func Default() *Config {
	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	// Use ~/.emlkit for data directory
	dataDir := filepath.Join(homeDir, ".emlkit")

	return &Config{
		DataDir: dataDir,
		Store: StoreConfig{
			Driver:  "sqlite",
			Path:    filepath.Join(dataDir, "emlkit.db"),
			Host:    "localhost",
			Port:    5432,
			User:    "emlkit",
			DBName:  "emlkit",
			SSLMode: "disable",
		},
	}
}

// Load reads a YAML config file and merges it over the defaults. An empty
// path means the default location; a missing file just yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(Default().DataDir, "config.yaml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
