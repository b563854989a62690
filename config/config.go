// Package config loads the server configuration from a YAML file and
// applies defaults. Command-line flags in cmd/server override it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" for an in-memory DB.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	// JWTSecret is the HMAC key bearer tokens are verified with.
	JWTSecret string `yaml:"jwt_secret"`
}

type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// Timezone is the civil calendar the accrual triggers fire in.
	Timezone string `yaml:"timezone"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Database:  DatabaseConfig{Path: "digileave.db"},
		Scheduler: SchedulerConfig{Enabled: true, Timezone: "Europe/Sofia"},
	}
}

// Load reads the configuration file at path on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("config: server.port must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path must be set")
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Europe/Sofia"
	}
	return nil
}
