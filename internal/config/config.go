// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Libraries LibrariesConfig `toml:"libraries"`
	Clients   []ClientConfig  `toml:"clients"`
}

type ServerConfig struct {
	LogLevel     string   `toml:"log_level"`
	PollInterval Duration `toml:"poll_interval"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LibrariesConfig holds the root directory for each media kind.
type LibrariesConfig struct {
	Movies LibraryConfig `toml:"movies"`
	Series LibraryConfig `toml:"series"`
	Music  LibraryConfig `toml:"music"`
	Books  LibraryConfig `toml:"books"`
}

type LibraryConfig struct {
	Root string `toml:"root"`
}

// ClientConfig describes one download client. When several clients are
// enabled, new grabs go to the one with the lowest priority value.
type ClientConfig struct {
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	Priority   int    `toml:"priority"`
	Enabled    bool   `toml:"enabled"`
	RemotePath string `toml:"remote_path"`
	LocalPath  string `toml:"local_path"`
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.PollInterval == 0 {
		cfg.Server.PollInterval = Duration(time.Minute)
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/grabarr.db"
	}

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match // Leave unchanged if not found
	})
}
