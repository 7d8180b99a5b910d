package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvBinary   = "SYSBENCHKIT_BINARY"
	EnvThreads  = "SYSBENCHKIT_THREADS"
	EnvTimeout  = "SYSBENCHKIT_TIMEOUT"
	EnvDBDriver = "SYSBENCHKIT_DB_DRIVER"
	EnvDBDSN    = "SYSBENCHKIT_DB_DSN"
	EnvLogLevel = "SYSBENCHKIT_LOG_LEVEL"
	EnvHome     = "SYSBENCHKIT_HOME"
)

// HomeDir returns the state directory: $SYSBENCHKIT_HOME or ~/.sysbenchkit.
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".sysbenchkit"), nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a configuration from the given YAML file path, then
// applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault loads .env from the working directory if present, then the
// first config file found in: ./sysbenchkit.yaml, <home>/config.yaml.
// Without a config file it returns the built-in defaults.
func LoadDefault() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	candidates := []string{"sysbenchkit.yaml"}
	if dir, err := HomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	slog.Debug("no config file found, using defaults", "searched", candidates)
	cfg := &Config{}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// TimeoutDuration parses Sysbench.Timeout, falling back to fallback.
func (c *Config) TimeoutDuration(fallback time.Duration) time.Duration {
	if c.Sysbench.Timeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.Sysbench.Timeout)
	if err != nil {
		return fallback
	}
	return d
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBinary); v != "" {
		cfg.Sysbench.Binary = v
	}
	if v := os.Getenv(EnvThreads); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sysbench.DefaultThreads = n
		} else {
			slog.Warn("ignoring invalid thread count", "env", EnvThreads, "value", v)
		}
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		cfg.Sysbench.Timeout = v
	}
	if v := os.Getenv(EnvDBDriver); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// applyDefaults fills every unset field with its built-in value.
func applyDefaults(cfg *Config) {
	s := &cfg.Sysbench
	if s.Binary == "" {
		s.Binary = "sysbench"
	}
	if s.Timeout == "" {
		s.Timeout = "10m"
	}
	if s.DefaultThreads == 0 {
		s.DefaultThreads = 1
	}

	home, _ := HomeDir()
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite3" && home != "" {
		cfg.Database.DSN = filepath.Join(home, "sysbenchkit.db")
	}
	if cfg.Artifacts.Dir == "" && home != "" {
		cfg.Artifacts.Dir = filepath.Join(home, "runs")
	}
	cfg.Artifacts.Dir = expandHome(cfg.Artifacts.Dir)

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
