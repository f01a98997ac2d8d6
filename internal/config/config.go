// Package config loads process configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Redis configures the optional Redis backend for channels and flows.
type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Email configures outbound mail.
type Email struct {
	From string `yaml:"from"`
}

// Config is the full process configuration.
type Config struct {
	Listen      string        `yaml:"listen"`
	HTTPListen  string        `yaml:"http_listen"`
	FlowsDir    string        `yaml:"flows_dir"`
	DefaultFlow string        `yaml:"default_flow"`
	LogLevel    string        `yaml:"log_level"`
	MaxSteps    int           `yaml:"max_steps"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	Redis       Redis         `yaml:"redis"`
	Email       Email         `yaml:"email"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:      ":4573",
		HTTPListen:  ":8080",
		FlowsDir:    "flows",
		DefaultFlow: "default",
		LogLevel:    "info",
		MaxSteps:    512,
		HTTPTimeout: 10 * time.Second,
		Redis: Redis{
			Addr: "localhost:6379",
		},
	}
}

// Load reads path, falling back to defaults when path is empty or the file
// does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Run on defaults.
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("VOXFLOW_LISTEN", &cfg.Listen)
	setString("VOXFLOW_HTTP_LISTEN", &cfg.HTTPListen)
	setString("VOXFLOW_FLOWS_DIR", &cfg.FlowsDir)
	setString("VOXFLOW_DEFAULT_FLOW", &cfg.DefaultFlow)
	setString("VOXFLOW_LOG_LEVEL", &cfg.LogLevel)
	setString("VOXFLOW_REDIS_ADDR", &cfg.Redis.Addr)
	setString("VOXFLOW_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("VOXFLOW_EMAIL_FROM", &cfg.Email.From)

	if v, ok := os.LookupEnv("VOXFLOW_REDIS_ENABLED"); ok {
		cfg.Redis.Enabled, _ = strconv.ParseBool(v)
	}
	if v, ok := os.LookupEnv("VOXFLOW_REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v, ok := os.LookupEnv("VOXFLOW_MAX_STEPS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSteps = n
		}
	}
	if v, ok := os.LookupEnv("VOXFLOW_HTTP_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		}
	}
}

// SlogLevel maps the configured level name onto slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
