// Package config loads the portal configuration from an optional YAML
// file with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full portal configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig locates the Communication LTD REST backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the portal's own HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// SessionConfig controls session lifetimes and the cookie signer.
type SessionConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	RememberTTL  time.Duration `yaml:"remember_ttl"`
	CookieName   string        `yaml:"cookie_name"`
	CookieSecret string        `yaml:"cookie_secret"`
	// SecureCookies marks cookies Secure; leave off only for local
	// development over plain HTTP.
	SecureCookies bool `yaml:"secure_cookies"`
}

// RedisConfig is optional; with an empty Addr sessions stay in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:10000",
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Session: SessionConfig{
			TTL:         30 * time.Minute,
			RememberTTL: 30 * 24 * time.Hour,
			CookieName:  "portal_session",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the configuration from path (optional), then applies
// PORTAL_* environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORTAL_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("PORTAL_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PORTAL_COOKIE_SECRET"); v != "" {
		cfg.Session.CookieSecret = v
	}
	if v := os.Getenv("PORTAL_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = d
		}
	}
	if v := os.Getenv("PORTAL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PORTAL_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PORTAL_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("PORTAL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PORTAL_SECURE_COOKIES"); v == "true" {
		cfg.Session.SecureCookies = true
	}
}
