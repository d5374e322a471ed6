// Package config reads process configuration from the environment, with an
// optional .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Server  ServerConfig
	Content ContentConfig
	View    ViewConfig
	Store   StoreConfig
	Logging LoggingConfig
	SMTP    SMTPConfig
	Admin   AdminConfig
}

type ServerConfig struct {
	Port      string
	GinMode   string
	StaticDir string
	ImagesDir string
}

type ContentConfig struct {
	// Dir is served at /data and read by the loader unless BaseURL is set.
	Dir         string
	BaseURL     string
	LoadTimeout time.Duration
	Watch       bool
}

type ViewConfig struct {
	RevealThreshold float64
	SessionTTL      time.Duration
}

type StoreConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
	File  string
}

type SMTPConfig struct {
	Host    string
	Port    string
	User    string
	Pass    string
	ToEmail string
}

type AdminConfig struct {
	Username string
	Password string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "8080"),
			GinMode:   getEnv("GIN_MODE", "release"),
			StaticDir: getEnv("STATIC_DIR", "./static"),
			ImagesDir: getEnv("IMAGES_DIR", "./images"),
		},
		Content: ContentConfig{
			Dir:         getEnv("DATA_DIR", "./data"),
			BaseURL:     getEnv("DATA_BASE_URL", ""),
			LoadTimeout: getEnvDuration("LOAD_TIMEOUT", 10*time.Second),
			Watch:       getEnvBool("WATCH_DATA", false),
		},
		View: ViewConfig{
			RevealThreshold: getEnvFloat("REVEAL_THRESHOLD", 0.8),
			SessionTTL:      getEnvDuration("SESSION_TTL", 30*time.Minute),
		},
		Store: StoreConfig{
			Path: getEnv("DB_PATH", "folio.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		SMTP: SMTPConfig{
			Host:    getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:    getEnv("SMTP_PORT", "587"),
			User:    getEnv("SMTP_USER", ""),
			Pass:    getEnv("SMTP_PASS", ""),
			ToEmail: getEnv("TO_EMAIL", ""),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("PORT is required")
	}
	if c.Content.Dir == "" && c.Content.BaseURL == "" {
		return errors.New("DATA_DIR or DATA_BASE_URL is required")
	}
	if c.Content.LoadTimeout <= 0 {
		return errors.New("LOAD_TIMEOUT must be positive")
	}
	if c.View.RevealThreshold <= 0 || c.View.RevealThreshold > 1 {
		return errors.Errorf("REVEAL_THRESHOLD must be in (0, 1], got %v", c.View.RevealThreshold)
	}
	return nil
}

// SMTPConfigured reports whether contact mail can be sent.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.User != "" && c.SMTP.Pass != "" && c.SMTP.ToEmail != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
