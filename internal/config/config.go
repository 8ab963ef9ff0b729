package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the lifecycle service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	ModelMode    string
	ModelHTTPURL string
	ModelAPIKey  string

	SessionInactivityTimeout time.Duration
	JanitorInterval          time.Duration
	WatcherInterval          time.Duration

	BackupDir string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "trainvault"),
		AllowAnyOrigin:           false,
		DatabaseURL:              envTrimmed("DATABASE_URL"),
		ModelMode:                envOrDefault("MODEL_ADAPTER_MODE", "auto"),
		ModelHTTPURL:             envTrimmed("MODEL_HTTP_URL"),
		ModelAPIKey:              envTrimmed("MODEL_API_KEY"),
		BackupDir:                envOrDefault("APP_BACKUP_DIR", "backups"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
		JanitorInterval:          10 * time.Second,
		WatcherInterval:          10 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("APP_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.WatcherInterval, err = durationFromEnv("APP_WATCHER_INTERVAL", cfg.WatcherInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.JanitorInterval < time.Second {
		return Config{}, fmt.Errorf("APP_JANITOR_INTERVAL must be at least 1s")
	}
	if cfg.WatcherInterval < time.Second {
		return Config{}, fmt.Errorf("APP_WATCHER_INTERVAL must be at least 1s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
