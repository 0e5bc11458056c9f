package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config keeps runtime settings for the service.
type Config struct {
	HTTPAddr        string        `toml:"http_addr"`
	DatabaseURL     string        `toml:"database_url"`
	StorageBackend  string        `toml:"storage_backend"`
	RedisAddr       string        `toml:"redis_addr"`
	SweepInterval   time.Duration `toml:"sweep_interval"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	LogLevel        string        `toml:"log_level"`
	LogFormat       string        `toml:"log_format"`

	TelegramToken  string        `toml:"telegram_token"`
	TelegramChatID int64         `toml:"telegram_chat_id"`
	ReportInterval time.Duration `toml:"report_interval"`
	ReportAt       string        `toml:"report_at"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		DatabaseURL:     "todolist.db",
		StorageBackend:  BackendSQLite,
		RedisAddr:       "localhost:6379",
		SweepInterval:   time.Minute,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
		ReportInterval:  5 * time.Hour,
	}
}

// NotificationsEnabled reports whether the Telegram digest should run.
func (c Config) NotificationsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Load reads configuration from an optional TOML file named by TODO_CONFIG,
// then applies environment variables on top of it.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("TODO_CONFIG")); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q, expected %q or %q", c.StorageBackend, BackendSQLite, BackendRedis)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.StorageBackend, "STORAGE_BACKEND")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.ReportAt, "REPORT_AT")
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)

	if err := setDuration(&cfg.SweepInterval, "SWEEP_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT"); err != nil {
		return err
	}
	if raw := env("REPORT_INTERVAL_HOURS"); raw != "" {
		if interval := parseInterval(raw); interval > 0 {
			cfg.ReportInterval = interval
		}
	}
	if raw := env("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = id
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	raw := env(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
