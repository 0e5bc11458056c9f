package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"TODO_CONFIG", "HTTP_ADDR", "DATABASE_URL", "STORAGE_BACKEND", "REDIS_ADDR",
	"SWEEP_INTERVAL", "SHUTDOWN_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "REPORT_INTERVAL_HOURS", "REPORT_AT",
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("expected 1m sweep interval, got %v", cfg.SweepInterval)
	}
	if cfg.NotificationsEnabled() {
		t.Error("notifications should be disabled without telegram settings")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "todolist.toml")
	content := `
http_addr = ":9000"
database_url = "data/todo.db"
storage_backend = "redis"
redis_addr = "cache:6379"
sweep_interval = "30s"
log_format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TODO_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("SWEEP_INTERVAL", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTPAddr != ":9100" {
		t.Errorf("env should override file: HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.SweepInterval != 2*time.Minute {
		t.Errorf("env should override file: SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.DatabaseURL != "data/todo.db" {
		t.Errorf("DatabaseURL = %q, want value from file", cfg.DatabaseURL)
	}
	if cfg.StorageBackend != BackendRedis || cfg.RedisAddr != "cache:6379" {
		t.Errorf("unexpected redis settings: %q %q", cfg.StorageBackend, cfg.RedisAddr)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("unset values should keep defaults, got ShutdownTimeout %v", cfg.ShutdownTimeout)
	}
}

func TestLoadTelegramSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200300")
	t.Setenv("REPORT_INTERVAL_HOURS", "12")
	t.Setenv("REPORT_AT", "08:30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.NotificationsEnabled() {
		t.Error("expected notifications to be enabled")
	}
	if cfg.TelegramChatID != -100200300 {
		t.Errorf("TelegramChatID = %d", cfg.TelegramChatID)
	}
	if cfg.ReportInterval != 12*time.Hour {
		t.Errorf("ReportInterval = %v, want 12h", cfg.ReportInterval)
	}
	if cfg.ReportAt != "08:30" {
		t.Errorf("ReportAt = %q", cfg.ReportAt)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{"STORAGE_BACKEND": "postgres"},
			wantErr: "unknown storage backend",
		},
		{
			name:    "malformed sweep interval",
			env:     map[string]string{"SWEEP_INTERVAL": "soon"},
			wantErr: "SWEEP_INTERVAL",
		},
		{
			name:    "non-positive sweep interval",
			env:     map[string]string{"SWEEP_INTERVAL": "0s"},
			wantErr: "sweep interval must be positive",
		},
		{
			name:    "token without chat",
			env:     map[string]string{"TELEGRAM_TOKEN": "123:abc"},
			wantErr: "TELEGRAM_CHAT_ID is required",
		},
		{
			name:    "malformed chat id",
			env:     map[string]string{"TELEGRAM_CHAT_ID": "general"},
			wantErr: "invalid TELEGRAM_CHAT_ID",
		},
		{
			name:    "missing config file",
			env:     map[string]string{"TODO_CONFIG": "/nonexistent/todolist.toml"},
			wantErr: "read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Hour},
		{"1.5", 90 * time.Minute},
		{"-2", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := parseInterval(tt.raw); got != tt.want {
			t.Errorf("parseInterval(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
