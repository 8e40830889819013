package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	d := Default()
	if cfg.APIBaseURL != d.APIBaseURL || cfg.SessionStore != StoreFile || cfg.APITimeout != d.APITimeout {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basket.yaml")
	yaml := `api:
  base_url: https://shop.example.com
  timeout: 3s
session:
  store: sqlite
  max_age: 12h
monitor:
  interval: 1m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BASKET_LOG_LEVEL", "DEBUG")
	t.Setenv("BASKET_SESSION_STORE", "memory")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "https://shop.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 3*time.Second {
		t.Errorf("APITimeout = %s", cfg.APITimeout)
	}
	if cfg.SessionStore != StoreMemory {
		t.Errorf("SessionStore = %q, env should win over file", cfg.SessionStore)
	}
	if cfg.SessionMaxAge != 12*time.Hour {
		t.Errorf("SessionMaxAge = %s", cfg.SessionMaxAge)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.MonitorInterval != time.Minute {
		t.Errorf("MonitorInterval = %s", cfg.MonitorInterval)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad store", map[string]string{"BASKET_SESSION_STORE": "floppy"}, "SessionStore"},
		{"bad url", map[string]string{"BASKET_API_BASE_URL": "not a url"}, "APIBaseURL"},
		{"bad level", map[string]string{"BASKET_LOG_LEVEL": "loud"}, "LogLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestValidateRedisNeedsAddr(t *testing.T) {
	cfg := Default()
	cfg.SessionStore = StoreRedis
	cfg.RedisAddr = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "RedisAddr") {
		t.Errorf("Validate() error = %v, want RedisAddr", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with missing explicit file succeeded")
	}
}
