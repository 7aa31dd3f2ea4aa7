package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("server addr = %q", cfg.Server.Addr())
	}
	if cfg.Console.Addr() != "0.0.0.0:8081" {
		t.Errorf("console addr = %q", cfg.Console.Addr())
	}
	if cfg.Console.PollInterval != time.Minute {
		t.Errorf("poll interval = %v, want 1m", cfg.Console.PollInterval)
	}
	if cfg.Backend.URL != "http://localhost:8080" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if !cfg.Server.SeedProbes {
		t.Errorf("probes should be seeded by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CONSOLE_PORT", "9091")
	t.Setenv("BACKEND_URL", "http://backend:9090")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Console.Port != 9091 {
		t.Errorf("ports wrong: %+v %+v", cfg.Server, cfg.Console)
	}
	if cfg.Console.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %v", cfg.Console.PollInterval)
	}
	origins := cfg.Server.Origins()
	if len(origins) != 2 || origins[1] != "http://b.example" {
		t.Errorf("origins = %v", origins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Backend: BackendConfig{URL: "http://localhost:8080", Timeout: time.Second, StartupAttempts: 1},
			Console: ConsoleConfig{PollInterval: time.Minute},
			Log:     LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"relative backend url", func(c *Config) { c.Backend.URL = "/api" }, true},
		{"zero timeout", func(c *Config) { c.Backend.Timeout = 0 }, true},
		{"zero attempts", func(c *Config) { c.Backend.StartupAttempts = 0 }, true},
		{"zero poll interval", func(c *Config) { c.Console.PollInterval = 0 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
