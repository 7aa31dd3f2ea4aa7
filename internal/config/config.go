package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds all configuration for both the backend and the console.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Console ConsoleConfig
	Log     LogConfig
}

// ServerConfig holds the reference backend's HTTP configuration.
type ServerConfig struct {
	Host           string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port           int    `env:"SERVER_PORT" envDefault:"8080"`
	SeedProbes     bool   `env:"SEED_PROBES" envDefault:"true"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`
}

// BackendConfig tells the console where the targets API lives.
type BackendConfig struct {
	URL              string        `env:"BACKEND_URL" envDefault:"http://localhost:8080"`
	Timeout          time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	StartupAttempts  uint          `env:"BACKEND_STARTUP_ATTEMPTS" envDefault:"5"`
	StartupRetryWait time.Duration `env:"BACKEND_STARTUP_RETRY_WAIT" envDefault:"1s"`
}

// ConsoleConfig holds the admin console's HTTP and polling configuration.
type ConsoleConfig struct {
	Host         string        `env:"CONSOLE_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"CONSOLE_PORT" envDefault:"8081"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
}

// LogConfig holds logging configuration. An empty Dir logs to stderr.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Dir   string `env:"LOG_DIR"`
}

// Load loads configuration from an optional .env file and the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Backend); err != nil {
		return nil, fmt.Errorf("parsing backend config: %w", err)
	}
	if err := env.Parse(&cfg.Console); err != nil {
		return nil, fmt.Errorf("parsing console config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}

	return cfg, nil
}

// Addr returns the backend address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins returns the CORS origins as a slice.
func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return []string{"*"}
	}
	origins := strings.Split(c.AllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

// Addr returns the console address in host:port format.
func (c *ConsoleConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.Backend.StartupAttempts == 0 {
		return fmt.Errorf("BACKEND_STARTUP_ATTEMPTS must be at least 1")
	}
	if c.Console.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}
