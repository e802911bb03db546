package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
	// EnvDevelopment is the default environment.
	EnvDevelopment = "development"
)

// Backend selects which translation implementation runs jobs.
type Backend string

const (
	BackendSimulated Backend = "simulated"
	BackendRemote    Backend = "remote"
)

// Config holds all application configuration read from the environment.
type Config struct {
	// Server settings
	Env       string   `envconfig:"ENV" default:"development"`
	Port      string   `envconfig:"PORT" default:"8080"`
	StaticDir string   `envconfig:"STATIC_DIR" default:"./public"`
	Proxies   []string `envconfig:"TRUSTED_PROXIES" default:"10.0.0.0/8,172.16.0.0/12"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Translation backend
	Backend      Backend `envconfig:"BACKEND" default:"simulated"`
	OpenAIKey    string  `envconfig:"OPENAI_API_KEY"`
	AnthropicKey string  `envconfig:"ANTHROPIC_API_KEY"`

	// Retention settings. Zero disables the matching cleanup.
	JobRetention   time.Duration `envconfig:"JOB_RETENTION" default:"1h"`
	SessionIdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; production sets real environment variables.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSimulated, BackendRemote:
	default:
		return fmt.Errorf("invalid BACKEND %q: want %q or %q", c.Backend, BackendSimulated, BackendRemote)
	}

	switch c.CSPMode {
	case "strict", "relaxed":
	default:
		return fmt.Errorf("invalid CSP_MODE %q: want strict or relaxed", c.CSPMode)
	}

	return nil
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		return "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self'; " +
			"img-src 'self' https://*.openai.com https://*.blob.core.windows.net data:; " +
			"media-src 'self' blob:; " +
			"connect-src 'self'; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"img-src 'self' https: data:; " +
		"media-src 'self' blob:; " +
		"connect-src 'self' ws: wss:"
}
