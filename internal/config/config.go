// Package config loads the relay configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/picatz/openai-relay/internal/logger"
)

type Config struct {
	OpenAIAPIKey  string `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`

	Addr           string   `env:"RELAY_ADDR" envDefault:":8000"`
	AllowedOrigins []string `env:"RELAY_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`

	// TempDir holds uploads while they are forwarded. Empty means os.TempDir.
	TempDir        string        `env:"RELAY_TEMP_DIR"`
	MaxUploadBytes int64         `env:"RELAY_MAX_UPLOAD_BYTES" envDefault:"33554432"`
	RequestTimeout time.Duration `env:"RELAY_REQUEST_TIMEOUT" envDefault:"120s"`

	LogLevel  string        `env:"RELAY_LOG_LEVEL" envDefault:"info"`
	LogFormat logger.Format `env:"RELAY_LOG_FORMAT" envDefault:"text"`

	DefaultChatModel string `env:"RELAY_DEFAULT_CHAT_MODEL" envDefault:"gpt-4o-mini"`
	DefaultToolModel string `env:"RELAY_DEFAULT_TOOL_MODEL" envDefault:"gpt-4o"`
}

// Load reads a .env file from the working directory, if there is one, and
// then parses the process environment. Variables already set in the
// environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}
	return cfg, cfg.validate()
}

// Parse builds a Config from the given variables only, ignoring the process
// environment.
func Parse(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains([]logger.Format{logger.FormatText, logger.FormatJSON}, c.LogFormat) {
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
