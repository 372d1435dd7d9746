package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/casestudio/internal/schema"
)

const (
	EnvGenerationBaseURL           = "CASESTUDIO_GENERATION_BASE_URL"
	EnvGenerationAPIKey            = "CASESTUDIO_GENERATION_API_KEY"
	EnvGenerationModel             = "CASESTUDIO_GENERATION_MODEL"
	EnvGenerationMaxRetries        = "CASESTUDIO_GENERATION_MAX_RETRIES"
	EnvGenerationTimeout           = "CASESTUDIO_GENERATION_TIMEOUT"
	EnvGenerationStreamIdleTimeout = "CASESTUDIO_GENERATION_STREAM_IDLE_TIMEOUT"
	EnvGenerationPartialMode       = "CASESTUDIO_GENERATION_PARTIAL_MODE"
)

const defaultMaxRetries = 2

// GenerationConfig holds language model backend and streaming session settings.
// BaseURL targets any OpenAI-compatible chat completions endpoint. MaxRetries
// is a pointer so an explicit 0 disables retries instead of selecting the
// default.
type GenerationConfig struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model"`
	MaxRetries        *int   `toml:"max_retries"`
	Timeout           string `toml:"timeout"`
	StreamIdleTimeout string `toml:"stream_idle_timeout"`
	PartialMode       string `toml:"partial_mode"`
}

// Retries returns the backend retry count, or the default when unset.
func (c *GenerationConfig) Retries() int {
	if c.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *c.MaxRetries
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *GenerationConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// StreamIdleTimeoutDuration returns StreamIdleTimeout as a time.Duration.
func (c *GenerationConfig) StreamIdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StreamIdleTimeout)
	return d
}

// Partial returns the configured partial parsing mode.
func (c *GenerationConfig) Partial() schema.PartialMode {
	m, _ := schema.ParsePartialMode(c.PartialMode)
	return m
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *GenerationConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *GenerationConfig) Merge(overlay *GenerationConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.MaxRetries != nil {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.StreamIdleTimeout != "" {
		c.StreamIdleTimeout = overlay.StreamIdleTimeout
	}
	if overlay.PartialMode != "" {
		c.PartialMode = overlay.PartialMode
	}
}

func (c *GenerationConfig) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.MaxRetries == nil {
		n := defaultMaxRetries
		c.MaxRetries = &n
	}
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
	if c.StreamIdleTimeout == "" {
		c.StreamIdleTimeout = "60s"
	}
	if c.PartialMode == "" {
		c.PartialMode = string(schema.PartialStrict)
	}
}

func (c *GenerationConfig) loadEnv() {
	if v := os.Getenv(EnvGenerationBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvGenerationAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvGenerationModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvGenerationMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = &n
		}
	}
	if v := os.Getenv(EnvGenerationTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvGenerationStreamIdleTimeout); v != "" {
		c.StreamIdleTimeout = v
	}
	if v := os.Getenv(EnvGenerationPartialMode); v != "" {
		c.PartialMode = v
	}
}

func (c *GenerationConfig) validate() error {
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	if c.Retries() < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	d, err := time.ParseDuration(c.StreamIdleTimeout)
	if err != nil {
		return fmt.Errorf("invalid stream_idle_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("stream_idle_timeout must be positive")
	}
	if _, err := schema.ParsePartialMode(c.PartialMode); err != nil {
		return fmt.Errorf("partial_mode: %w", err)
	}
	return nil
}
