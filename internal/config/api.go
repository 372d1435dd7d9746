package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/casestudio/pkg/formatting"
	"github.com/JaimeStill/casestudio/pkg/middleware"
	"github.com/JaimeStill/casestudio/pkg/openapi"
	"github.com/JaimeStill/casestudio/pkg/pagination"
)

const defaultMaxRequestSize = 1024 * 1024

var corsEnv = &middleware.CORSEnv{
	Enabled:          "CASESTUDIO_CORS_ENABLED",
	Origins:          "CASESTUDIO_CORS_ORIGINS",
	AllowedMethods:   "CASESTUDIO_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "CASESTUDIO_CORS_ALLOWED_HEADERS",
	AllowCredentials: "CASESTUDIO_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "CASESTUDIO_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "CASESTUDIO_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "CASESTUDIO_PAGINATION_MAX_PAGE_SIZE",
}

var rateLimitEnv = &middleware.RateLimitEnv{
	Enabled:           "CASESTUDIO_RATE_LIMIT_ENABLED",
	RequestsPerMinute: "CASESTUDIO_RATE_LIMIT_REQUESTS_PER_MINUTE",
	Burst:             "CASESTUDIO_RATE_LIMIT_BURST",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "CASESTUDIO_OPENAPI_TITLE",
	Description: "CASESTUDIO_OPENAPI_DESCRIPTION",
	Servers:     "CASESTUDIO_OPENAPI_SERVERS",
}

// APIConfig holds API routing, request limits, CORS, pagination, and
// OpenAPI settings.
type APIConfig struct {
	BasePath       string                     `toml:"base_path"`
	MaxRequestSize string                     `toml:"max_request_size"`
	CORS           middleware.CORSConfig      `toml:"cors"`
	Pagination     pagination.Config          `toml:"pagination"`
	RateLimit      middleware.RateLimitConfig `toml:"rate_limit"`
	OpenAPI        openapi.Config             `toml:"openapi"`
}

// MaxRequestSizeBytes returns MaxRequestSize in bytes, falling back to 1MB
// when unparseable.
func (c *APIConfig) MaxRequestSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxRequestSize)
	if err != nil {
		return defaultMaxRequestSize
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.RateLimit.Finalize(rateLimitEnv); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxRequestSize != "" {
		c.MaxRequestSize = overlay.MaxRequestSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.RateLimit.Merge(&overlay.RateLimit)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxRequestSize == "" {
		c.MaxRequestSize = "1MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("CASESTUDIO_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("CASESTUDIO_API_MAX_REQUEST_SIZE"); v != "" {
		c.MaxRequestSize = v
	}
}
