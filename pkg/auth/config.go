package auth

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds session provider settings. When Enabled is false every
// request is served as the anonymous caller.
type Config struct {
	Enabled  bool     `toml:"enabled"`
	Issuer   string   `toml:"issuer"`
	ClientID string   `toml:"client_id"`
	Tokens   []string `toml:"tokens"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled  string
	Issuer   string
	ClientID string
	Tokens   string
}

// Finalize applies environment variable overrides and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.Tokens != nil {
		c.Tokens = overlay.Tokens
	}
}

// StaticTokens parses Tokens entries of the form "subject:token".
func (c *Config) StaticTokens() map[string]string {
	tokens := make(map[string]string, len(c.Tokens))
	for _, entry := range c.Tokens {
		subject, token, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		tokens[strings.TrimSpace(token)] = strings.TrimSpace(subject)
	}
	return tokens
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				c.Enabled = enabled
			}
		}
	}
	if env.Issuer != "" {
		if v := os.Getenv(env.Issuer); v != "" {
			c.Issuer = v
		}
	}
	if env.ClientID != "" {
		if v := os.Getenv(env.ClientID); v != "" {
			c.ClientID = v
		}
	}
	if env.Tokens != "" {
		if v := os.Getenv(env.Tokens); v != "" {
			entries := strings.Split(v, ",")
			c.Tokens = make([]string, 0, len(entries))
			for _, e := range entries {
				if trimmed := strings.TrimSpace(e); trimmed != "" {
					c.Tokens = append(c.Tokens, trimmed)
				}
			}
		}
	}
}

func (c *Config) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Issuer == "" && len(c.Tokens) == 0 {
		return fmt.Errorf("issuer or tokens required when enabled")
	}
	if c.Issuer != "" && c.ClientID == "" {
		return fmt.Errorf("client_id required with issuer")
	}
	for _, entry := range c.Tokens {
		subject, token, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(subject) == "" || strings.TrimSpace(token) == "" {
			return fmt.Errorf("token entries must be subject:token")
		}
	}
	return nil
}
