package openai

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoAPIKey reports a configuration without LLM_API_KEY.
var ErrNoAPIKey = errors.New("LLM_API_KEY is required. Set it in .env or environment")

// Config holds OpenAI-compatible LLM configuration.
type Config struct {
	APIKey      string        // API key for authentication
	BaseURL     string        // Base URL (default: https://api.openai.com/v1)
	Model       string        // Model name (default: gpt-4o-mini)
	Temperature *float32      // Response creativity 0.0-2.0 (nil = API default)
	MaxTokens   int           // Max tokens in response, 0 = no limit
	MaxRetries  int           // HTTP-level retry for transient errors only (default: 1)
	HTTPTimeout time.Duration // per-request timeout, 0 = none
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("LLM_HTTP_TIMEOUT_SECONDS cannot be negative, got %v", c.HTTPTimeout)
	}
	return nil
}
