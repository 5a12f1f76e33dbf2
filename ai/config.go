// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the LLM text service.
type Config struct {
	// Host is the base URL for an OpenAI-compatible API.
	// Empty means the public OpenAI endpoint.
	// Example: "http://localhost:11434/v1" for a local server
	Host string

	// APIKey authenticates against the service.
	APIKey string

	// ExtractionModel is the model used for per-chunk extraction.
	// Default: "gpt-4o"
	ExtractionModel string

	// ExtractionMaxTokens bounds each extraction reply.
	// Default: 4096
	ExtractionMaxTokens int

	// CleanupModel is the model used for the final cleanup pass.
	// Default: "gpt-4o-mini"
	CleanupModel string

	// CleanupMaxTokens bounds the cleanup reply.
	// Default: 16000
	CleanupMaxTokens int

	// Temperature is the sampling temperature for both profiles.
	// Default: 0.9
	Temperature float64

	// RetryAttempts is the maximum number of attempts per request,
	// counting the first.
	// Default: 3
	RetryAttempts int

	// RetryMinDelay and RetryMaxDelay clamp the exponential backoff.
	// Defaults: 4s and 10s
	RetryMinDelay time.Duration
	RetryMaxDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the service base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithExtractionModel sets the model and reply budget for chunk extraction.
func WithExtractionModel(model string, maxTokens int) ConfigOption {
	return func(c *Config) {
		c.ExtractionModel = model
		c.ExtractionMaxTokens = maxTokens
	}
}

// WithCleanupModel sets the model and reply budget for the cleanup pass.
func WithCleanupModel(model string, maxTokens int) ConfigOption {
	return func(c *Config) {
		c.CleanupModel = model
		c.CleanupMaxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithRetry sets the attempt limit and backoff bounds.
func WithRetry(attempts int, minDelay, maxDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryAttempts = attempts
		c.RetryMinDelay = minDelay
		c.RetryMaxDelay = maxDelay
	}
}

// DefaultConfig returns a Config matching the hosted OpenAI defaults.
func DefaultConfig() *Config {
	return &Config{
		ExtractionModel:     "gpt-4o",
		ExtractionMaxTokens: 4096,
		CleanupModel:        "gpt-4o-mini",
		CleanupMaxTokens:    16000,
		Temperature:         0.9,
		RetryAttempts:       3,
		RetryMinDelay:       4 * time.Second,
		RetryMaxDelay:       10 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithExtractionModel("qwen2.5:7b", 4096),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// A custom host gets the /v1 suffix required by OpenAI-compatible APIs.
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.ExtractionModel == "" {
		return errors.New("ai config: ExtractionModel is required")
	}
	if c.CleanupModel == "" {
		return errors.New("ai config: CleanupModel is required")
	}
	if c.ExtractionMaxTokens < 1 || c.CleanupMaxTokens < 1 {
		return errors.New("ai config: max tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.RetryAttempts < 1 {
		return errors.New("ai config: RetryAttempts must be at least 1")
	}
	if c.RetryMinDelay < 0 || c.RetryMaxDelay < c.RetryMinDelay {
		return errors.New("ai config: retry delays must satisfy 0 <= min <= max")
	}
	return nil
}

// ExtractionProfile returns the profile used for per-chunk extraction.
func (c *Config) ExtractionProfile() Profile {
	return Profile{
		Name:        ProfileExtraction,
		Model:       c.ExtractionModel,
		MaxTokens:   c.ExtractionMaxTokens,
		Temperature: c.Temperature,
	}
}

// CleanupProfile returns the profile used for the cleanup pass.
func (c *Config) CleanupProfile() Profile {
	return Profile{
		Name:        ProfileCleanup,
		Model:       c.CleanupModel,
		MaxTokens:   c.CleanupMaxTokens,
		Temperature: c.Temperature,
	}
}

// RetryPolicy returns the backoff policy described by the configuration.
func (c *Config) RetryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxAttempts = c.RetryAttempts
	p.MinDelay = c.RetryMinDelay
	p.MaxDelay = c.RetryMaxDelay
	return p
}
