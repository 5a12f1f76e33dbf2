package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Empty(t, cfg.Host)
	assert.Equal(t, "gpt-4o", cfg.ExtractionModel)
	assert.Equal(t, 4096, cfg.ExtractionMaxTokens)
	assert.Equal(t, "gpt-4o-mini", cfg.CleanupModel)
	assert.Equal(t, 16000, cfg.CleanupMaxTokens)
	assert.InDelta(t, 0.9, cfg.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.RetryAttempts)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host and key", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"), WithAPIKey("sk-test"))

		assert.Equal(t, "http://custom:8080/v1", cfg.Host)
		assert.Equal(t, "sk-test", cfg.APIKey)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithExtractionModel("qwen2.5:7b", 2048),
			WithCleanupModel("qwen2.5:3b", 8192),
			WithTemperature(0.2),
		)

		assert.Equal(t, Profile{Name: ProfileExtraction, Model: "qwen2.5:7b", MaxTokens: 2048, Temperature: 0.2}, cfg.ExtractionProfile())
		assert.Equal(t, Profile{Name: ProfileCleanup, Model: "qwen2.5:3b", MaxTokens: 8192, Temperature: 0.2}, cfg.CleanupProfile())
	})

	t.Run("with retry", func(t *testing.T) {
		cfg := NewConfig(WithRetry(5, time.Second, 3*time.Second))

		p := cfg.RetryPolicy()
		assert.Equal(t, 5, p.MaxAttempts)
		assert.Equal(t, time.Second, p.MinDelay)
		assert.Equal(t, 3*time.Second, p.MaxDelay)
		assert.Equal(t, 2.0, p.Multiplier)
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"empty stays empty", "", ""},
		{"adds suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trims trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"keeps existing suffix", "http://localhost:11434/v1", "http://localhost:11434/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		opt  ConfigOption
	}{
		{"missing extraction model", WithExtractionModel("", 100)},
		{"missing cleanup model", WithCleanupModel("", 100)},
		{"zero tokens", WithExtractionModel("m", 0)},
		{"negative temperature", WithTemperature(-1)},
		{"zero attempts", WithRetry(0, time.Second, time.Second)},
		{"inverted delays", WithRetry(3, 5*time.Second, time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewConfig(tt.opt).Validate())
		})
	}
}
