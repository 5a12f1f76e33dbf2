// Package config loads gleaner settings from a YAML file and the environment.
//
// Values are resolved in order: built-in defaults, then the YAML file, then
// environment variables. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/chunk"
	"github.com/poiesic/gleaner/ingestion"
	"gopkg.in/yaml.v3"
)

// StorageConfig locates the badger database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// AIConfig mirrors ai.Config for the file format.
type AIConfig struct {
	Host                string        `yaml:"host"`
	APIKey              string        `yaml:"api_key"`
	ExtractionModel     string        `yaml:"extraction_model"`
	ExtractionMaxTokens int           `yaml:"extraction_max_tokens"`
	CleanupModel        string        `yaml:"cleanup_model"`
	CleanupMaxTokens    int           `yaml:"cleanup_max_tokens"`
	Temperature         float64       `yaml:"temperature"`
	RetryAttempts       int           `yaml:"retry_attempts"`
	RetryMinDelay       time.Duration `yaml:"retry_min_delay"`
	RetryMaxDelay       time.Duration `yaml:"retry_max_delay"`
}

// PipelineConfig sizes the ingestion worker pools.
type PipelineConfig struct {
	PoolSize         int `yaml:"pool_size"`         // concurrent jobs
	ChunkConcurrency int `yaml:"chunk_concurrency"` // concurrent chunks per job
	MaxChunkLength   int `yaml:"max_chunk_length"`  // runes
}

// FetchConfig tunes the source fetcher.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
	File  string `yaml:"file"`  // optional JSON log file
}

// Config is the complete gleaner configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Storage: StorageConfig{Path: "gleaner.db"},
		AI: AIConfig{
			ExtractionModel:     aiDefaults.ExtractionModel,
			ExtractionMaxTokens: aiDefaults.ExtractionMaxTokens,
			CleanupModel:        aiDefaults.CleanupModel,
			CleanupMaxTokens:    aiDefaults.CleanupMaxTokens,
			Temperature:         aiDefaults.Temperature,
			RetryAttempts:       aiDefaults.RetryAttempts,
			RetryMinDelay:       aiDefaults.RetryMinDelay,
			RetryMaxDelay:       aiDefaults.RetryMaxDelay,
		},
		Pipeline: PipelineConfig{
			PoolSize:         ingestion.DefaultPoolSize,
			ChunkConcurrency: ingestion.DefaultChunkConcurrency,
			MaxChunkLength:   chunk.DefaultMaxLength,
		},
		Fetch: FetchConfig{
			Timeout:  30 * time.Second,
			MaxBytes: 10 << 20,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables. lookup is usually
// os.LookupEnv. Empty variables are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("OPENAI_API_KEY"); ok {
		c.AI.APIKey = v
	}
	if v, ok := get("OPENAI_BASE_URL"); ok {
		c.AI.Host = v
	}
	if v, ok := get("OPENAI_MODEL"); ok {
		c.AI.ExtractionModel = v
	}
	if v, ok := get("OPENAI_CLEANUP_MODEL"); ok {
		c.AI.CleanupModel = v
	}
	if v, ok := get("GLEANER_DB"); ok {
		c.Storage.Path = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"OPENAI_MAX_TOKENS", &c.AI.ExtractionMaxTokens},
		{"OPENAI_CLEANUP_MAX_TOKENS", &c.AI.CleanupMaxTokens},
		{"OPENAI_RETRY_LIMIT", &c.AI.RetryAttempts},
	}
	for _, e := range ints {
		v, ok := get(e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	if v, ok := get("OPENAI_TEMPERATURE"); ok {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("OPENAI_TEMPERATURE: %w", err)
		}
		c.AI.Temperature = t
	}
	return nil
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	if c.Pipeline.PoolSize < 1 {
		return errors.New("pipeline.pool_size must be at least 1")
	}
	if c.Pipeline.ChunkConcurrency < 1 {
		return errors.New("pipeline.chunk_concurrency must be at least 1")
	}
	if c.Pipeline.MaxChunkLength < 1 {
		return errors.New("pipeline.max_chunk_length must be at least 1")
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be positive")
	}
	if c.Fetch.MaxBytes < 1 {
		return errors.New("fetch.max_bytes must be positive")
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return c.AIConfig().Validate()
}

// AIConfig converts the ai section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.AI.Host),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithExtractionModel(c.AI.ExtractionModel, c.AI.ExtractionMaxTokens),
		ai.WithCleanupModel(c.AI.CleanupModel, c.AI.CleanupMaxTokens),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithRetry(c.AI.RetryAttempts, c.AI.RetryMinDelay, c.AI.RetryMaxDelay),
	)
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}
