package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is constructed once at
// process start and threaded through constructors; core logic never reads
// the environment on its own.
type Config struct {
	Server struct {
		ListenAddr         string `yaml:"listen_addr"`
		RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
	} `yaml:"server"`
	Database struct {
		Driver           string `yaml:"driver"` // "sqlite" or "postgres"
		SQLitePath       string `yaml:"sqlite_path"`
		PostgresDSN      string `yaml:"postgres_dsn"`
		PostgresPassword string `yaml:"postgres_password"`
		Debug            bool   `yaml:"debug"`
	} `yaml:"database"`
	VectorIndex struct {
		Path         string `yaml:"path"`
		Collection   string `yaml:"collection"`
		InMemory     bool   `yaml:"in_memory"`
		ModelVersion string `yaml:"model_version"`
	} `yaml:"vector_index"`
	EmbedLLM LLMConfig `yaml:"embed_llm"`
	ChatLLM  LLMConfig `yaml:"chat_llm"`
	Retrieval struct {
		OverfetchFactor int     `yaml:"overfetch_factor"`
		StructuredScore float64 `yaml:"structured_score"`
		MinConfidence   float64 `yaml:"min_confidence"`
		ContextDocs     int     `yaml:"context_docs"` // default k when a handler has no explicit budget
	} `yaml:"retrieval"`
	Limits struct {
		MaxContextDocs  int `yaml:"max_context_docs"`
		MaxLookbackDays int `yaml:"max_lookback_days"`
	} `yaml:"limits"`
	Schedule struct {
		IndexCron  string `yaml:"index_cron"`
		IndexBatch int    `yaml:"index_batch"`
	} `yaml:"schedule"`
}

// LLMConfig configures one model endpoint (embedder or chat).
type LLMConfig struct {
	Provider    string `yaml:"provider"` // "openai" or "ollama"
	BaseURL     string `yaml:"base_url"`
	Key         string `yaml:"key"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
		cfg.Database.Driver = "postgres"
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Database.PostgresPassword = v
	}
	if v := os.Getenv("EMBED_API_KEY"); v != "" {
		cfg.EmbedLLM.Key = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.ChatLLM.Key = v
	}
	if v := os.Getenv("INDEX_CRON"); v != "" {
		cfg.Schedule.IndexCron = v
	}
	if v := os.Getenv("MAX_CONTEXT_DOCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Limits.MaxContextDocs = n
		}
	}

	// Defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 30
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/trading_data.db"
	}
	if cfg.VectorIndex.Path == "" {
		cfg.VectorIndex.Path = "data/vectorindex"
	}
	if cfg.VectorIndex.Collection == "" {
		cfg.VectorIndex.Collection = "documents"
	}
	if cfg.VectorIndex.ModelVersion == "" {
		cfg.VectorIndex.ModelVersion = "v1"
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = "ollama"
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "nomic-embed-text"
	}
	if cfg.EmbedLLM.TimeoutSecs == 0 {
		cfg.EmbedLLM.TimeoutSecs = 15
	}
	if cfg.ChatLLM.Provider == "" {
		cfg.ChatLLM.Provider = "openai"
	}
	if cfg.ChatLLM.Model == "" {
		cfg.ChatLLM.Model = "gpt-4"
	}
	if cfg.ChatLLM.TimeoutSecs == 0 {
		cfg.ChatLLM.TimeoutSecs = 60
	}
	if cfg.Retrieval.OverfetchFactor == 0 {
		cfg.Retrieval.OverfetchFactor = 3
	}
	if cfg.Retrieval.StructuredScore == 0 {
		cfg.Retrieval.StructuredScore = 0.30
	}
	if cfg.Retrieval.MinConfidence == 0 {
		cfg.Retrieval.MinConfidence = 0.10
	}
	if cfg.Retrieval.ContextDocs == 0 {
		cfg.Retrieval.ContextDocs = 8
	}
	if cfg.Limits.MaxContextDocs == 0 {
		cfg.Limits.MaxContextDocs = 20
	}
	if cfg.Limits.MaxLookbackDays == 0 {
		cfg.Limits.MaxLookbackDays = 365
	}
	if cfg.Schedule.IndexCron == "" {
		cfg.Schedule.IndexCron = "0 */5 * * * *"
	}
	if cfg.Schedule.IndexBatch == 0 {
		cfg.Schedule.IndexBatch = 256
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required")
		}
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.EmbedLLM.Provider == "openai" && c.EmbedLLM.Key == "" {
		return fmt.Errorf("embed_llm.key is required for the openai provider")
	}
	if c.ChatLLM.Key == "" && c.ChatLLM.Provider == "openai" {
		return fmt.Errorf("chat_llm.key is required for the openai provider")
	}
	if c.Retrieval.OverfetchFactor < 1 {
		return fmt.Errorf("retrieval.overfetch_factor must be >= 1")
	}
	if c.Limits.MaxContextDocs <= 0 || c.Limits.MaxLookbackDays <= 0 {
		return fmt.Errorf("limits must be positive")
	}
	return nil
}
