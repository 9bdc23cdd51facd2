// Package config loads and validates the knowledge-core's configuration:
// content store connection settings, the embedding provider, retrieval
// tuning, prompt token budgets, and logging.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object, loaded from YAML with
// environment-variable overrides layered on top.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	AI        AIConfig        `yaml:"ai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig configures the embedded content store database file.
type StoreConfig struct {
	// Path to the SQLite database file. store.Open treats an empty Path
	// as in-memory (":memory:"); Validate rejects an empty Path.
	Path string `yaml:"path" json:"path"`

	// MaxOpenConns bounds the connection pool. SQLite allows only one
	// writer at a time; kept small deliberately.
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`

	// BusyTimeout is how long a connection waits on SQLITE_BUSY before
	// giving up, expressed as a Go duration string (e.g. "5s").
	BusyTimeout string `yaml:"busy_timeout" json:"busy_timeout"`

	// Synchronous sets the PRAGMA synchronous level: OFF, NORMAL, FULL.
	Synchronous string `yaml:"synchronous" json:"synchronous"`

	// ConnMaxLifetime recycles pooled connections after this duration
	// (Go duration string). Empty disables recycling.
	ConnMaxLifetime string `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`

	// VectorExtension enables the SQL-level vector search path. When
	// false, searches fall back to the in-process linear scan. Without
	// the sqlite_vec build tag, the pure-Go vec_distance_l2 registered
	// in internal/store serves the SQL path in place of the extension.
	VectorExtension bool `yaml:"vector_extension" json:"vector_extension"`
}

// AIConfig configures the narrative-generation LLM client.
type AIConfig struct {
	Provider       string  `yaml:"provider" json:"provider"` // e.g. "openai", "anthropic"
	BaseURL        string  `yaml:"base_url" json:"base_url"`
	APIKey         string  `yaml:"api_key" json:"api_key"`
	Model          string  `yaml:"model" json:"model"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`
	MaxRetries     int     `yaml:"max_retries" json:"max_retries"`
	RetryDelay     string  `yaml:"retry_delay" json:"retry_delay"`
	RequestTimeout string  `yaml:"request_timeout" json:"request_timeout"`
}

// RetrievalConfig tunes the retrieval orchestrator's filtering pipeline.
// KnowledgeScoreFloor is the single relevance floor applied both at the
// knowledge base search (similarity in [0,1]) and again by the
// orchestrator after per-source grouping; there is deliberately only
// one floor field, since the search-time and orchestrator-time scores
// are the same [0,1]-scaled similarity.
type RetrievalConfig struct {
	PerSourceCap        int     `yaml:"per_source_cap" json:"per_source_cap"`
	MaxTotalResults     int     `yaml:"max_total_results" json:"max_total_results"`
	DedupSimilarity     float64 `yaml:"dedup_similarity" json:"dedup_similarity"`
	KnowledgeScoreFloor float64 `yaml:"knowledge_score_floor" json:"knowledge_score_floor"`
}

// PromptConfig tunes the prompt assembler's token budget.
type PromptConfig struct {
	MaxPromptTokens          int `yaml:"max_prompt_tokens" json:"max_prompt_tokens"`
	TokensPerMessageOverhead int `yaml:"tokens_per_message_overhead" json:"tokens_per_message_overhead"`
	RecentHistoryMessages    int `yaml:"recent_history_messages" json:"recent_history_messages"`
}

// DefaultConfig returns the configuration used when no file is present
// and no environment overrides apply.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:            "knowledge.db",
			MaxOpenConns:    4,
			BusyTimeout:     "5s",
			Synchronous:     "NORMAL",
			ConnMaxLifetime: "30m",
			VectorExtension: true,
		},
		AI: AIConfig{
			Provider:       "openai",
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			Temperature:    0.7,
			MaxRetries:     3,
			RetryDelay:     "500ms",
			RequestTimeout: "60s",
		},
		Embedding: DefaultEmbeddingConfig(),
		Retrieval: RetrievalConfig{
			PerSourceCap:        2,
			MaxTotalResults:     5,
			DedupSimilarity:     0.7,
			KnowledgeScoreFloor: 0.3,
		},
		Prompt: PromptConfig{
			MaxPromptTokens:          128000,
			TokensPerMessageOverhead: 4,
			RecentHistoryMessages:    4,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},
	}
}

// Load reads YAML configuration from path, falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KNOWLEDGE_CORE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("KNOWLEDGE_CORE_AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("KNOWLEDGE_CORE_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("KNOWLEDGE_CORE_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("KNOWLEDGE_CORE_AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("KNOWLEDGE_CORE_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("KNOWLEDGE_CORE_GENAI_API_KEY"); v != "" {
		cfg.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("KNOWLEDGE_CORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KNOWLEDGE_CORE_DEBUG"); v == "1" || v == "true" {
		cfg.Logging.DebugMode = true
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("config: store.path must not be empty")
	}
	if c.Store.MaxOpenConns < 1 {
		return fmt.Errorf("config: store.max_open_conns must be >= 1")
	}
	if _, err := time.ParseDuration(c.Store.BusyTimeout); err != nil {
		return fmt.Errorf("config: store.busy_timeout invalid: %w", err)
	}
	switch c.Store.Synchronous {
	case "OFF", "NORMAL", "FULL":
	default:
		return fmt.Errorf("config: store.synchronous must be OFF, NORMAL, or FULL, got %q", c.Store.Synchronous)
	}
	if c.Embedding.Provider != "stub" && c.Embedding.Provider != "ollama" && c.Embedding.Provider != "genai" {
		return fmt.Errorf("config: embedding.provider must be stub, ollama, or genai, got %q", c.Embedding.Provider)
	}
	if c.Retrieval.PerSourceCap < 1 {
		return fmt.Errorf("config: retrieval.per_source_cap must be >= 1")
	}
	if c.Retrieval.MaxTotalResults < 1 {
		return fmt.Errorf("config: retrieval.max_total_results must be >= 1")
	}
	if c.Prompt.MaxPromptTokens < 1000 {
		return fmt.Errorf("config: prompt.max_prompt_tokens must be >= 1000")
	}
	return nil
}

// GetRequestTimeout parses AI.RequestTimeout, falling back to 60s on error.
func (c *AIConfig) GetRequestTimeout() time.Duration {
	if d, err := time.ParseDuration(c.RequestTimeout); err == nil {
		return d
	}
	return 60 * time.Second
}

// GetRetryDelay parses AI.RetryDelay, falling back to 500ms on error.
func (c *AIConfig) GetRetryDelay() time.Duration {
	if d, err := time.ParseDuration(c.RetryDelay); err == nil {
		return d
	}
	return 500 * time.Millisecond
}

// GetBusyTimeout parses Store.BusyTimeout, falling back to 5s on error.
func (c *StoreConfig) GetBusyTimeout() time.Duration {
	if d, err := time.ParseDuration(c.BusyTimeout); err == nil {
		return d
	}
	return 5 * time.Second
}

// GetConnMaxLifetime parses Store.ConnMaxLifetime, returning 0 (no limit)
// if unset or invalid.
func (c *StoreConfig) GetConnMaxLifetime() time.Duration {
	if c.ConnMaxLifetime == "" {
		return 0
	}
	d, err := time.ParseDuration(c.ConnMaxLifetime)
	if err != nil {
		return 0
	}
	return d
}
