package model

import "os"

// Config is the complete application configuration.
// Hierarchy: CLI flags > environment (KFN_*) > config file > defaults.
type Config struct {
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
}

// ProvidersConfig controls the provider registry and dispatch behavior
type ProvidersConfig struct {
	// List enumerates configured providers in no particular order;
	// dispatch order is determined by Priority
	List []ProviderConfig `yaml:"list" mapstructure:"list"`

	// LoadBalance selects round-robin among active providers instead of
	// strict priority order
	LoadBalance bool `yaml:"load_balance" mapstructure:"load_balance"`

	// MaxFailures is the consecutive-failure count that disables a provider
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`

	// CooldownSeconds re-activates a disabled provider after this interval.
	// Zero means disabled providers stay down until an explicit reset.
	CooldownSeconds int `yaml:"cooldown_seconds" mapstructure:"cooldown_seconds"`

	// TargetDimensions is the corpus-wide embedding dimensionality D.
	// Embeddings from providers with a different native size are padded
	// or truncated to fit.
	TargetDimensions int `yaml:"target_dimensions" mapstructure:"target_dimensions"`

	// TimeoutSeconds bounds every individual provider call
	TimeoutSeconds int `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ProviderConfig describes a single provider entry
type ProviderConfig struct {
	Name           string  `yaml:"name" mapstructure:"name"`                       // openai, gemini, ollama
	Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
	Priority       int     `yaml:"priority" mapstructure:"priority"`               // Lower = tried first
	APIKey         string  `yaml:"api_key,omitempty" mapstructure:"api_key"`       // Prefer env vars
	BaseURL        string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Model          string  `yaml:"model,omitempty" mapstructure:"model"`
	EmbeddingModel string  `yaml:"embedding_model,omitempty" mapstructure:"embedding_model"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"` // 0 = unlimited
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// RetrievalConfig controls the hybrid retriever
type RetrievalConfig struct {
	TopK        int     `yaml:"top_k" mapstructure:"top_k"`
	DenseWeight float64 `yaml:"dense_weight" mapstructure:"dense_weight"` // Lexical weight is 1 - DenseWeight

	// MinSimilarity gates the dense channel: items below this cosine
	// similarity with no lexical match are not candidates at all
	MinSimilarity float64 `yaml:"min_similarity" mapstructure:"min_similarity"`
}

// VerifyConfig controls verdict synthesis
type VerifyConfig struct {
	MaxTokens       int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature     float64 `yaml:"temperature" mapstructure:"temperature"`
	CacheTTLMinutes int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"` // 0 disables the verdict cache
	HistoryLimit    int     `yaml:"history_limit" mapstructure:"history_limit"`
}

// StoreConfig selects the evidence/history backend
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // "sqlite" or "memory"
	Path    string `yaml:"path" mapstructure:"path"`       // sqlite database file
}

// CacheConfig controls the layered verdict cache
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // Disk layer directory, empty = memory only
}

// DefaultConfig returns sensible defaults. API keys come from the
// conventional environment variables so a bare config still works.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			List: []ProviderConfig{
				{
					Name:          "gemini",
					Enabled:       os.Getenv("GEMINI_API_KEY") != "",
					Priority:      1, // Free tier first
					APIKey:        os.Getenv("GEMINI_API_KEY"),
					RatePerSecond: 1,
					Burst:         2,
				},
				{
					Name:          "openai",
					Enabled:       os.Getenv("OPENAI_API_KEY") != "",
					Priority:      2,
					APIKey:        os.Getenv("OPENAI_API_KEY"),
					RatePerSecond: 3,
					Burst:         5,
				},
				{
					Name:          "ollama",
					Enabled:       os.Getenv("OLLAMA_BASE_URL") != "",
					Priority:      3,
					BaseURL:       os.Getenv("OLLAMA_BASE_URL"),
					RatePerSecond: 0, // Local, unthrottled
				},
			},
			LoadBalance:      false,
			MaxFailures:      3,
			CooldownSeconds:  0,
			TargetDimensions: 1536,
			TimeoutSeconds:   30,
		},
		Retrieval: RetrievalConfig{
			TopK:          5,
			DenseWeight:   0.5,
			MinSimilarity: 0.2,
		},
		Verify: VerifyConfig{
			MaxTokens:       1000,
			Temperature:     0.1,
			CacheTTLMinutes: 60,
			HistoryLimit:    20,
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "data/kfn.db",
		},
		Cache: CacheConfig{
			Dir: "",
		},
	}
}
