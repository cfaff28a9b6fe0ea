package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the lumine API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Collection CollectionConfig `yaml:"collection"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Search     SearchConfig     `yaml:"search"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port           int `yaml:"port"`
	ReadTimeoutSec int `yaml:"read_timeout_sec"`
	// WriteTimeoutSec defaults to 0 (disabled): the streaming routes hold
	// the response open for as long as the upstream model generates.
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector-store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// CollectionConfig holds the semantic-cache collection settings.
type CollectionConfig struct {
	Name      string `yaml:"name"`
	Dimension int    `yaml:"dimension"`
	// ResetOnStart drops and recreates the collection at startup,
	// discarding the warm cache. Matches the reference behavior.
	ResetOnStart *bool `yaml:"reset_on_start"`
	HNSWM        int   `yaml:"hnsw_m"`
	HNSWEF       int   `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// LLMConfig holds chat-completion provider settings.
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	// BaseURL points at an OpenAI-compatible /chat/completions endpoint.
	BaseURL string `yaml:"base_url"`
	// Model answers user queries; ExpansionModel generates search queries.
	Model          string `yaml:"model"`
	ExpansionModel string `yaml:"expansion_model"`
}

// SearchConfig holds live-search provider settings.
type SearchConfig struct {
	Bluesky BlueskyConfig `yaml:"bluesky"`
	Serp    SerpConfig    `yaml:"serp"`
}

// BlueskyConfig holds the social-post provider settings.
type BlueskyConfig struct {
	BaseURL string `yaml:"base_url"`
	Limit   int    `yaml:"limit"`
}

// SerpConfig holds the web-search provider settings.
type SerpConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Country  string `yaml:"country"`
	Language string `yaml:"language"`
	PageSize int    `yaml:"page_size"`
}

// RetrievalConfig tunes the cache-then-backfill retrieval algorithm.
type RetrievalConfig struct {
	ProbeLimit     int     `yaml:"probe_limit"`      // per-candidate cache probe size
	ProbeMinScore  float64 `yaml:"probe_min_score"`  // cache probe score threshold
	MaxResults     int     `yaml:"max_results"`      // hard cap on returned documents
	MinMeanScore   float64 `yaml:"min_mean_score"`   // backfill gate: mean probe score
	MinHits        int     `yaml:"min_hits"`         // backfill gate: probe result count
	MaxLiveQueries int     `yaml:"max_live_queries"` // candidates used for live fetch
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ResetOnStart returns the reset flag with its default (true) applied.
func (c CollectionConfig) ResetOnStartEnabled() bool {
	if c.ResetOnStart == nil {
		return true
	}
	return *c.ResetOnStart
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "lumine:"
	}
	if c.Collection.Name == "" {
		c.Collection.Name = "bluesky_posts"
	}
	if c.Collection.Dimension <= 0 {
		c.Collection.Dimension = 384
	}
	if c.Collection.HNSWM <= 0 {
		c.Collection.HNSWM = 32
	}
	if c.Collection.HNSWEF <= 0 {
		c.Collection.HNSWEF = 400
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://chatapi.akash.network/api/v1"
	}
	if c.LLM.ExpansionModel == "" {
		c.LLM.ExpansionModel = c.LLM.Model
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Search.Bluesky.BaseURL == "" {
		c.Search.Bluesky.BaseURL = "https://public.api.bsky.app"
	}
	if c.Search.Bluesky.Limit <= 0 {
		c.Search.Bluesky.Limit = 50
	}
	if c.Search.Serp.BaseURL == "" {
		c.Search.Serp.BaseURL = "https://s.jina.ai/"
	}
	if c.Search.Serp.Country == "" {
		c.Search.Serp.Country = "US"
	}
	if c.Search.Serp.Language == "" {
		c.Search.Serp.Language = "en"
	}
	if c.Search.Serp.PageSize <= 0 {
		c.Search.Serp.PageSize = 10
	}
	if c.Retrieval.ProbeLimit <= 0 {
		c.Retrieval.ProbeLimit = 10
	}
	if c.Retrieval.ProbeMinScore <= 0 {
		c.Retrieval.ProbeMinScore = 0.6
	}
	if c.Retrieval.MaxResults <= 0 {
		c.Retrieval.MaxResults = 17
	}
	if c.Retrieval.MinMeanScore <= 0 {
		c.Retrieval.MinMeanScore = 0.89
	}
	if c.Retrieval.MinHits <= 0 {
		c.Retrieval.MinHits = 7
	}
	if c.Retrieval.MaxLiveQueries <= 0 {
		c.Retrieval.MaxLiveQueries = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions > 0 && c.Embedding.Dimensions != c.Collection.Dimension {
		return fmt.Errorf(
			"embedding.dimensions (%d) must match collection.dimension (%d)",
			c.Embedding.Dimensions, c.Collection.Dimension,
		)
	}
	if c.Retrieval.ProbeMinScore > 1 || c.Retrieval.MinMeanScore > 1 {
		return fmt.Errorf("retrieval score thresholds must be in (0,1]")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
