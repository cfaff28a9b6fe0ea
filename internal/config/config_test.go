package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			APIKey: "test-key",
			Model:  "BAAI/bge-small-en-v1.5",
		},
		LLM: LLMConfig{
			APIKey: "test-key",
			Model:  "Meta-Llama-3-1-8B-Instruct-FP8",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingModels(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing llm model")
	}

	cfg = validConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}
}

func TestValidate_DimensionMismatch(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Dimensions = 768
	cfg.Collection.Dimension = 384

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for dimension mismatch")
	}

	expected := "embedding.dimensions (768) must match collection.dimension (384)"
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 0 {
		t.Errorf("expected WriteTimeoutSec=0 (streaming), got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Storage.KeyPrefix != "lumine:" {
		t.Errorf("expected KeyPrefix='lumine:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Collection.Name != "bluesky_posts" {
		t.Errorf("expected collection name 'bluesky_posts', got %q", cfg.Collection.Name)
	}
	if cfg.Collection.Dimension != 384 {
		t.Errorf("expected dimension 384, got %d", cfg.Collection.Dimension)
	}
	if !cfg.Collection.ResetOnStartEnabled() {
		t.Error("expected ResetOnStart to default to true")
	}
	if cfg.Search.Bluesky.Limit != 50 {
		t.Errorf("expected bluesky limit 50, got %d", cfg.Search.Bluesky.Limit)
	}
	if cfg.Search.Serp.Country != "US" || cfg.Search.Serp.Language != "en" {
		t.Errorf("expected serp country/language US/en, got %s/%s",
			cfg.Search.Serp.Country, cfg.Search.Serp.Language)
	}
	if cfg.Retrieval.ProbeLimit != 10 {
		t.Errorf("expected ProbeLimit=10, got %d", cfg.Retrieval.ProbeLimit)
	}
	if cfg.Retrieval.ProbeMinScore != 0.6 {
		t.Errorf("expected ProbeMinScore=0.6, got %v", cfg.Retrieval.ProbeMinScore)
	}
	if cfg.Retrieval.MaxResults != 17 {
		t.Errorf("expected MaxResults=17, got %d", cfg.Retrieval.MaxResults)
	}
	if cfg.Retrieval.MinMeanScore != 0.89 {
		t.Errorf("expected MinMeanScore=0.89, got %v", cfg.Retrieval.MinMeanScore)
	}
	if cfg.Retrieval.MinHits != 7 {
		t.Errorf("expected MinHits=7, got %d", cfg.Retrieval.MinHits)
	}
	if cfg.Retrieval.MaxLiveQueries != 3 {
		t.Errorf("expected MaxLiveQueries=3, got %d", cfg.Retrieval.MaxLiveQueries)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	off := false
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Collection: CollectionConfig{Name: "custom", Dimension: 768, ResetOnStart: &off},
		Retrieval:  RetrievalConfig{MaxResults: 5, MaxLiveQueries: 1},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Collection.Name != "custom" {
		t.Errorf("expected collection name 'custom', got %q", cfg.Collection.Name)
	}
	if cfg.Collection.Dimension != 768 {
		t.Errorf("expected dimension 768, got %d", cfg.Collection.Dimension)
	}
	if cfg.Collection.ResetOnStartEnabled() {
		t.Error("expected ResetOnStart=false to be preserved")
	}
	if cfg.Retrieval.MaxResults != 5 {
		t.Errorf("expected MaxResults=5, got %d", cfg.Retrieval.MaxResults)
	}
	if cfg.Retrieval.MaxLiveQueries != 1 {
		t.Errorf("expected MaxLiveQueries=1, got %d", cfg.Retrieval.MaxLiveQueries)
	}
}

func TestApplyDefaults_ExpansionModelFallsBackToModel(t *testing.T) {
	cfg := Config{LLM: LLMConfig{Model: "answer-model"}}
	cfg.ApplyDefaults()

	if cfg.LLM.ExpansionModel != "answer-model" {
		t.Errorf("expected expansion model to fall back to %q, got %q",
			"answer-model", cfg.LLM.ExpansionModel)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TEST_LUMINE_KEY", "secret123")
	defer os.Unsetenv("TEST_LUMINE_KEY")

	input := []byte("api_key: ${TEST_LUMINE_KEY}\nmodel: ${TEST_LUMINE_MODEL:-default-model}")
	out := string(expandEnvVars(input))

	expected := "api_key: secret123\nmodel: default-model"
	if out != expected {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, expected)
	}
}
