package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MATCH_DEFAULT_THRESHOLD", "MATCH_DEFAULT_TOP_K", "MATCH_DEFAULT_IMPACT_GEO",
		"EMBEDDING_BASE_URL", "EMBEDDING_PATH", "EMBEDDING_MODEL", "EMBEDDING_API_KEY",
		"EMBEDDING_API_HEADER", "EMBEDDING_TIMEOUT_SECONDS", "EMBEDDING_DIMENSION",
		"GEOCODER_URL", "LOG_LEVEL", "CONFIG_PATH",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Matching.DefaultThreshold != 0.10 {
		t.Errorf("expected default threshold 0.10, got %v", cfg.Matching.DefaultThreshold)
	}
	if cfg.Matching.DefaultTopK != 3 {
		t.Errorf("expected default top_k 3, got %d", cfg.Matching.DefaultTopK)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("MATCH_DEFAULT_THRESHOLD", "0.25")
	os.Setenv("MATCH_DEFAULT_TOP_K", "5")
	os.Setenv("EMBEDDING_MODEL", "text-embedding-3-small")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Matching.DefaultThreshold != 0.25 {
		t.Errorf("expected overridden threshold 0.25, got %v", cfg.Matching.DefaultThreshold)
	}
	if cfg.Matching.DefaultTopK != 5 {
		t.Errorf("expected overridden top_k 5, got %d", cfg.Matching.DefaultTopK)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected overridden model, got %q", cfg.Embedding.Model)
	}
}

func TestEmbeddingConfig_TimeoutDefault(t *testing.T) {
	var e EmbeddingConfig
	if e.Timeout().Seconds() != 30 {
		t.Fatalf("expected default 30s timeout, got %v", e.Timeout())
	}
}

func TestEmbeddingConfig_TimeoutConfigured(t *testing.T) {
	e := EmbeddingConfig{TimeoutSeconds: 5}
	if e.Timeout().Seconds() != 5 {
		t.Fatalf("expected 5s timeout, got %v", e.Timeout())
	}
}
