package config

import "time"

// Config is the process-wide configuration for the matching engine.
type Config struct {
	Matching  MatchingConfig  `yaml:"matching"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Geo       GeoConfig       `yaml:"geo"`

	LogLevel string `yaml:"log_level"`
}

// MatchingConfig carries matching tunables. matchctl passes DefaultThreshold
// and DefaultImpactGeo to the matcher as the values FindMatches falls back
// to when a caller does not supply an explicit override; DefaultTopK is
// loaded but not passed to the matcher.
type MatchingConfig struct {
	DefaultThreshold float64 `yaml:"default_threshold"`
	DefaultTopK      int     `yaml:"default_top_k"`
	DefaultImpactGeo int     `yaml:"default_impact_geo"`
}

// EmbeddingConfig configures the HTTP embedding backend. Field names mirror
// the wire shape the teacher's embedding client already speaks.
type EmbeddingConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Path           string            `yaml:"path"`
	Model          string            `yaml:"model"`
	APIKey         string            `yaml:"api_key"`
	APIHeader      string            `yaml:"api_header"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Dimension      int               `yaml:"dimension"`
}

// Timeout returns the configured embedding timeout as a time.Duration,
// defaulting to 30s when unset.
func (c EmbeddingConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GeoConfig configures the optional external geocoder used to resolve
// cities outside the built-in static table.
type GeoConfig struct {
	GeocoderURL string `yaml:"geocoder_url,omitempty"`
}

func defaults() Config {
	return Config{
		Matching: MatchingConfig{
			DefaultThreshold: 0.10,
			DefaultTopK:      3,
			DefaultImpactGeo: 1,
		},
		Embedding: EmbeddingConfig{
			Path:           "/v1/embeddings",
			TimeoutSeconds: 30,
			Dimension:      64,
		},
		LogLevel: "info",
	}
}
