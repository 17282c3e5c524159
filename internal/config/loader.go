package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Load starts from built-in defaults, applies an optional YAML file named by
// CONFIG_PATH, then applies environment variables on top. A `.env` file, if
// present, is loaded into the environment first with godotenv.Overload, so
// its values replace same-named variables already set. Env/`.env` values
// therefore take precedence over the YAML file.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("MATCH_DEFAULT_THRESHOLD")); v != "" {
		if f, err := parseFloat(v); err == nil {
			cfg.Matching.DefaultThreshold = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("MATCH_DEFAULT_TOP_K")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.DefaultTopK = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MATCH_DEFAULT_IMPACT_GEO")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.DefaultImpactGeo = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("EMBEDDING_BASE_URL")); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_PATH")); v != "" {
		cfg.Embedding.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")); v != "" {
		cfg.Embedding.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_API_HEADER")); v != "" {
		cfg.Embedding.APIHeader = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.TimeoutSeconds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_DIMENSION")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("GEOCODER_URL")); v != "" {
		cfg.Geo.GeocoderURL = v
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
