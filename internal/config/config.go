// Package config holds server configuration: defaults plus environment
// overrides. Settings come from the process environment (optionally
// seeded from a .env file by the CLI layer before the server starts).
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all promptops configuration.
type Config struct {
	// DataDir is where the SQLite databases live.
	DataDir string
	// PromptsDir is the on-disk prompt library scanned by the loader.
	PromptsDir string
	// TokenRatio converts character counts to token estimates.
	TokenRatio float64
	// IndexMaxKB caps the prompt index file size.
	IndexMaxKB float64
	// OllamaURL is the embedding model endpoint; empty disables it.
	OllamaURL string
	// OllamaModel names the embedding model requested from Ollama.
	OllamaModel string
}

// Default returns a Config with sensible defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:     filepath.Join(home, ".promptops"),
		PromptsDir:  "prompts",
		TokenRatio:  0.25,
		IndexMaxKB:  2,
		OllamaURL:   "",
		OllamaModel: "nomic-embed-text",
	}
}

// FromEnv returns the default configuration with environment overrides
// applied. Unparseable numeric values keep their defaults.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("PROMPTOPS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PROMPTOPS_PROMPTS_DIR"); v != "" {
		cfg.PromptsDir = v
	}
	if v := os.Getenv("TOKEN_ESTIMATE_RATIO"); v != "" {
		if ratio, err := strconv.ParseFloat(v, 64); err == nil && ratio > 0 {
			cfg.TokenRatio = ratio
		}
	}
	if v := os.Getenv("PROMPT_INDEX_MAX_KB"); v != "" {
		if max, err := strconv.ParseFloat(v, 64); err == nil && max > 0 {
			cfg.IndexMaxKB = max
		}
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("OLLAMA_EMBED_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	return cfg
}
