// Package config provides configuration loading and structs for the Kioku tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Index   IndexConfig   `yaml:"index"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// IndexConfig holds vectorizer and search settings. These are consumed by
// the core at construction time; the core itself owns no configuration.
type IndexConfig struct {
	// Mode selects the vectorizer: "hashed" (default) or "tfidf".
	Mode string `yaml:"mode"`
	// Dimensions is the dense vector dimension (hashed mode only).
	Dimensions int `yaml:"dimensions"`
	// NGramSizes are the character n-gram lengths (hashed mode only).
	NGramSizes []int `yaml:"ngram_sizes"`
	// TopK is the default number of search results.
	TopK int `yaml:"top_k"`
	// MaxTopK caps the per-request result count.
	MaxTopK int `yaml:"max_top_k"`
	// StopwordLanguages selects bundled stopword lists by language code.
	StopwordLanguages []string `yaml:"stopword_languages"`
	// ExtraStopwords are additional words to filter.
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

// WatchConfig holds source documents to watch and re-sync on change.
type WatchConfig struct {
	Files []string `yaml:"files"`
}

// Load reads and parses the config file at path, applies defaults, and
// expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Files {
		cfg.Watch.Files[i] = expandPath(cfg.Watch.Files[i], configDir)
	}
	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
