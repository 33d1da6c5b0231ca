package config

import "github.com/hyperjump/kioku/internal/vectorize"

// Default returns a config with every default applied, for use without a
// config file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "memory.db"
	}
	if cfg.Index.Mode == "" {
		cfg.Index.Mode = vectorize.ModeHashed
	}
	if cfg.Index.Dimensions == 0 {
		cfg.Index.Dimensions = vectorize.DefaultDimensions
	}
	if len(cfg.Index.NGramSizes) == 0 {
		cfg.Index.NGramSizes = append([]int(nil), vectorize.DefaultNGramSizes...)
	}
	if cfg.Index.TopK == 0 {
		cfg.Index.TopK = 5
	}
	if cfg.Index.MaxTopK == 0 {
		cfg.Index.MaxTopK = 100
	}
	if cfg.Index.StopwordLanguages == nil {
		cfg.Index.StopwordLanguages = []string{"en"}
	}
}
