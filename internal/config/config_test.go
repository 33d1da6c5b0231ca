package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/kioku/internal/vectorize"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: 0.0.0.0
  port: 9090
storage:
  database_path: ./data/memory.db
index:
  mode: tfidf
  top_k: 10
  stopword_languages: [en, de]
watch:
  files:
    - ./notes.md
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server: %+v", cfg.Server)
	}
	if cfg.Index.Mode != vectorize.ModeTFIDF || cfg.Index.TopK != 10 {
		t.Errorf("index: %+v", cfg.Index)
	}
	if !reflect.DeepEqual(cfg.Index.StopwordLanguages, []string{"en", "de"}) {
		t.Errorf("stopword languages: %v", cfg.Index.StopwordLanguages)
	}
	// "./" paths expand relative to the config directory.
	if cfg.Storage.DatabasePath != filepath.Join(dir, "data/memory.db") {
		t.Errorf("database path: %q", cfg.Storage.DatabasePath)
	}
	if cfg.Watch.Files[0] != filepath.Join(dir, "notes.md") {
		t.Errorf("watch file: %q", cfg.Watch.Files[0])
	}
	// Unset values still get defaults.
	if cfg.Index.MaxTopK != 100 {
		t.Errorf("max top k default: %d", cfg.Index.MaxTopK)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("foo: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Index.Mode != vectorize.ModeHashed {
		t.Errorf("default mode: %q", cfg.Index.Mode)
	}
	if cfg.Index.Dimensions != vectorize.DefaultDimensions {
		t.Errorf("default dimensions: %d", cfg.Index.Dimensions)
	}
	if cfg.Index.TopK != 5 {
		t.Errorf("default top_k: %d", cfg.Index.TopK)
	}
	if cfg.Storage.DatabasePath != "memory.db" {
		t.Errorf("default database path: %q", cfg.Storage.DatabasePath)
	}
	if !reflect.DeepEqual(cfg.Index.StopwordLanguages, []string{"en"}) {
		t.Errorf("default stopword languages: %v", cfg.Index.StopwordLanguages)
	}
}
