// Package store persists units, vector data, and corpus statistics in SQLite.
package store

import (
	"context"
	"time"

	"github.com/hyperjump/kioku/internal/vectorize"
)

// Unit is one stored, addressable piece of indexed text.
type Unit struct {
	ID          int64          `json:"id"`
	Key         string         `json:"key"`
	Content     string         `json:"content"`
	ContentHash string         `json:"content_hash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// UnitVector is the per-unit scan row consumed by the ranker: the unit's
// stored vector data plus what search results need to carry back.
type UnitVector struct {
	ID       int64
	Content  string
	Metadata map[string]any
	Encoding *vectorize.Encoding
}

// Stats summarizes the store's contents.
type Stats struct {
	Units          int        `json:"units"`
	Mode           string     `json:"mode"`
	VocabularySize int        `json:"vocabulary_size,omitempty"`
	Dimensions     int        `json:"dimensions,omitempty"`
	SizeBytes      int64      `json:"size_bytes"`
	Newest         *time.Time `json:"newest,omitempty"`
	Oldest         *time.Time `json:"oldest,omitempty"`
}

// UpsertResult reports what an upsert did.
type UpsertResult struct {
	ID int64
	// Changed is false when the key already existed with an identical
	// content hash and the write was skipped.
	Changed bool
	// Created is true when a new unit was inserted.
	Created bool
}

// Store is the persistence contract for units, vector data, and corpus
// statistics. A single writer is assumed; every mutation is atomic.
type Store interface {
	// Upsert writes a unit by key. When the key exists with an unchanged
	// content hash it is a no-op and encode is never called; otherwise
	// encode(content) supplies the vector data to persist, and corpus
	// statistics are adjusted by the term-set delta.
	Upsert(ctx context.Context, key, content, contentHash string, metadata map[string]any, encode func(string) *vectorize.Encoding) (*UpsertResult, error)
	// Delete removes a unit and decrements corpus statistics for its terms.
	Delete(ctx context.Context, id int64) error
	// DeleteByKey removes a unit identified by its upsert key.
	DeleteByKey(ctx context.Context, key string) error
	// Get returns a unit by id.
	Get(ctx context.Context, id int64) (*Unit, error)
	// List returns all units ordered by ascending id.
	List(ctx context.Context) ([]*Unit, error)
	// Keys returns the set of upsert keys currently stored.
	Keys(ctx context.Context) (map[string]int64, error)
	// AllVectors returns every unit's vector data, the ranker's scan input.
	AllVectors(ctx context.Context) ([]*UnitVector, error)
	// CorpusStats returns the live corpus statistics.
	CorpusStats(ctx context.Context) (*vectorize.CorpusStats, error)
	// Clear removes all units and statistics.
	Clear(ctx context.Context) error
	// Stats summarizes the store.
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
