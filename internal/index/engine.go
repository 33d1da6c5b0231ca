// Package index wires segmentation, vectorization, storage, and ranking
// into the memory index engine.
package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/rank"
	"github.com/hyperjump/kioku/internal/segment"
	"github.com/hyperjump/kioku/internal/store"
	"github.com/hyperjump/kioku/internal/vectorize"
)

// Key prefixes distinguish directly added memories from document sections.
const memoryKeyPrefix = "memory:"

// Engine is the indexing and search engine over one store.
type Engine struct {
	store    store.Store
	strategy vectorize.Strategy
	topK     int
	logger   *zap.Logger // optional; when set, logs debug events
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for debug output (units indexed, query timing).
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over the given store and vectorizer strategy.
// defaultTopK is used by Search when the caller passes topK <= 0.
func NewEngine(st store.Store, strategy vectorize.Strategy, defaultTopK int, opts ...Option) *Engine {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	e := &Engine{store: st, strategy: strategy, topK: defaultTopK}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is one search hit.
type Result struct {
	ID       int64          `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SyncResult reports what an indexing pass did.
type SyncResult struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Removed int `json:"removed"`
}

// Add stores a new memory unit and returns its id. Metadata is opaque and
// returned verbatim with search results.
func (e *Engine) Add(ctx context.Context, content string, metadata map[string]any) (int64, error) {
	key := memoryKeyPrefix + uuid.New().String()
	res, err := e.store.Upsert(ctx, key, content, segment.Hash(content), metadata, e.strategy.Encode)
	if err != nil {
		return 0, err
	}
	if e.logger != nil {
		e.logger.Debug("memory added", zap.Int64("id", res.ID))
	}
	return res.ID, nil
}

// Update replaces a unit's content and metadata. When the content is
// unchanged the stored vector data is left untouched and document
// frequencies are not double-counted.
func (e *Engine) Update(ctx context.Context, id int64, content string, metadata map[string]any) error {
	unit, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = e.store.Upsert(ctx, unit.Key, content, segment.Hash(content), metadata, e.strategy.Encode)
	return err
}

// Delete removes a unit.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	return e.store.Delete(ctx, id)
}

// Get returns a stored unit.
func (e *Engine) Get(ctx context.Context, id int64) (*store.Unit, error) {
	return e.store.Get(ctx, id)
}

// List returns all stored units ordered by id.
func (e *Engine) List(ctx context.Context) ([]*store.Unit, error) {
	return e.store.List(ctx)
}

// Clear removes every unit and all corpus statistics.
func (e *Engine) Clear(ctx context.Context) error {
	return e.store.Clear(ctx)
}

// Rebuild clears the store and indexes every section of document from
// scratch. Corpus statistics are rebuilt solely from the section contents.
func (e *Engine) Rebuild(ctx context.Context, document string) (*SyncResult, error) {
	if err := e.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear store: %w", err)
	}
	result := &SyncResult{}
	for _, sec := range segment.Segment(document) {
		if err := e.indexSection(ctx, sec); err != nil {
			return nil, err
		}
		result.Indexed++
	}
	if e.logger != nil {
		e.logger.Info("rebuild complete", zap.Int("indexed", result.Indexed))
	}
	return result, nil
}

// Sync incrementally reconciles the store with document: unchanged sections
// are skipped, changed or new sections are re-indexed, and sections no
// longer present are deleted. Directly added memories are never touched.
// A rebuild followed by a no-change Sync ranks identically to the rebuild
// alone.
func (e *Engine) Sync(ctx context.Context, document string) (*SyncResult, error) {
	existing, err := e.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{}
	seen := make(map[string]struct{})
	for _, sec := range segment.Segment(document) {
		seen[sec.Key()] = struct{}{}
		res, err := e.store.Upsert(ctx, sec.Key(), sec.Content, segment.Hash(sec.Content),
			sectionMetadata(sec), e.strategy.Encode)
		if err != nil {
			return nil, err
		}
		if res.Changed {
			result.Indexed++
		} else {
			result.Skipped++
		}
	}
	for key, id := range existing {
		if !strings.HasPrefix(key, segment.KeyPrefix) {
			continue
		}
		if _, stays := seen[key]; stays {
			continue
		}
		if err := e.store.Delete(ctx, id); err != nil {
			return nil, err
		}
		result.Removed++
	}
	if e.logger != nil {
		e.logger.Info("sync complete",
			zap.Int("indexed", result.Indexed),
			zap.Int("skipped", result.Skipped),
			zap.Int("removed", result.Removed))
	}
	return result, nil
}

func (e *Engine) indexSection(ctx context.Context, sec *segment.Section) error {
	_, err := e.store.Upsert(ctx, sec.Key(), sec.Content, segment.Hash(sec.Content),
		sectionMetadata(sec), e.strategy.Encode)
	if err != nil {
		return fmt.Errorf("failed to index section %q: %w", sec.Key(), err)
	}
	return nil
}

func sectionMetadata(sec *segment.Section) map[string]any {
	path := make([]any, len(sec.HeadingPath))
	for i, h := range sec.HeadingPath {
		path[i] = h
	}
	return map[string]any{
		"title":        sec.Title(),
		"heading_path": path,
		"level":        sec.Level,
	}
}

// Search returns the topK most similar units for the query, descending by
// cosine similarity. Scores are never thresholded: up to topK units come
// back however weak the match. An empty query or an empty store yields an
// empty slice, not an error. topK <= 0 uses the engine default. TF-IDF weights
// are derived from live corpus statistics at query time for both the query
// and every stored unit, so incremental updates can never skew ranking
// against a full rebuild.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	startTime := time.Now()
	if topK <= 0 {
		topK = e.topK
	}
	results := make([]Result, 0, topK)
	if strings.TrimSpace(query) == "" {
		return results, nil
	}

	var stats *vectorize.CorpusStats
	if e.strategy.Name() == vectorize.ModeTFIDF {
		var err error
		if stats, err = e.store.CorpusStats(ctx); err != nil {
			return nil, err
		}
	}
	queryVec := vectorize.Vectorize(e.strategy, query, stats)

	vectors, err := e.store.AllVectors(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]*rank.Candidate, len(vectors))
	byID := make(map[int64]*store.UnitVector, len(vectors))
	for i, uv := range vectors {
		candidates[i] = &rank.Candidate{ID: uv.ID, Vector: e.strategy.Weigh(uv.Encoding, stats)}
		byID[uv.ID] = uv
	}

	for _, hit := range rank.Rank(queryVec, candidates, topK) {
		uv := byID[hit.ID]
		results = append(results, Result{
			ID:       hit.ID,
			Content:  uv.Content,
			Score:    hit.Score,
			Metadata: uv.Metadata,
		})
	}
	if e.logger != nil {
		e.logger.Debug("search complete",
			zap.Int("candidates", len(candidates)),
			zap.Int("results", len(results)),
			zap.Duration("took", time.Since(startTime)))
	}
	return results, nil
}

// Stats summarizes the underlying store.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.store.Stats(ctx)
}
