package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kioku/internal/vectorize"
)

// busyTimeout bounds how long a write waits for the database lock before
// failing with ErrStoreUnavailable.
const busyTimeout = 5 * time.Second

// SQLite implements Store using SQLite in WAL mode. One writer is
// serialized at the file level; concurrent readers see a consistent
// snapshot.
type SQLite struct {
	db         *sql.DB
	path       string
	mode       string
	dimensions int
}

// Open opens or creates a SQLite store at dbPath for the given vectorizer
// mode. Parent directories are created if they do not exist. A database
// created under a different mode or dimension, or whose recorded unit count
// disagrees with its contents, fails with ErrCorruptState.
func Open(dbPath, mode string, dimensions int) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate",
		dbPath, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, wrapSQLite("open database", err)
	}

	s := &SQLite{db: db, path: dbPath, mode: mode, dimensions: dimensions}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, wrapSQLite("initialize schema", err)
	}
	if err := s.checkConsistency(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS units (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT UNIQUE NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_units_created_at ON units(created_at);

	CREATE TABLE IF NOT EXISTS unit_terms (
		unit_id INTEGER NOT NULL,
		term TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (unit_id, term)
	);

	CREATE TABLE IF NOT EXISTS unit_vectors (
		unit_id INTEGER PRIMARY KEY,
		components BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS corpus_stats (
		term TEXT PRIMARY KEY,
		df INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS index_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	// First open records the vectorizer configuration; later opens must match.
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO index_meta (key, value) VALUES
		 ('mode', ?), ('dimensions', ?), ('unit_count', '0')`,
		s.mode, strconv.Itoa(s.dimensions))
	return err
}

// checkConsistency verifies the recorded configuration and unit count
// against the actual contents. Any mismatch means the statistics cannot be
// trusted for ranking and only a rebuild recovers.
func (s *SQLite) checkConsistency() error {
	meta, err := s.readMeta()
	if err != nil {
		return wrapSQLite("read index metadata", err)
	}
	if meta["mode"] != s.mode {
		return fmt.Errorf("%w: database was created with mode %q, configured mode is %q",
			ErrCorruptState, meta["mode"], s.mode)
	}
	if s.mode == vectorize.ModeHashed {
		if dim, _ := strconv.Atoi(meta["dimensions"]); dim != s.dimensions {
			return fmt.Errorf("%w: database has dimension %d, configured dimension is %d",
				ErrCorruptState, dim, s.dimensions)
		}
	}
	recorded, _ := strconv.Atoi(meta["unit_count"])
	var actual int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM units`).Scan(&actual); err != nil {
		return wrapSQLite("count units", err)
	}
	if recorded != actual {
		return fmt.Errorf("%w: recorded unit count %d, found %d units (rebuild required)",
			ErrCorruptState, recorded, actual)
	}
	return nil
}

func (s *SQLite) readMeta() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM index_meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// Upsert writes a unit by key inside one immediate transaction. encode is
// only invoked when the content hash differs from the stored one, so
// unchanged content is never re-vectorized.
func (s *SQLite) Upsert(ctx context.Context, key, content, contentHash string, metadata map[string]any, encode func(string) *vectorize.Encoding) (*UpsertResult, error) {
	metadataJSON, err := marshalMetadata(metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapSQLite("begin upsert", err)
	}
	defer tx.Rollback()

	var id int64
	var oldHash string
	err = tx.QueryRowContext(ctx,
		`SELECT id, content_hash FROM units WHERE key = ?`, key,
	).Scan(&id, &oldHash)

	now := time.Now().UTC()
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO units (key, content, content_hash, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			key, content, contentHash, metadataJSON, now, now)
		if err != nil {
			return nil, wrapSQLite("insert unit", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return nil, wrapSQLite("insert unit", err)
		}
		if err := s.writeVectorData(ctx, tx, id, encode(content), nil); err != nil {
			return nil, err
		}
		if err := bumpUnitCount(ctx, tx, +1); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, wrapSQLite("commit upsert", err)
		}
		return &UpsertResult{ID: id, Changed: true, Created: true}, nil

	case err != nil:
		return nil, wrapSQLite("lookup unit", err)

	case oldHash == contentHash:
		// Identical content: leave the stored vector data untouched.
		return &UpsertResult{ID: id, Changed: false}, nil
	}

	oldTerms, err := s.termSet(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE units SET content = ?, content_hash = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		content, contentHash, metadataJSON, now, id); err != nil {
		return nil, wrapSQLite("update unit", err)
	}
	if err := s.writeVectorData(ctx, tx, id, encode(content), oldTerms); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapSQLite("commit upsert", err)
	}
	return &UpsertResult{ID: id, Changed: true}, nil
}

// writeVectorData replaces the unit's stored vector data and applies
// document-frequency deltas against oldTerms (nil for a fresh insert).
func (s *SQLite) writeVectorData(ctx context.Context, tx *sql.Tx, id int64, enc *vectorize.Encoding, oldTerms map[string]struct{}) error {
	if s.mode == vectorize.ModeHashed {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO unit_vectors (unit_id, components) VALUES (?, ?)
			 ON CONFLICT(unit_id) DO UPDATE SET components = excluded.components`,
			id, float32SliceToBytes(enc.Components))
		return wrapSQLite("write vector", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM unit_terms WHERE unit_id = ?`, id); err != nil {
		return wrapSQLite("clear unit terms", err)
	}
	for term, count := range enc.TermCounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO unit_terms (unit_id, term, count) VALUES (?, ?, ?)`,
			id, term, count); err != nil {
			return wrapSQLite("write unit terms", err)
		}
	}
	for term := range enc.TermCounts {
		if _, stayed := oldTerms[term]; stayed {
			continue
		}
		if err := bumpDF(ctx, tx, term, +1); err != nil {
			return err
		}
	}
	for term := range oldTerms {
		if _, stays := enc.TermCounts[term]; stays {
			continue
		}
		if err := bumpDF(ctx, tx, term, -1); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) termSet(ctx context.Context, tx *sql.Tx, id int64) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT term FROM unit_terms WHERE unit_id = ?`, id)
	if err != nil {
		return nil, wrapSQLite("read unit terms", err)
	}
	defer rows.Close()
	terms := make(map[string]struct{})
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, wrapSQLite("read unit terms", err)
		}
		terms[term] = struct{}{}
	}
	return terms, wrapSQLite("read unit terms", rows.Err())
}

func bumpDF(ctx context.Context, tx *sql.Tx, term string, delta int) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpus_stats (term, df) VALUES (?, ?)
		 ON CONFLICT(term) DO UPDATE SET df = df + ?`,
		term, delta, delta); err != nil {
		return wrapSQLite("update document frequency", err)
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM corpus_stats WHERE term = ? AND df <= 0`, term)
	return wrapSQLite("update document frequency", err)
}

func bumpUnitCount(ctx context.Context, tx *sql.Tx, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE index_meta SET value = CAST(CAST(value AS INTEGER) + ? AS TEXT)
		 WHERE key = 'unit_count'`, delta)
	return wrapSQLite("update unit count", err)
}

// Delete removes a unit and decrements document frequency for each of its
// unique terms.
func (s *SQLite) Delete(ctx context.Context, id int64) error {
	return s.delete(ctx, `SELECT id FROM units WHERE id = ?`, id)
}

// DeleteByKey removes a unit identified by its upsert key.
func (s *SQLite) DeleteByKey(ctx context.Context, key string) error {
	return s.delete(ctx, `SELECT id FROM units WHERE key = ?`, key)
}

func (s *SQLite) delete(ctx context.Context, lookup string, arg any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapSQLite("begin delete", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, lookup, arg).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return wrapSQLite("lookup unit", err)
	}

	if s.mode == vectorize.ModeTFIDF {
		terms, err := s.termSet(ctx, tx, id)
		if err != nil {
			return err
		}
		for term := range terms {
			if err := bumpDF(ctx, tx, term, -1); err != nil {
				return err
			}
		}
	}
	for _, stmt := range []string{
		`DELETE FROM unit_terms WHERE unit_id = ?`,
		`DELETE FROM unit_vectors WHERE unit_id = ?`,
		`DELETE FROM units WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return wrapSQLite("delete unit", err)
		}
	}
	if err := bumpUnitCount(ctx, tx, -1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapSQLite("commit delete", err)
	}
	return nil
}

// Get returns a unit by id.
func (s *SQLite) Get(ctx context.Context, id int64) (*Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, key, content, content_hash, metadata, created_at, updated_at
		 FROM units WHERE id = ?`, id)
	unit, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapSQLite("get unit", err)
	}
	return unit, nil
}

// List returns all units ordered by ascending id.
func (s *SQLite) List(ctx context.Context) ([]*Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, content, content_hash, metadata, created_at, updated_at
		 FROM units ORDER BY id`)
	if err != nil {
		return nil, wrapSQLite("list units", err)
	}
	defer rows.Close()
	var units []*Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, wrapSQLite("list units", err)
		}
		units = append(units, unit)
	}
	return units, wrapSQLite("list units", rows.Err())
}

// Keys returns the stored upsert keys mapped to unit ids.
func (s *SQLite) Keys(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, id FROM units`)
	if err != nil {
		return nil, wrapSQLite("list keys", err)
	}
	defer rows.Close()
	keys := make(map[string]int64)
	for rows.Next() {
		var key string
		var id int64
		if err := rows.Scan(&key, &id); err != nil {
			return nil, wrapSQLite("list keys", err)
		}
		keys[key] = id
	}
	return keys, wrapSQLite("list keys", rows.Err())
}

// AllVectors returns every unit's id, content, metadata, and stored vector
// data, ordered by ascending id.
func (s *SQLite) AllVectors(ctx context.Context) ([]*UnitVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata FROM units ORDER BY id`)
	if err != nil {
		return nil, wrapSQLite("scan vectors", err)
	}
	defer rows.Close()

	var vectors []*UnitVector
	byID := make(map[int64]*UnitVector)
	for rows.Next() {
		var uv UnitVector
		var metadataJSON sql.NullString
		if err := rows.Scan(&uv.ID, &uv.Content, &metadataJSON); err != nil {
			return nil, wrapSQLite("scan vectors", err)
		}
		if uv.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
			return nil, err
		}
		uv.Encoding = &vectorize.Encoding{}
		if s.mode == vectorize.ModeTFIDF {
			uv.Encoding.TermCounts = make(map[string]int)
		}
		vectors = append(vectors, &uv)
		byID[uv.ID] = &uv
	}
	if err := rows.Err(); err != nil {
		return nil, wrapSQLite("scan vectors", err)
	}

	if s.mode == vectorize.ModeHashed {
		vrows, err := s.db.QueryContext(ctx, `SELECT unit_id, components FROM unit_vectors`)
		if err != nil {
			return nil, wrapSQLite("scan vectors", err)
		}
		defer vrows.Close()
		for vrows.Next() {
			var id int64
			var blob []byte
			if err := vrows.Scan(&id, &blob); err != nil {
				return nil, wrapSQLite("scan vectors", err)
			}
			if uv, ok := byID[id]; ok {
				uv.Encoding.Components = bytesToFloat32Slice(blob)
			}
		}
		return vectors, wrapSQLite("scan vectors", vrows.Err())
	}

	trows, err := s.db.QueryContext(ctx, `SELECT unit_id, term, count FROM unit_terms`)
	if err != nil {
		return nil, wrapSQLite("scan vectors", err)
	}
	defer trows.Close()
	for trows.Next() {
		var id int64
		var term string
		var count int
		if err := trows.Scan(&id, &term, &count); err != nil {
			return nil, wrapSQLite("scan vectors", err)
		}
		if uv, ok := byID[id]; ok {
			uv.Encoding.TermCounts[term] = count
		}
	}
	return vectors, wrapSQLite("scan vectors", trows.Err())
}

// CorpusStats returns the live document frequencies and unit count.
func (s *SQLite) CorpusStats(ctx context.Context) (*vectorize.CorpusStats, error) {
	stats := &vectorize.CorpusStats{DocFreq: make(map[string]int)}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units`).Scan(&stats.TotalUnits); err != nil {
		return nil, wrapSQLite("count units", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT term, df FROM corpus_stats`)
	if err != nil {
		return nil, wrapSQLite("read corpus stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var term string
		var df int
		if err := rows.Scan(&term, &df); err != nil {
			return nil, wrapSQLite("read corpus stats", err)
		}
		stats.DocFreq[term] = df
	}
	return stats, wrapSQLite("read corpus stats", rows.Err())
}

// Clear removes all units, vector data, and corpus statistics.
func (s *SQLite) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapSQLite("begin clear", err)
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM unit_terms`,
		`DELETE FROM unit_vectors`,
		`DELETE FROM corpus_stats`,
		`DELETE FROM units`,
		`UPDATE index_meta SET value = '0' WHERE key = 'unit_count'`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrapSQLite("clear store", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapSQLite("commit clear", err)
	}
	return nil
}

// Stats summarizes the store's contents and on-disk size.
func (s *SQLite) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Mode: s.mode}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units`).Scan(&stats.Units); err != nil {
		return nil, wrapSQLite("count units", err)
	}
	if s.mode == vectorize.ModeHashed {
		stats.Dimensions = s.dimensions
	} else {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_stats`).Scan(&stats.VocabularySize); err != nil {
			return nil, wrapSQLite("count vocabulary", err)
		}
	}
	stats.SizeBytes = diskUsageBytes(s.path, s.path+"-wal")
	if stats.Units > 0 {
		var newest, oldest time.Time
		if err := s.db.QueryRowContext(ctx,
			`SELECT created_at FROM units ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&newest); err != nil {
			return nil, wrapSQLite("read timestamps", err)
		}
		if err := s.db.QueryRowContext(ctx,
			`SELECT created_at FROM units ORDER BY created_at ASC, id ASC LIMIT 1`).Scan(&oldest); err != nil {
			return nil, wrapSQLite("read timestamps", err)
		}
		stats.Newest, stats.Oldest = &newest, &oldest
	}
	return stats, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(row scanner) (*Unit, error) {
	var unit Unit
	var metadataJSON sql.NullString
	err := row.Scan(&unit.ID, &unit.Key, &unit.Content, &unit.ContentHash,
		&metadataJSON, &unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if unit.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
		return nil, err
	}
	return &unit, nil
}

func marshalMetadata(metadata map[string]any) (any, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(metadataJSON sql.NullString) (map[string]any, error) {
	if !metadataJSON.Valid || metadataJSON.String == "" {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return metadata, nil
}
