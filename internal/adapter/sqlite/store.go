// Package sqlite is the local vector index: chunk text, metadata and
// embedding vectors persisted in a single database file under a configurable
// directory, queried by exact brute-force cosine comparison. For a corpus in
// the low thousands of chunks this is an acceptable substitute for an
// approximate graph index, and it makes the rank-1 self-match property exact.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "modernc.org/sqlite"

	"fleetrag/internal/chunk"
	"fleetrag/internal/retrieval"
)

type Store struct {
	dir        string
	collection string
	dim        int
}

// NewStore keys the index to dir/<collection>.db. dim is the expected
// embedding dimensionality; 0 means "accept whatever the first rebuild
// brings" (the recorded dimension is still enforced at query time).
func NewStore(dir, collection string, dim int) *Store {
	return &Store{dir: dir, collection: collection, dim: dim}
}

func (s *Store) livePath() string {
	return filepath.Join(s.dir, s.collection+".db")
}

func (s *Store) buildPath() string {
	return filepath.Join(s.dir, s.collection+".building.db")
}

// Rebuild fully replaces the collection: every chunk is written with its
// stable chunk_<ordinal> id into a fresh database file, which is then renamed
// over the live one. Queries keep serving the old file until the rename, so
// there is no window with no valid index. Rebuild assumes exclusive write
// access; concurrent rebuilds against the same directory are not supported.
func (s *Store) Rebuild(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	dim := s.dim
	for i, vec := range vectors {
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), dim)
		}
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := os.Remove(s.buildPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale build file: %w", err)
	}

	if err := s.writeBuildFile(ctx, chunks, vectors, dim); err != nil {
		return err
	}

	if err := os.Rename(s.buildPath(), s.livePath()); err != nil {
		return fmt.Errorf("swap index file: %w", err)
	}
	return nil
}

func (s *Store) writeBuildFile(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32, dim int) error {
	db, err := sql.Open("sqlite", s.buildPath())
	if err != nil {
		return fmt.Errorf("open build file: %w", err)
	}
	defer db.Close()

	schema := `
		CREATE TABLE chunks (
			ordinal  INTEGER PRIMARY KEY,
			chunk_id TEXT NOT NULL UNIQUE,
			text     TEXT NOT NULL,
			metadata TEXT NOT NULL,
			vector   BLOB NOT NULL
		);
		CREATE TABLE collection_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (ordinal, chunk_id, text, metadata, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for chunk %d: %w", i, err)
		}
		chunkID := fmt.Sprintf("chunk_%d", i)
		if _, err := insert.ExecContext(ctx, i, chunkID, c.Text, string(meta), EncodeVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collection_meta (key, value) VALUES ('dimension', ?)`,
		strconv.Itoa(dim)); err != nil {
		return err
	}

	return tx.Commit()
}

// Query returns the k nearest chunks by ascending cosine distance, ties kept
// in original ordinal order. A missing index file is a normal cold-start
// condition and yields an empty result, never an error. A query vector whose
// dimension differs from the indexed one is rejected: vectors from different
// models are not comparable.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]retrieval.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	db, ok, err := s.openLive()
	if err != nil || !ok {
		return nil, err
	}
	defer db.Close()

	var dimStr string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM collection_meta WHERE key = 'dimension'`).Scan(&dimStr)
	if err != nil {
		return nil, fmt.Errorf("read index dimension: %w", err)
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt index dimension %q: %w", dimStr, err)
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("query vector dimension %d does not match index dimension %d", len(vector), dim)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT text, metadata, vector FROM chunks ORDER BY ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []retrieval.Hit
	for rows.Next() {
		var text, meta string
		var blob []byte
		if err := rows.Scan(&text, &meta, &blob); err != nil {
			return nil, err
		}

		stored, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}

		var metadata map[string]string
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			return nil, fmt.Errorf("corrupt chunk metadata: %w", err)
		}

		hits = append(hits, retrieval.Hit{
			Chunk:    chunk.Chunk{Text: text, Metadata: metadata},
			Distance: cosineDistance(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	db, ok, err := s.openLive()
	if err != nil || !ok {
		return 0, err
	}
	defer db.Close()

	var count int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// openLive opens the live index file if it exists. ok=false means the index
// has not been built yet.
func (s *Store) openLive() (*sql.DB, bool, error) {
	if _, err := os.Stat(s.livePath()); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	db, err := sql.Open("sqlite", s.livePath())
	if err != nil {
		return nil, false, err
	}
	return db, true, nil
}
