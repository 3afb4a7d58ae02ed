package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"faustpilot/internal/embedding"
	"faustpilot/internal/logging"
)

// DocChunk is one retrievable section of library documentation.
type DocChunk struct {
	ID        int64
	Library   string
	Heading   string
	Content   string
	Embedding []float32
}

// ScoredChunk pairs a chunk with its retrieval score.
type ScoredChunk struct {
	Chunk DocChunk
	Score float64
}

// StoreChunk inserts a doc chunk. A nil embedding is allowed; the chunk is
// then only reachable through keyword recall.
func (s *LocalStore) StoreChunk(ctx context.Context, chunk DocChunk) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var embJSON any
	if chunk.Embedding != nil {
		data, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return 0, fmt.Errorf("marshal embedding: %w", err)
		}
		embJSON = string(data)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO doc_chunks (library, heading, content, embedding) VALUES (?, ?, ?, ?)`,
		chunk.Library, chunk.Heading, chunk.Content, embJSON)
	if err != nil {
		return 0, fmt.Errorf("insert chunk: %w", err)
	}
	return res.LastInsertId()
}

// ClearLibrary removes all chunks for a library. Used before re-indexing.
func (s *LocalStore) ClearLibrary(ctx context.Context, library string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM doc_chunks WHERE library = ?`, library)
	return err
}

// ChunkCount returns the number of stored chunks.
func (s *LocalStore) ChunkCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM doc_chunks`).Scan(&n)
	return n, err
}

// SemanticRecall ranks all embedded chunks against the query vector by
// cosine similarity and returns the best k. Chunks without an embedding
// are skipped.
func (s *LocalStore) SemanticRecall(ctx context.Context, query []float32, k int) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, library, heading, content, embedding FROM doc_chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []DocChunk
	var vectors [][]float32
	for rows.Next() {
		chunk, vec, err := scanChunk(rows)
		if err != nil {
			logging.For(logging.CategoryStore).Warnw("skipping unreadable chunk", "error", err)
			continue
		}
		chunks = append(chunks, chunk)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ranked := embedding.FindTopK(query, vectors, k)
	results := make([]ScoredChunk, 0, len(ranked))
	for _, r := range ranked {
		chunk := chunks[r.Index]
		chunk.Embedding = vectors[r.Index]
		results = append(results, ScoredChunk{Chunk: chunk, Score: r.Similarity})
	}
	return results, nil
}

// KeywordRecall finds chunks whose heading or content contains every term.
// This is the fallback path when no embedding engine is configured.
func (s *LocalStore) KeywordRecall(ctx context.Context, terms []string, k int) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(terms) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}

	query := `SELECT id, library, heading, content, embedding FROM doc_chunks WHERE 1=1`
	args := make([]any, 0, len(terms))
	for _, term := range terms {
		query += ` AND (heading LIKE ? OR content LIKE ?)`
		pattern := "%" + term + "%"
		args = append(args, pattern, pattern)
	}
	query += ` LIMIT ?`
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword query: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		chunk, vec, err := scanChunk(rows)
		if err != nil {
			continue
		}
		chunk.Embedding = vec
		results = append(results, ScoredChunk{Chunk: chunk})
	}
	return results, rows.Err()
}

func scanChunk(rows *sql.Rows) (DocChunk, []float32, error) {
	var chunk DocChunk
	var embJSON sql.NullString
	if err := rows.Scan(&chunk.ID, &chunk.Library, &chunk.Heading, &chunk.Content, &embJSON); err != nil {
		return DocChunk{}, nil, err
	}
	var vec []float32
	if embJSON.Valid {
		if err := json.Unmarshal([]byte(embJSON.String), &vec); err != nil {
			return DocChunk{}, nil, fmt.Errorf("decode embedding for chunk %d: %w", chunk.ID, err)
		}
	}
	return chunk, vec, nil
}
