package store

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/port"
)

// VectorStore handles pgvector-specific operations for file embeddings.
type VectorStore struct {
	store     *PostgresStore
	dimension int
}

// NewVectorStore creates a vector store backed by the given Postgres store.
func NewVectorStore(store *PostgresStore, dimension int) *VectorStore {
	return &VectorStore{store: store, dimension: dimension}
}

// HasEmbedding reports whether a (project, file) pair is already indexed.
func (v *VectorStore) HasEmbedding(ctx context.Context, projectID, fileName string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM file_embeddings WHERE project_id = $1 AND file_name = $2)`

	var exists bool
	if err := v.store.db.QueryRowContext(ctx, query, projectID, fileName).Scan(&exists); err != nil {
		return false, fmt.Errorf("check embedding: %w", err)
	}
	return exists, nil
}

// UpsertEmbedding persists summary, raw content and vector in one logical
// write. An already-indexed (project, file) pair is skipped, not overwritten;
// re-indexing a path requires explicit deletion first.
func (v *VectorStore) UpsertEmbedding(ctx context.Context, e *domain.FileEmbedding) error {
	if err := v.validateVector(e.Vector); err != nil {
		return err
	}

	query := `INSERT INTO file_embeddings (project_id, file_name, summary, source_code, summary_embedding)
	          VALUES ($1, $2, $3, $4, $5::vector)
	          ON CONFLICT (project_id, file_name) DO NOTHING`

	_, err := v.store.db.ExecContext(ctx, query,
		e.ProjectID, e.FileName, e.Summary, e.SourceCode, vectorToString(e.Vector),
	)
	if err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

// similaritySearchQuery ranks by cosine similarity with a strict floor and a
// deterministic tie-break (most recently inserted row first). Params: query
// vector, project id, floor, limit.
const similaritySearchQuery = `SELECT file_name, source_code, summary,
	       1 - (summary_embedding <=> $1::vector) AS similarity
	FROM file_embeddings
	WHERE project_id = $2
	  AND 1 - (summary_embedding <=> $1::vector) > $3
	ORDER BY similarity DESC, created_at DESC, id DESC
	LIMIT $4`

// SimilaritySearch returns rows strictly above minSimilarity by cosine
// similarity, best match first, capped at topK. Ties break to the most
// recently inserted row so results are deterministic.
func (v *VectorStore) SimilaritySearch(ctx context.Context, projectID string, query []float32, topK int, minSimilarity float64) ([]domain.FileReference, error) {
	if err := v.validateVector(query); err != nil {
		return nil, err
	}

	rows, err := v.store.db.QueryContext(ctx, similaritySearchQuery, vectorToString(query), projectID, minSimilarity, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []domain.FileReference
	for rows.Next() {
		var ref domain.FileReference
		if err := rows.Scan(&ref.FileName, &ref.SourceCode, &ref.Summary, &ref.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		results = append(results, ref)
	}
	return results, rows.Err()
}

// DeleteEmbeddings deletes all embeddings for a project, the explicit
// precondition for re-indexing its files.
func (v *VectorStore) DeleteEmbeddings(ctx context.Context, projectID string) error {
	_, err := v.store.db.ExecContext(ctx, `DELETE FROM file_embeddings WHERE project_id = $1`, projectID)
	return err
}

// validateVector rejects malformed vectors before they reach storage.
func (v *VectorStore) validateVector(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", port.ErrInvalidQuery)
	}
	if v.dimension > 0 && len(vec) != v.dimension {
		return fmt.Errorf("%w: got %d dimensions, want %d", port.ErrInvalidQuery, len(vec), v.dimension)
	}
	for _, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: non-finite component", port.ErrInvalidQuery)
		}
	}
	return nil
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
