package port

import (
	"context"

	"github.com/kartikey2004-git/codesense/internal/domain"
)

// ProjectStore persists projects. Soft-deleted projects are still readable by
// ID so workers can detect deletion mid-run.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error)

	// GetProject returns the project, deleted or not. It returns
	// ErrProjectNotFound when no row exists.
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// ListProjects returns all projects that are not soft-deleted.
	ListProjects(ctx context.Context) ([]domain.Project, error)

	SoftDeleteProject(ctx context.Context, id string) error
}

// EmbeddingStore persists file embeddings and serves similarity queries.
type EmbeddingStore interface {
	// HasEmbedding reports whether a (project, file) pair is already indexed.
	HasEmbedding(ctx context.Context, projectID, fileName string) (bool, error)

	// UpsertEmbedding inserts a row in one logical write. A conflicting
	// (project, file) pair is skipped, never overwritten.
	UpsertEmbedding(ctx context.Context, e *domain.FileEmbedding) error

	// SimilaritySearch returns rows strictly above minSimilarity ordered by
	// descending cosine similarity, capped at topK. A malformed query vector
	// is rejected with ErrInvalidQuery before hitting storage.
	SimilaritySearch(ctx context.Context, projectID string, query []float32, topK int, minSimilarity float64) ([]domain.FileReference, error)

	// DeleteEmbeddings removes every embedding row for the project, the
	// precondition for re-indexing its files.
	DeleteEmbeddings(ctx context.Context, projectID string) error
}

// CommitStore persists commit records.
type CommitStore interface {
	// ListCommitHashes returns the set of commit hashes already recorded for
	// the project.
	ListCommitHashes(ctx context.Context, projectID string) (map[string]struct{}, error)

	// InsertCommits stores records with conflict-as-skip semantics on
	// (project, hash) and returns the number actually inserted.
	InsertCommits(ctx context.Context, records []domain.CommitRecord) (int, error)

	// ListCommits returns the project's commit log, newest first.
	ListCommits(ctx context.Context, projectID string) ([]domain.CommitRecord, error)
}
