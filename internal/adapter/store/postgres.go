package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/port"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the pgvector extension and all tables if missing.
// dimension fixes the embedding column's vector length. The per-project
// unique constraints on file_name and commit_hash back the pipeline's
// conflict-as-skip idempotence.
func (s *PostgresStore) EnsureSchema(ctx context.Context, dimension int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS projects (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name         TEXT NOT NULL,
			repo_url     TEXT NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at   TIMESTAMPTZ
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS file_embeddings (
			id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			project_id        UUID NOT NULL REFERENCES projects(id),
			file_name         TEXT NOT NULL,
			summary           TEXT NOT NULL,
			source_code       TEXT NOT NULL,
			summary_embedding vector(%d) NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (project_id, file_name)
		)`, dimension),
		`CREATE TABLE IF NOT EXISTS commits (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			project_id    UUID NOT NULL REFERENCES projects(id),
			commit_hash   TEXT NOT NULL,
			message       TEXT NOT NULL DEFAULT '',
			author_name   TEXT NOT NULL DEFAULT '',
			author_avatar TEXT NOT NULL DEFAULT '',
			commit_date   TIMESTAMPTZ NOT NULL,
			summary       TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (project_id, commit_hash)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Projects ---

// CreateProject inserts a new project record.
func (s *PostgresStore) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	query := `INSERT INTO projects (name, repo_url, access_token)
	          VALUES ($1, $2, $3)
	          RETURNING id, name, repo_url, access_token, created_at, updated_at, deleted_at`

	var project domain.Project
	err := s.db.QueryRowContext(ctx, query, p.Name, p.RepoURL, p.AccessToken).Scan(
		&project.ID, &project.Name, &project.RepoURL, &project.AccessToken,
		&project.CreatedAt, &project.UpdatedAt, &project.DeletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &project, nil
}

// GetProject returns a project by ID, including soft-deleted ones so that
// workers can detect deletion mid-run.
func (s *PostgresStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT id, name, repo_url, access_token, created_at, updated_at, deleted_at
	          FROM projects WHERE id = $1`

	var p domain.Project
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.RepoURL, &p.AccessToken,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects that are not soft-deleted, newest first.
func (s *PostgresStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	query := `SELECT id, name, repo_url, access_token, created_at, updated_at, deleted_at
	          FROM projects WHERE deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(
			&p.ID, &p.Name, &p.RepoURL, &p.AccessToken,
			&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// SoftDeleteProject marks a project deleted. Embeddings and commits are left
// for lazy cleanup; running workers notice the deletion and stop.
func (s *PostgresStore) SoftDeleteProject(ctx context.Context, id string) error {
	query := `UPDATE projects SET deleted_at = NOW(), updated_at = NOW()
	          WHERE id = $1 AND deleted_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return port.ErrProjectNotFound
	}
	return nil
}

// --- Commits ---

// ListCommitHashes returns the set of commit hashes already stored for the
// project. The set-difference against it keeps diff summarization
// at-most-once per hash in the common case.
func (s *PostgresStore) ListCommitHashes(ctx context.Context, projectID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT commit_hash FROM commits WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list commit hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan commit hash: %w", err)
		}
		hashes[h] = struct{}{}
	}
	return hashes, rows.Err()
}

// InsertCommits stores records with ON CONFLICT DO NOTHING on
// (project_id, commit_hash), so a concurrent run can never duplicate a hash.
// It returns the number of rows actually inserted.
func (s *PostgresStore) InsertCommits(ctx context.Context, records []domain.CommitRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO commits (project_id, commit_hash, message, author_name, author_avatar, commit_date, summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (project_id, commit_hash) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.ProjectID, r.CommitHash, r.Message, r.AuthorName, r.AuthorAvatar, r.CommitDate, r.Summary,
		)
		if err != nil {
			return 0, fmt.Errorf("insert commit %s: %w", r.CommitHash, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// ListCommits returns the project's commit log, newest first.
func (s *PostgresStore) ListCommits(ctx context.Context, projectID string) ([]domain.CommitRecord, error) {
	query := `SELECT id, project_id, commit_hash, message, author_name, author_avatar, commit_date, summary, created_at
	          FROM commits WHERE project_id = $1 ORDER BY commit_date DESC`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	var commits []domain.CommitRecord
	for rows.Next() {
		var c domain.CommitRecord
		if err := rows.Scan(
			&c.ID, &c.ProjectID, &c.CommitHash, &c.Message,
			&c.AuthorName, &c.AuthorAvatar, &c.CommitDate, &c.Summary, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}
