package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/port"
	"github.com/kartikey2004-git/codesense/internal/retry"
)

// IndexReport summarizes one indexing run. IndexedFiles counts only files
// newly persisted in this run; files skipped as already indexed or after
// exhausted retries reduce it without failing the run.
type IndexReport struct {
	TotalFiles   int `json:"total_files"`
	IndexedFiles int `json:"indexed_files"`
}

// IndexerOptions tunes an Indexer. Zero values fall back to defaults.
type IndexerOptions struct {
	Branch             string // reference to load, default "main"
	SummaryPrefixChars int    // content prefix sent to the summarizer, default 10000
	RetryAttempts      int    // soft-retry cap per summarize/embed call, default 3
	Progress           func(IndexReport)
}

// Indexer orchestrates repository loading, summarization, embedding and
// persistence for a project.
type Indexer struct {
	hosting    port.HostingProvider
	summarizer port.Summarizer
	embedder   port.Embedder
	embeddings port.EmbeddingStore
	projects   port.ProjectStore
	opts       IndexerOptions
}

// NewIndexer creates an indexing worker.
func NewIndexer(hosting port.HostingProvider, summarizer port.Summarizer, embedder port.Embedder, embeddings port.EmbeddingStore, projects port.ProjectStore, opts IndexerOptions) *Indexer {
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.SummaryPrefixChars <= 0 {
		opts.SummaryPrefixChars = 10000
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	return &Indexer{
		hosting:    hosting,
		summarizer: summarizer,
		embedder:   embedder,
		embeddings: embeddings,
		projects:   projects,
		opts:       opts,
	}
}

// Index loads every text file of the repository and indexes each one:
// skip if already present, summarize a bounded prefix, embed the summary,
// persist in one write. Per-file failures are logged and skipped; the run
// only fails on whole-run preconditions (repository unreadable, zero files).
// Re-running on an unchanged repository indexes nothing new. A soft-deleted
// project ends the run cleanly with the counts accumulated so far.
func (s *Indexer) Index(ctx context.Context, projectID, repoURL, credential string) (IndexReport, error) {
	return s.IndexWithProgress(ctx, projectID, repoURL, credential, s.opts.Progress)
}

// IndexWithProgress runs Index with a per-run progress callback, invoked after
// every processed file. It overrides the configured Progress option for this
// run only.
func (s *Indexer) IndexWithProgress(ctx context.Context, projectID, repoURL, credential string, progress func(IndexReport)) (IndexReport, error) {
	var report IndexReport

	files, err := s.hosting.ListFiles(ctx, repoURL, s.opts.Branch, credential)
	if err != nil {
		return report, fmt.Errorf("load repository: %w", err)
	}

	slog.Info("indexing repository", "project_id", projectID, "repo_url", repoURL, "branch", s.opts.Branch)

	for file := range files {
		report.TotalFiles++

		if s.projectGone(ctx, projectID) {
			slog.Info("project deleted mid-run, stopping", "project_id", projectID)
			// Drain so the loader's in-flight fetchers can finish instead of
			// blocking on the channel until ctx ends.
			go func() {
				for range files {
				}
			}()
			return report, nil
		}

		if s.indexFile(ctx, projectID, file) {
			report.IndexedFiles++
		}
		if progress != nil {
			progress(report)
		}
	}

	if report.TotalFiles == 0 {
		return report, fmt.Errorf("%w: no files loaded from %s", port.ErrRepositoryUnavailable, repoURL)
	}

	slog.Info("indexing complete",
		"project_id", projectID,
		"total_files", report.TotalFiles,
		"indexed_files", report.IndexedFiles,
	)
	return report, nil
}

// indexFile processes a single file and reports whether a new embedding row
// was persisted.
func (s *Indexer) indexFile(ctx context.Context, projectID string, file domain.SourceFile) bool {
	exists, err := s.embeddings.HasEmbedding(ctx, projectID, file.Path)
	if err != nil {
		slog.Error("existence check failed, skipping file", "path", file.Path, "error", err)
		return false
	}
	if exists {
		slog.Debug("file already indexed", "project_id", projectID, "path", file.Path)
		return false
	}

	code := file.Content
	if len(code) > s.opts.SummaryPrefixChars {
		code = code[:s.opts.SummaryPrefixChars]
	}

	summary, ok := retry.Do(ctx, s.opts.RetryAttempts, func(ctx context.Context) (string, error) {
		return s.summarizer.SummarizeCode(ctx, file.Path, code)
	}, func(sum string) bool { return strings.TrimSpace(sum) != "" })
	if !ok {
		slog.Warn("summarization failed, skipping file", "path", file.Path, "attempts", s.opts.RetryAttempts)
		return false
	}

	vector, ok := retry.Do(ctx, s.opts.RetryAttempts, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, summary)
	}, func(v []float32) bool { return len(v) > 0 })
	if !ok {
		slog.Warn("embedding failed, skipping file", "path", file.Path, "attempts", s.opts.RetryAttempts)
		return false
	}

	err = s.embeddings.UpsertEmbedding(ctx, &domain.FileEmbedding{
		ProjectID:  projectID,
		FileName:   file.Path,
		Summary:    summary,
		SourceCode: file.Content,
		Vector:     vector,
	})
	if err != nil {
		slog.Error("persist embedding failed, skipping file", "path", file.Path, "error", err)
		return false
	}
	return true
}

// projectGone reports whether the project has been soft-deleted (or hard
// deleted out from under the run), the cancellation signal for workers.
func (s *Indexer) projectGone(ctx context.Context, projectID string) bool {
	project, err := s.projects.GetProject(ctx, projectID)
	if errors.Is(err, port.ErrProjectNotFound) {
		return true
	}
	if err != nil {
		// Transient read failure; keep indexing rather than abandon the run.
		slog.Warn("project check failed", "project_id", projectID, "error", err)
		return false
	}
	return project.Deleted()
}
