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

// CommitService polls the hosting API for new commits and stores them with
// AI-generated diff summaries. It is safe to invoke concurrently for the
// same project: the hash set-difference plus the store's conflict-as-skip
// insert keep a commit hash recorded at most once per project.
type CommitService struct {
	hosting       port.HostingProvider
	summarizer    port.Summarizer
	projects      port.ProjectStore
	commits       port.CommitStore
	retryAttempts int
}

// NewCommitService creates a commit summarization worker.
func NewCommitService(hosting port.HostingProvider, summarizer port.Summarizer, projects port.ProjectStore, commits port.CommitStore, retryAttempts int) *CommitService {
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	return &CommitService{
		hosting:       hosting,
		summarizer:    summarizer,
		projects:      projects,
		commits:       commits,
		retryAttempts: retryAttempts,
	}
}

// PollCommits fetches recent commits for the project, summarizes the ones not
// yet recorded, and persists them. Newest commits are processed first so a
// partial run favors the most recent history. Per-commit failures are logged
// and skipped; a transient hosting failure yields no new commits, not an
// error. It returns the commits handed to the store in this run.
func (s *CommitService) PollCommits(ctx context.Context, projectID string) ([]domain.CommitRecord, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", port.ErrInvalidInput)
	}

	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Deleted() {
		return nil, nil
	}

	recent := s.hosting.ListRecentCommits(ctx, project.RepoURL, project.AccessToken)
	if len(recent) == 0 {
		return nil, nil
	}

	known, err := s.commits.ListCommitHashes(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list commit hashes: %w", err)
	}

	var fresh []domain.CommitRecord
	for _, info := range recent {
		if _, seen := known[info.Hash]; seen {
			continue
		}

		diff, err := s.hosting.FetchDiff(ctx, project.RepoURL, info.Hash, project.AccessToken)
		if err != nil {
			slog.Warn("diff fetch failed, skipping commit", "project_id", projectID, "hash", info.Hash, "error", err)
			continue
		}

		summary, ok := retry.Do(ctx, s.retryAttempts, func(ctx context.Context) (string, error) {
			return s.summarizer.SummarizeDiff(ctx, diff)
		}, func(sum string) bool { return strings.TrimSpace(sum) != "" })
		if !ok {
			slog.Warn("commit summarization failed, skipping", "project_id", projectID, "hash", info.Hash, "attempts", s.retryAttempts)
			continue
		}

		fresh = append(fresh, domain.CommitRecord{
			ProjectID:    projectID,
			CommitHash:   info.Hash,
			Message:      info.Message,
			AuthorName:   info.AuthorName,
			AuthorAvatar: info.AuthorAvatar,
			CommitDate:   info.Date,
			Summary:      summary,
		})
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	// Re-check before persisting: a project deleted while we were paying for
	// summaries should not gain rows. A transient read failure is not a
	// deletion; the summaries are already paid for, so persist anyway.
	switch check, err := s.projects.GetProject(ctx, projectID); {
	case errors.Is(err, port.ErrProjectNotFound), err == nil && check.Deleted():
		slog.Info("project deleted during commit poll, discarding", "project_id", projectID)
		return nil, nil
	case err != nil:
		slog.Warn("project re-check failed, persisting anyway", "project_id", projectID, "error", err)
	}

	stored, err := s.commits.InsertCommits(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("store commits: %w", err)
	}
	slog.Info("stored new commits", "project_id", projectID, "fetched", len(recent), "stored", stored)
	return fresh, nil
}

// CommitLog polls opportunistically, then returns the project's full commit
// log newest first. Poll failures other than a missing project are logged,
// not propagated: serving the stored log beats failing the read.
func (s *CommitService) CommitLog(ctx context.Context, projectID string) ([]domain.CommitRecord, error) {
	if _, err := s.PollCommits(ctx, projectID); err != nil {
		if errorsIsAny(err, port.ErrProjectNotFound, port.ErrInvalidInput) {
			return nil, err
		}
		slog.Warn("commit poll failed", "project_id", projectID, "error", err)
	}
	return s.commits.ListCommits(ctx, projectID)
}
