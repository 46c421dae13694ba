package port

import (
	"context"

	"github.com/kartikey2004-git/codesense/internal/domain"
)

// HostingProvider abstracts the repository hosting API (GitHub).
// An empty credential limits access to public repositories.
type HostingProvider interface {
	// ListFiles yields every text-classified file reachable under ref,
	// recursively, on a lazy, finite, non-restartable channel. Lockfiles and
	// undecodable files are skipped with a warning. It returns
	// ErrRepositoryUnavailable when the reference cannot be resolved or the
	// repository has no loadable files, and ErrAuthenticationRequired when a
	// private repository is accessed without a valid credential.
	ListFiles(ctx context.Context, repoURL, ref, credential string) (<-chan domain.SourceFile, error)

	// ListRecentCommits returns recent commit metadata, newest first, capped
	// to a fixed window. It fails soft: transient API errors yield an empty
	// list, since commit polling is best-effort and retried by callers.
	ListRecentCommits(ctx context.Context, repoURL, credential string) []domain.CommitInfo

	// FetchDiff returns the unified diff of a single commit.
	FetchDiff(ctx context.Context, repoURL, commitHash, credential string) (string, error)
}
