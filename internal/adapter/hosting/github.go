package hosting

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/port"
)

// ignoredFiles are lockfiles excluded from repository loading.
var ignoredFiles = map[string]struct{}{
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"bun.lockb":         {},
}

// GitHubProvider implements port.HostingProvider using the GitHub REST API.
type GitHubProvider struct {
	fallbackToken string
	concurrency   int
	commitWindow  int
	diffTimeout   time.Duration
}

// NewGitHubProvider creates a GitHub hosting provider. fallbackToken is used
// for projects without their own credential; concurrency bounds in-flight
// blob fetches; commitWindow caps ListRecentCommits.
func NewGitHubProvider(fallbackToken string, concurrency, commitWindow int, diffTimeout time.Duration) *GitHubProvider {
	return &GitHubProvider{
		fallbackToken: fallbackToken,
		concurrency:   concurrency,
		commitWindow:  commitWindow,
		diffTimeout:   diffTimeout,
	}
}

// client builds a GitHub API client, authenticated when a credential is
// available.
func (g *GitHubProvider) client(ctx context.Context, credential string) *github.Client {
	token := credential
	if token == "" {
		token = g.fallbackToken
	}
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// ListFiles resolves the tree at ref up front, then streams blob contents on
// the returned channel with bounded parallelism. Individual blob failures and
// non-text files are skipped with a warning.
func (g *GitHubProvider) ListFiles(ctx context.Context, repoURL, ref, credential string) (<-chan domain.SourceFile, error) {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrRepositoryUnavailable, err)
	}
	if ref == "" {
		ref = "main"
	}

	client := g.client(ctx, credential)
	tree, resp, err := client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, classifyAPIError(resp, fmt.Errorf("resolve tree at %s: %w", ref, err))
	}

	var blobs []*github.TreeEntry
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		if isIgnored(entry.GetPath()) {
			continue
		}
		blobs = append(blobs, entry)
	}
	if len(blobs) == 0 {
		return nil, fmt.Errorf("%w: no loadable files at %s", port.ErrRepositoryUnavailable, ref)
	}

	out := make(chan domain.SourceFile)
	go func() {
		defer close(out)

		grp, gctx := errgroup.WithContext(ctx)
		grp.SetLimit(g.concurrency)
		for _, entry := range blobs {
			entry := entry
			grp.Go(func() error {
				content, _, err := client.Git.GetBlobRaw(gctx, owner, repo, entry.GetSHA())
				if err != nil {
					slog.Warn("skipping file, blob fetch failed", "path", entry.GetPath(), "error", err)
					return nil
				}
				if !isText(content) {
					slog.Warn("skipping non-text file", "path", entry.GetPath())
					return nil
				}
				select {
				case out <- domain.SourceFile{Path: entry.GetPath(), Content: string(content), Size: len(content)}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		if err := grp.Wait(); err != nil {
			slog.Warn("repository load interrupted", "repo", repoURL, "error", err)
		}
	}()

	return out, nil
}

// ListRecentCommits returns up to commitWindow commits, newest first. Errors
// are logged and reported as an empty list.
func (g *GitHubProvider) ListRecentCommits(ctx context.Context, repoURL, credential string) []domain.CommitInfo {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		slog.Warn("invalid repository url", "repo", repoURL, "error", err)
		return nil
	}

	commits, _, err := g.client(ctx, credential).Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: g.commitWindow},
	})
	if err != nil {
		slog.Warn("list commits failed", "repo", repoURL, "error", err)
		return nil
	}

	out := make([]domain.CommitInfo, 0, len(commits))
	for _, c := range commits {
		out = append(out, domain.CommitInfo{
			Hash:         c.GetSHA(),
			Message:      c.GetCommit().GetMessage(),
			AuthorName:   c.GetCommit().GetAuthor().GetName(),
			AuthorAvatar: c.GetAuthor().GetAvatarURL(),
			Date:         c.GetCommit().GetAuthor().GetDate().Time,
		})
	}

	// The API returns newest first, but ordering is a contract here.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > g.commitWindow {
		out = out[:g.commitWindow]
	}
	return out
}

// FetchDiff returns the unified diff for one commit, bounded by the
// configured timeout so a stalled fetch cannot wedge the worker.
func (g *GitHubProvider) FetchDiff(ctx context.Context, repoURL, commitHash, credential string) (string, error) {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid repository url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.diffTimeout)
	defer cancel()

	diff, _, err := g.client(ctx, credential).Repositories.GetCommitRaw(ctx, owner, repo, commitHash, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("fetch diff %s: %w", commitHash, err)
	}
	return diff, nil
}

// parseRepoURL extracts owner and repo from a GitHub repository URL.
func parseRepoURL(repoURL string) (owner, repo string, err error) {
	u, err := url.Parse(strings.TrimSuffix(repoURL, ".git"))
	if err != nil {
		return "", "", fmt.Errorf("parse url %q: %w", repoURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("url %q has no owner/repo path", repoURL)
	}
	return parts[0], parts[1], nil
}

// isIgnored reports whether the file is on the lockfile exclusion list.
func isIgnored(path string) bool {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	_, ok := ignoredFiles[base]
	return ok
}

// isText classifies content as decodable text: valid UTF-8 with no NUL bytes.
func isText(content []byte) bool {
	return !bytes.ContainsRune(content, 0) && utf8.Valid(content)
}

// classifyAPIError maps GitHub API failures onto the port error taxonomy.
func classifyAPIError(resp *github.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", port.ErrAuthenticationRequired, err)
		}
	}
	return fmt.Errorf("%w: %v", port.ErrRepositoryUnavailable, err)
}
