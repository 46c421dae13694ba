package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/port"
)

// stubHosting serves canned files, commits, and diffs. sent counts files
// actually consumed from the channel.
type stubHosting struct {
	mu       sync.Mutex
	sent     int
	files    []domain.SourceFile
	listErr  error
	commits  []domain.CommitInfo
	diffs    map[string]string
	diffErrs map[string]error
}

func (h *stubHosting) ListFiles(ctx context.Context, repoURL, ref, credential string) (<-chan domain.SourceFile, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	out := make(chan domain.SourceFile)
	go func() {
		defer close(out)
		for _, f := range h.files {
			select {
			case out <- f:
				h.mu.Lock()
				h.sent++
				h.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (h *stubHosting) sentCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sent
}

func (h *stubHosting) ListRecentCommits(ctx context.Context, repoURL, credential string) []domain.CommitInfo {
	return h.commits
}

func (h *stubHosting) FetchDiff(ctx context.Context, repoURL, commitHash, credential string) (string, error) {
	if err, ok := h.diffErrs[commitHash]; ok {
		return "", err
	}
	if diff, ok := h.diffs[commitHash]; ok {
		return diff, nil
	}
	return "diff --git a/x b/x", nil
}

// stubSummarizer counts calls per input and can be scripted to fail for
// specific files or to always return empty.
type stubSummarizer struct {
	mu          sync.Mutex
	codeCalls   map[string]int
	diffCalls   int
	failPaths   map[string]bool
	alwaysEmpty bool
}

func newStubSummarizer() *stubSummarizer {
	return &stubSummarizer{codeCalls: make(map[string]int), failPaths: make(map[string]bool)}
}

func (s *stubSummarizer) SummarizeCode(ctx context.Context, path, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeCalls[path]++
	if s.alwaysEmpty || s.failPaths[path] {
		return "", nil
	}
	return "summary of " + path, nil
}

func (s *stubSummarizer) SummarizeDiff(ctx context.Context, diff string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diffCalls++
	if s.alwaysEmpty {
		return "", nil
	}
	return "summary: " + diff, nil
}

// stubEmbedder returns a fixed small vector, or empty when scripted to fail.
type stubEmbedder struct {
	mu          sync.Mutex
	calls       int
	alwaysEmpty bool
	vector      []float32
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.alwaysEmpty {
		return nil, nil
	}
	if e.vector != nil {
		return e.vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *stubEmbedder) Dimensions() int { return 3 }

// stubGenerator yields its chunks then closes the stream.
type stubGenerator struct {
	chunks      []string
	lastContext string
	calls       int
}

func (g *stubGenerator) Generate(ctx context.Context, question, contextBlock string) (<-chan string, error) {
	g.calls++
	g.lastContext = contextBlock
	ch := make(chan string, len(g.chunks))
	for _, c := range g.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// memProjectStore keeps projects in memory. When getErr is set, GetProject
// fails with it after failGetAfter successful calls.
type memProjectStore struct {
	mu           sync.Mutex
	projects     map[string]*domain.Project
	getCalls     int
	failGetAfter int
	getErr       error
}

func newMemProjectStore(projects ...*domain.Project) *memProjectStore {
	s := &memProjectStore{projects: make(map[string]*domain.Project)}
	for _, p := range projects {
		s.projects[p.ID] = p
	}
	return s
}

func (s *memProjectStore) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("project-%d", len(s.projects)+1)
	}
	s.projects[p.ID] = p
	return p, nil
}

func (s *memProjectStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil && s.getCalls > s.failGetAfter {
		return nil, s.getErr
	}
	p, ok := s.projects[id]
	if !ok {
		return nil, port.ErrProjectNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *memProjectStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Project
	for _, p := range s.projects {
		if !p.Deleted() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memProjectStore) SoftDeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return port.ErrProjectNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

// memEmbeddingStore keeps embeddings in memory keyed by (project, file). It
// ranks similarity queries the same way the SQL store does: cosine
// similarity, strict floor, best match first with a recency tie-break.
// Scripted results, when set, bypass the ranking.
type memEmbeddingStore struct {
	mu      sync.Mutex
	rows    map[string]domain.FileEmbedding
	results []domain.FileReference
}

func newMemEmbeddingStore() *memEmbeddingStore {
	return &memEmbeddingStore{rows: make(map[string]domain.FileEmbedding)}
}

func embeddingKey(projectID, fileName string) string { return projectID + "\x00" + fileName }

func (s *memEmbeddingStore) HasEmbedding(ctx context.Context, projectID, fileName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[embeddingKey(projectID, fileName)]
	return ok, nil
}

func (s *memEmbeddingStore) UpsertEmbedding(ctx context.Context, e *domain.FileEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := embeddingKey(e.ProjectID, e.FileName)
	if _, ok := s.rows[key]; ok {
		return nil // conflict-as-skip
	}
	s.rows[key] = *e
	return nil
}

func (s *memEmbeddingStore) SimilaritySearch(ctx context.Context, projectID string, query []float32, topK int, minSimilarity float64) ([]domain.FileReference, error) {
	if len(query) == 0 {
		return nil, port.ErrInvalidQuery
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.results != nil {
		if len(s.results) > topK {
			return s.results[:topK], nil
		}
		return s.results, nil
	}

	type scored struct {
		ref       domain.FileReference
		createdAt time.Time
		id        string
	}
	var hits []scored
	for _, row := range s.rows {
		if row.ProjectID != projectID {
			continue
		}
		sim := cosineSimilarity(query, row.Vector)
		if sim <= minSimilarity {
			continue
		}
		hits = append(hits, scored{
			ref: domain.FileReference{
				FileName:   row.FileName,
				SourceCode: row.SourceCode,
				Summary:    row.Summary,
				Similarity: sim,
			},
			createdAt: row.CreatedAt,
			id:        row.ID,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].ref.Similarity != hits[j].ref.Similarity {
			return hits[i].ref.Similarity > hits[j].ref.Similarity
		}
		if !hits[i].createdAt.Equal(hits[j].createdAt) {
			return hits[i].createdAt.After(hits[j].createdAt)
		}
		return hits[i].id > hits[j].id
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	var out []domain.FileReference
	for _, h := range hits {
		out = append(out, h.ref)
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (s *memEmbeddingStore) DeleteEmbeddings(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.rows {
		if strings.HasPrefix(key, projectID+"\x00") {
			delete(s.rows, key)
		}
	}
	return nil
}

func (s *memEmbeddingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// memCommitStore keeps commit records in memory with conflict-as-skip
// semantics on (project, hash).
type memCommitStore struct {
	mu      sync.Mutex
	records []domain.CommitRecord
}

func (s *memCommitStore) ListCommitHashes(ctx context.Context, projectID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hashes := make(map[string]struct{})
	for _, r := range s.records {
		if r.ProjectID == projectID {
			hashes[r.CommitHash] = struct{}{}
		}
	}
	return hashes, nil
}

func (s *memCommitStore) InsertCommits(ctx context.Context, records []domain.CommitRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, r := range records {
		dup := false
		for _, existing := range s.records {
			if existing.ProjectID == r.ProjectID && existing.CommitHash == r.CommitHash {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		s.records = append(s.records, r)
		inserted++
	}
	return inserted, nil
}

func (s *memCommitStore) ListCommits(ctx context.Context, projectID string) ([]domain.CommitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CommitRecord
	for _, r := range s.records {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}
