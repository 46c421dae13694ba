package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/port"
)

func TestAskStreamsGroundedAnswer(t *testing.T) {
	embeddings := newMemEmbeddingStore()
	embeddings.results = []domain.FileReference{
		{FileName: "auth.go", SourceCode: "func Login() {}", Summary: "login handler", Similarity: 0.91},
		{FileName: "user.go", SourceCode: "type User struct{}", Summary: "user model", Similarity: 0.77},
	}
	generator := &stubGenerator{chunks: []string{"The ", "login ", "flow..."}}

	svc := NewRetrievalService(&stubEmbedder{}, generator, embeddings, RetrievalOptions{})
	answer, err := svc.Ask(context.Background(), "p1", "how does login work?")

	require.NoError(t, err)
	require.Len(t, answer.References, 2)
	assert.Equal(t, "auth.go", answer.References[0].FileName)

	var got []string
	for chunk := range answer.Stream {
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"The ", "login ", "flow..."}, got)

	assert.Contains(t, generator.lastContext, "source: auth.go")
	assert.Contains(t, generator.lastContext, "func Login() {}")
	assert.Less(t, strings.Index(generator.lastContext, "auth.go"), strings.Index(generator.lastContext, "user.go"),
		"best match comes first in the context block")
}

func TestAskWithNoMatchesStillGenerates(t *testing.T) {
	generator := &stubGenerator{chunks: []string{"I don't have enough context."}}
	svc := NewRetrievalService(&stubEmbedder{}, generator, newMemEmbeddingStore(), RetrievalOptions{})

	answer, err := svc.Ask(context.Background(), "p1", "what does this repo do?")

	require.NoError(t, err)
	assert.Empty(t, answer.References)
	assert.Equal(t, 1, generator.calls, "generator runs even with zero retrieved rows")
	assert.Empty(t, generator.lastContext)
}

func TestAskValidatesInput(t *testing.T) {
	svc := NewRetrievalService(&stubEmbedder{}, &stubGenerator{}, newMemEmbeddingStore(), RetrievalOptions{})

	_, err := svc.Ask(context.Background(), "p1", "   ")
	assert.ErrorIs(t, err, port.ErrInvalidInput)

	_, err = svc.Ask(context.Background(), "", "valid question")
	assert.ErrorIs(t, err, port.ErrInvalidInput)
}

func TestAskFailsWhenEmbeddingUnavailable(t *testing.T) {
	generator := &stubGenerator{}
	svc := NewRetrievalService(&stubEmbedder{alwaysEmpty: true}, generator, newMemEmbeddingStore(), RetrievalOptions{})

	_, err := svc.Ask(context.Background(), "p1", "question")
	assert.ErrorIs(t, err, port.ErrEmbeddingUnavailable)
	assert.Equal(t, 0, generator.calls)
}

func TestSimilaritySearchOrderingAndFloor(t *testing.T) {
	store := newMemEmbeddingStore()
	ctx := context.Background()
	seed := func(name string, vec []float32, createdAt time.Time) {
		require.NoError(t, store.UpsertEmbedding(ctx, &domain.FileEmbedding{
			ID:        name,
			ProjectID: "p1",
			FileName:  name,
			Summary:   "summary of " + name,
			Vector:    vec,
			CreatedAt: createdAt,
		}))
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seed("exact.go", []float32{1, 0}, base)
	seed("close.go", []float32{0.9, 0.1}, base)
	seed("mid-old.go", []float32{1, 1}, base)
	seed("mid-new.go", []float32{1, 1}, base.Add(time.Hour))
	seed("orthogonal.go", []float32{0, 1}, base)

	query := []float32{1, 0}
	refs, err := store.SimilaritySearch(ctx, "p1", query, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, refs, 4, "orthogonal row sits below the floor")

	for i := 1; i < len(refs); i++ {
		assert.GreaterOrEqual(t, refs[i-1].Similarity, refs[i].Similarity, "rows must be ordered best match first")
		assert.Greater(t, refs[i].Similarity, 0.5, "no returned row may sit at or below the floor")
	}
	assert.Equal(t, "exact.go", refs[0].FileName)
	assert.Equal(t, "close.go", refs[1].FileName)
	assert.Equal(t, "mid-new.go", refs[2].FileName, "equal similarity breaks to the newer row")
	assert.Equal(t, "mid-old.go", refs[3].FileName)

	capped, err := store.SimilaritySearch(ctx, "p1", query, 2, 0.5)
	require.NoError(t, err)
	assert.Len(t, capped, 2, "topK caps the result set")

	// The floor is a strict bound: a row exactly at it is excluded.
	none, err := store.SimilaritySearch(ctx, "p1", query, 10, 1.0)
	require.NoError(t, err)
	assert.Empty(t, none, "the perfect match has similarity exactly 1.0 and must not pass a 1.0 floor")
}

func TestBuildContextTruncatesAfterConcatenation(t *testing.T) {
	refs := []domain.FileReference{
		{FileName: "a.go", SourceCode: strings.Repeat("a", 100), Summary: "first"},
		{FileName: "b.go", SourceCode: strings.Repeat("b", 100), Summary: "second"},
		{FileName: "c.go", SourceCode: strings.Repeat("c", 100), Summary: "third"},
	}

	full := buildContext(refs, 1<<20)
	budget := 150
	truncated := buildContext(refs, budget)

	assert.Len(t, truncated, budget)
	assert.Equal(t, full[:budget], truncated, "truncation is a prefix of the full concatenation")
	assert.Contains(t, truncated, "source: a.go", "best match survives the cut")
	assert.NotContains(t, truncated, "source: c.go")
}

func TestBuildContextNeverSplitsRunes(t *testing.T) {
	// Multi-byte content positioned so a byte-exact cut would land inside a
	// rune for most budgets.
	refs := []domain.FileReference{
		{FileName: "i18n.go", SourceCode: strings.Repeat("héllo wörld ü ", 50), Summary: "translations"},
	}

	full := buildContext(refs, 1<<20)
	for budget := 40; budget < 60; budget++ {
		got := buildContext(refs, budget)
		assert.True(t, utf8.ValidString(got), "budget %d produced invalid UTF-8", budget)
		assert.LessOrEqual(t, len(got), budget)
		assert.Equal(t, full[:len(got)], got, "truncation stays a prefix of the full concatenation")
	}
}

func TestBuildContextSkipsEmptySource(t *testing.T) {
	refs := []domain.FileReference{
		{FileName: "empty.go", SourceCode: "", Summary: "nothing"},
		{FileName: "real.go", SourceCode: "package real", Summary: "something"},
	}

	block := buildContext(refs, 12000)
	assert.NotContains(t, block, "empty.go")
	assert.Contains(t, block, "source: real.go")
}
