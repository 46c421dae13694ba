package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/port"
)

// Answer bundles the retrieval output for one question: the ranked file
// references for citation, and the generated answer as an ordered chunk
// stream with a single consumer.
type Answer struct {
	References []domain.FileReference
	Stream     <-chan string
}

// RetrievalOptions tunes a RetrievalService. Zero values fall back to
// defaults.
type RetrievalOptions struct {
	TopK            int     // max rows retrieved, default 10
	MinSimilarity   float64 // similarity floor, default 0.5
	MaxContextChars int     // context budget after concatenation, default 12000
}

// RetrievalService answers natural-language questions about a project by
// retrieving similar indexed files and grounding a generated answer in them.
type RetrievalService struct {
	embedder   port.Embedder
	generator  port.AnswerGenerator
	embeddings port.EmbeddingStore
	opts       RetrievalOptions
}

// NewRetrievalService creates a retrieval engine.
func NewRetrievalService(embedder port.Embedder, generator port.AnswerGenerator, embeddings port.EmbeddingStore, opts RetrievalOptions) *RetrievalService {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = 0.5
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = 12000
	}
	return &RetrievalService{
		embedder:   embedder,
		generator:  generator,
		embeddings: embeddings,
		opts:       opts,
	}
}

// Ask embeds the question, retrieves the most similar indexed files, and
// streams a grounded answer. Unlike file indexing, a failed question
// embedding cannot be skipped: the whole request fails with
// ErrEmbeddingUnavailable. With zero retrieved rows the generator still runs
// and states that no grounding was found.
func (s *RetrievalService) Ask(ctx context.Context, projectID, question string) (*Answer, error) {
	if projectID == "" || strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question and project id are required", port.ErrInvalidInput)
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrEmbeddingUnavailable, err)
	}
	if len(vector) == 0 {
		return nil, port.ErrEmbeddingUnavailable
	}

	refs, err := s.embeddings.SimilaritySearch(ctx, projectID, vector, s.opts.TopK, s.opts.MinSimilarity)
	if err != nil {
		if errors.Is(err, port.ErrInvalidQuery) {
			return nil, err
		}
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	contextBlock := buildContext(refs, s.opts.MaxContextChars)
	slog.Info("answering question",
		"project_id", projectID,
		"references", len(refs),
		"context_chars", len(contextBlock),
	)

	stream, err := s.generator.Generate(ctx, question, contextBlock)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Answer{References: refs, Stream: stream}, nil
}

// buildContext concatenates retrieved rows best match first and truncates the
// result to budget characters. Truncation happens after concatenation, not
// per row, so higher-similarity rows survive the cut. The cut backs off to
// the previous rune boundary so the blob stays valid UTF-8.
func buildContext(refs []domain.FileReference, budget int) string {
	var b strings.Builder
	for _, ref := range refs {
		if ref.SourceCode == "" {
			continue
		}
		fmt.Fprintf(&b, "source: %s\ncode content:\n%s\nsummary of file: %s\n\n", ref.FileName, ref.SourceCode, ref.Summary)
	}

	contextBlock := b.String()
	if len(contextBlock) > budget {
		cut := budget
		for cut > 0 && !utf8.RuneStart(contextBlock[cut]) {
			cut--
		}
		contextBlock = contextBlock[:cut]
	}
	return contextBlock
}

// errorsIsAny reports whether err matches any of the given targets.
func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
