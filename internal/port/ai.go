package port

import "context"

// Summarizer produces a short natural-language description of file content or
// a commit diff. An empty string is a soft failure: callers apply the shared
// retry policy instead of treating it as an error.
type Summarizer interface {
	// SummarizeCode summarizes the purpose and responsibilities of one file.
	SummarizeCode(ctx context.Context, path, code string) (string, error)

	// SummarizeDiff summarizes a unified git diff.
	SummarizeDiff(ctx context.Context, diff string) (string, error)
}

// Embedder converts text into a fixed-length numeric vector. An empty slice
// is a soft failure under the same retry policy as summarization.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length the model produces.
	Dimensions() int
}

// AnswerGenerator streams a natural-language answer to a question, grounded
// in the supplied context block. With an empty context block the generator is
// still invoked and states that no grounding was found. Cancelling ctx stops
// the upstream request and closes the stream.
type AnswerGenerator interface {
	Generate(ctx context.Context, question, contextBlock string) (<-chan string, error)
}
