package ai

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiProvider implements the Summarizer, Embedder and AnswerGenerator
// ports using Google's Gemini API.
type GeminiProvider struct {
	client     *genai.Client
	chatModel  string
	embedModel string
	dimensions int
}

// NewGeminiProvider creates a Gemini-backed provider. The API key is required
// and validated here, not lazily on first call.
func NewGeminiProvider(ctx context.Context, apiKey, chatModel, embedModel string, dimensions int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiProvider{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
		dimensions: dimensions,
	}, nil
}

// SummarizeCode summarizes a single file's purpose and responsibilities.
func (p *GeminiProvider) SummarizeCode(ctx context.Context, path, code string) (string, error) {
	return p.generateText(ctx, fmt.Sprintf(codeSummaryPrompt, path, code))
}

// SummarizeDiff summarizes a unified git diff.
func (p *GeminiProvider) SummarizeDiff(ctx context.Context, diff string) (string, error) {
	return p.generateText(ctx, fmt.Sprintf(diffSummaryPrompt, diff))
}

func (p *GeminiProvider) generateText(ctx context.Context, prompt string) (string, error) {
	result, err := p.client.Models.GenerateContent(ctx, p.chatModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return result.Text(), nil
}

// Embed returns the embedding vector for text. An empty result is passed
// through as a soft failure for the caller's retry policy.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := p.client.Models.EmbedContent(ctx, p.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, nil
	}
	return result.Embeddings[0].Values, nil
}

// Dimensions returns the configured embedding dimensionality.
func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}

// Generate streams the grounded answer chunk by chunk. The channel is closed
// when the model finishes, errors, or ctx is cancelled.
func (p *GeminiProvider) Generate(ctx context.Context, question, contextBlock string) (<-chan string, error) {
	prompt := fmt.Sprintf(answerPrompt, contextBlock, question)

	ch := make(chan string, 64)
	go func() {
		defer close(ch)
		for chunk, err := range p.client.Models.GenerateContentStream(ctx, p.chatModel, genai.Text(prompt), nil) {
			if err != nil {
				slog.Error("gemini stream failed", "error", err)
				return
			}
			text := chunk.Text()
			if text == "" {
				continue
			}
			select {
			case ch <- text:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
