package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/kartikey2004-git/codesense/internal/adapter/ai"
	"github.com/kartikey2004-git/codesense/internal/adapter/hosting"
	"github.com/kartikey2004-git/codesense/internal/adapter/store"
	"github.com/kartikey2004-git/codesense/internal/handler"
	"github.com/kartikey2004-git/codesense/internal/port"
	"github.com/kartikey2004-git/codesense/internal/service"
	"github.com/kartikey2004-git/codesense/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("🚀 Starting CodeSense AI",
		"port", cfg.Port,
		"ai_provider", cfg.AIProvider,
		"embedding_dimension", cfg.EmbeddingDimension,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.EnsureSchema(context.Background(), cfg.EmbeddingDimension); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	vectorStore := store.NewVectorStore(pgStore, cfg.EmbeddingDimension)

	// ── Adapters ─────────────────────────────────────────────────────────
	summarizer, embedder, generator, err := buildAIProvider(cfg)
	if err != nil {
		slog.Error("failed to build AI provider", "provider", cfg.AIProvider, "error", err)
		os.Exit(1)
	}

	githubHosting := hosting.NewGitHubProvider(cfg.GitHubToken, cfg.LoaderConcurrency, cfg.CommitWindow, cfg.DiffFetchTimeout)

	// ── Services ─────────────────────────────────────────────────────────
	jobTracker := handler.NewJobTracker()

	indexer := service.NewIndexer(githubHosting, summarizer, embedder, vectorStore, pgStore, service.IndexerOptions{
		Branch:             cfg.DefaultBranch,
		SummaryPrefixChars: cfg.SummaryPrefixChars,
		RetryAttempts:      cfg.RetryAttempts,
	})
	commitService := service.NewCommitService(githubHosting, summarizer, pgStore, pgStore, cfg.RetryAttempts)
	retrievalService := service.NewRetrievalService(embedder, generator, vectorStore, service.RetrievalOptions{
		TopK:            cfg.TopK,
		MinSimilarity:   cfg.MinSimilarity,
		MaxContextChars: cfg.MaxContextChars,
	})

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	api := app.Group("/api/v1")

	projectHandler := handler.NewProjectHandler(pgStore, vectorStore, indexer, commitService, jobTracker, cfg.IndexRunTimeout)
	projectHandler.Register(api)

	commitHandler := handler.NewCommitHandler(commitService)
	commitHandler.Register(api)

	askHandler := handler.NewAskHandler(retrievalService)
	askHandler.Register(api)

	jobsHandler := handler.NewJobsHandler(jobTracker)
	jobsHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// buildAIProvider constructs the configured summarizer/embedder/generator
// triple. Both providers implement all three ports.
func buildAIProvider(cfg *config.Config) (port.Summarizer, port.Embedder, port.AnswerGenerator, error) {
	switch cfg.AIProvider {
	case "ollama":
		provider := ai.NewOllamaProvider(
			ai.OllamaEndpointConfig{BaseURL: cfg.OllamaEmbedURL, Model: cfg.OllamaEmbedModel, Token: cfg.OllamaEmbedToken},
			ai.OllamaEndpointConfig{BaseURL: cfg.OllamaChatURL, Model: cfg.OllamaChatModel, Token: cfg.OllamaChatToken},
			cfg.EmbeddingDimension,
		)
		return provider, provider, provider, nil
	default: // gemini; Validate has already rejected unknown providers
		provider, err := ai.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, cfg.GeminiChatModel, cfg.GeminiEmbedModel, cfg.EmbeddingDimension)
		if err != nil {
			return nil, nil, nil, err
		}
		return provider, provider, provider, nil
	}
}
