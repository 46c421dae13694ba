package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/port"
	"github.com/kartikey2004-git/codesense/internal/service"
)

// ProjectHandler handles project lifecycle endpoints. Creating a project
// kicks off an asynchronous indexing run followed by an initial commit poll.
type ProjectHandler struct {
	projects   port.ProjectStore
	embeddings port.EmbeddingStore
	indexer    *service.Indexer
	commits    *service.CommitService
	tracker    *JobTracker
	runTimeout time.Duration
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projects port.ProjectStore, embeddings port.EmbeddingStore, indexer *service.Indexer, commits *service.CommitService, tracker *JobTracker, runTimeout time.Duration) *ProjectHandler {
	return &ProjectHandler{
		projects:   projects,
		embeddings: embeddings,
		indexer:    indexer,
		commits:    commits,
		tracker:    tracker,
		runTimeout: runTimeout,
	}
}

// Register sets up project routes.
func (h *ProjectHandler) Register(router fiber.Router) {
	projects := router.Group("/projects")
	projects.Post("/", h.Create)
	projects.Get("/", h.List)
	projects.Get("/:id", h.Get)
	projects.Delete("/:id", h.Delete)
}

// Create registers a project and starts indexing it in the background.
// Responds immediately with the project and a job id for progress tracking.
func (h *ProjectHandler) Create(c fiber.Ctx) error {
	var body struct {
		Name        string `json:"name"`
		RepoURL     string `json:"repo_url"`
		GitHubToken string `json:"github_token"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Name == "" || body.RepoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and repo_url are required"})
	}

	project, err := h.projects.CreateProject(c.Context(), &domain.Project{
		Name:        body.Name,
		RepoURL:     body.RepoURL,
		AccessToken: body.GitHubToken,
	})
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	jobID := uuid.NewString()
	h.tracker.CreateJob(jobID, project.ID)

	go h.runIndexing(jobID, project)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"project": project,
		"job_id":  jobID,
	})
}

// runIndexing executes one bounded indexing run plus the initial commit poll.
func (h *ProjectHandler) runIndexing(jobID string, project *domain.Project) {
	ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
	defer cancel()

	report, err := h.indexer.IndexWithProgress(ctx, project.ID, project.RepoURL, project.AccessToken, func(r service.IndexReport) {
		h.tracker.UpdateProgress(jobID, r)
	})
	if err != nil {
		slog.Error("indexing run failed", "project_id", project.ID, "job_id", jobID, "error", err)
		h.tracker.Fail(jobID, err)
		return
	}
	h.tracker.Complete(jobID, report)

	if _, err := h.commits.PollCommits(ctx, project.ID); err != nil {
		slog.Warn("initial commit poll failed", "project_id", project.ID, "error", err)
	}
}

// List returns all projects that are not soft-deleted.
func (h *ProjectHandler) List(c fiber.Ctx) error {
	projects, err := h.projects.ListProjects(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return c.JSON(fiber.Map{"projects": projects})
}

// Get returns a single project; soft-deleted projects read as not found.
func (h *ProjectHandler) Get(c fiber.Ctx) error {
	project, err := h.projects.GetProject(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if project.Deleted() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": port.ErrProjectNotFound.Error()})
	}
	return c.JSON(project)
}

// Delete soft-deletes a project. Running workers observe the deletion and
// stop. Embeddings are left in place unless ?purge=true, which drops them so
// a re-created project indexes from scratch.
func (h *ProjectHandler) Delete(c fiber.Ctx) error {
	id := c.Params("id")
	if err := h.projects.SoftDeleteProject(c.Context(), id); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if c.Query("purge") == "true" {
		if err := h.embeddings.DeleteEmbeddings(c.Context(), id); err != nil {
			slog.Warn("embedding purge failed", "project_id", id, "error", err)
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}

// statusFor maps port sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrInvalidInput), errors.Is(err, port.ErrInvalidQuery):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrProjectNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, port.ErrAuthenticationRequired):
		return fiber.StatusUnauthorized
	case errors.Is(err, port.ErrRepositoryUnavailable):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, port.ErrEmbeddingUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
