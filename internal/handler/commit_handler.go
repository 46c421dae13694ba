package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/service"
)

// CommitHandler serves the commit log, polling for new commits first.
type CommitHandler struct {
	commits *service.CommitService
}

// NewCommitHandler creates a new commit handler.
func NewCommitHandler(commits *service.CommitService) *CommitHandler {
	return &CommitHandler{commits: commits}
}

// Register sets up commit routes.
func (h *CommitHandler) Register(router fiber.Router) {
	router.Get("/projects/:id/commits", h.List)
}

// List polls the hosting API for new commits, then returns the project's
// commit log newest first with AI summaries.
func (h *CommitHandler) List(c fiber.Ctx) error {
	records, err := h.commits.CommitLog(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if records == nil {
		records = []domain.CommitRecord{}
	}
	return c.JSON(fiber.Map{"commits": records})
}
