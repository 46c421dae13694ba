package handler

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/kartikey2004-git/codesense/internal/domain"
	"github.com/kartikey2004-git/codesense/internal/service"
)

// AskHandler handles retrieval-augmented question answering over a project.
type AskHandler struct {
	retrieval *service.RetrievalService
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(retrieval *service.RetrievalService) *AskHandler {
	return &AskHandler{retrieval: retrieval}
}

// Register sets up ask routes.
func (h *AskHandler) Register(router fiber.Router) {
	router.Post("/projects/:id/ask", h.Ask)
}

// Ask answers a question about the project's codebase. The response is an
// SSE stream: a "references" event with the cited files, "chunk" events
// relaying the generated answer unmodified, and a closing "done" event.
func (h *AskHandler) Ask(c fiber.Ctx) error {
	projectID := c.Params("id")

	var body struct {
		Question string `json:"question"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	answer, err := h.retrieval.Ask(c.Context(), projectID, body.Question)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	references := answer.References
	if references == nil {
		references = []domain.FileReference{}
	}

	return c.SendStreamWriter(func(w *bufio.Writer) {
		refs, _ := json.Marshal(references)
		fmt.Fprintf(w, "event: references\ndata: %s\n\n", string(refs))
		w.Flush()

		for chunk := range answer.Stream {
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", string(data))
			w.Flush()
		}

		fmt.Fprint(w, "event: done\ndata: {}\n\n")
		w.Flush()
	})
}
