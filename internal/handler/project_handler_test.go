package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"

	"github.com/kartikey2004-git/codesense/internal/port"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{port.ErrInvalidInput, fiber.StatusBadRequest},
		{port.ErrInvalidQuery, fiber.StatusBadRequest},
		{port.ErrProjectNotFound, fiber.StatusNotFound},
		{port.ErrAuthenticationRequired, fiber.StatusUnauthorized},
		{port.ErrRepositoryUnavailable, fiber.StatusUnprocessableEntity},
		{port.ErrEmbeddingUnavailable, fiber.StatusBadGateway},
		{errors.New("anything else"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestStatusForWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("load repository: %w", port.ErrAuthenticationRequired)
	assert.Equal(t, fiber.StatusUnauthorized, statusFor(wrapped))
}
