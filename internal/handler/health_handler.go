package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	backend Pinger
}

// NewHealthHandler creates a new HealthHandler over the backend connection.
func NewHealthHandler(backend Pinger) *HealthHandler {
	return &HealthHandler{backend: backend}
}

// Check performs a health check by pinging the storefront backend.
// Returns 200 OK with {"status": "healthy"} when the backend is reachable.
// Returns 503 Service Unavailable when it is not.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.backend.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: backend unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "backend connection failed",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
