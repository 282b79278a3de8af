package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"loom/internal/services"
)

// MemoryHandler exposes read-only memory statistics
type MemoryHandler struct {
	memory *services.MemoryService
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memory *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{memory: memory}
}

// Stats reports how much interaction history a user has accumulated
// GET /api/memory/stats/:userID
func (h *MemoryHandler) Stats(c *fiber.Ctx) error {
	userID := c.Params("userID")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userID is required",
		})
	}

	stats, err := h.memory.Stats(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [MEMORY] Failed to load stats for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load memory stats",
		})
	}

	return c.JSON(stats)
}
