package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"loom/internal/services"
)

// InsightsHandler serves the activity narrative
type InsightsHandler struct {
	insights *services.InsightsService
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(insights *services.InsightsService) *InsightsHandler {
	return &InsightsHandler{insights: insights}
}

// Get returns the user's insights narrative, cache-first
// GET /api/insights?user_id=
func (h *InsightsHandler) Get(c *fiber.Ctx) error {
	userID := c.Query("user_id")

	narrative, err := h.insights.Summarize(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id query parameter is required",
			})
		}
		log.Printf("❌ [INSIGHTS] Failed to summarize for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate insights",
		})
	}

	return c.JSON(fiber.Map{
		"insights": narrative,
	})
}
