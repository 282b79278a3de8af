package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"loom/internal/models"
	"loom/internal/services"
)

// PreferenceHandler handles preference CRUD endpoints
type PreferenceHandler struct {
	prefs *services.PreferenceService
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(prefs *services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// List returns all of a user's preferences
// GET /api/preferences?user_id=
func (h *PreferenceHandler) List(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id query parameter is required",
		})
	}

	prefs, err := h.prefs.List(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [PREFS] Failed to list preferences: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list preferences",
		})
	}

	if prefs == nil {
		prefs = []models.Preference{}
	}
	return c.JSON(fiber.Map{
		"preferences": prefs,
	})
}

// Create stores a preference; duplicates of an existing
// (user, category, value) are a no-op returning the existing record
// POST /api/preferences
func (h *PreferenceHandler) Create(c *fiber.Ctx) error {
	var req models.CreatePreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	pref, created, err := h.prefs.CreateIfAbsent(c.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("❌ [PREFS] Failed to create preference: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create preference",
		})
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(pref)
}

// Update rewrites an existing preference
// PUT /api/preferences/:id?user_id=
func (h *PreferenceHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid preference ID",
		})
	}
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id query parameter is required",
		})
	}

	var req models.UpdatePreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	pref, err := h.prefs.Update(c.Context(), id, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Preference not found",
			})
		case errors.Is(err, services.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("❌ [PREFS] Failed to update preference %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update preference",
		})
	}

	return c.JSON(pref)
}

// Delete removes a preference
// DELETE /api/preferences/:id?user_id=
func (h *PreferenceHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid preference ID",
		})
	}
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id query parameter is required",
		})
	}

	if err := h.prefs.Delete(c.Context(), id, userID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Preference not found",
			})
		}
		log.Printf("❌ [PREFS] Failed to delete preference %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete preference",
		})
	}

	return c.JSON(fiber.Map{
		"status": "deleted",
	})
}
