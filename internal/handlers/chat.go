package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"loom/internal/models"
	"loom/internal/services"
)

// ChatHandler handles chat and interrupt endpoints
type ChatHandler struct {
	orchestrator *services.Orchestrator
}

// NewChatHandler creates a new chat handler
func NewChatHandler(orchestrator *services.Orchestrator) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator}
}

// Handle runs one chat turn
// POST /api/chat
func (h *ChatHandler) Handle(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.orchestrator.HandleChat(c.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("❌ [CHAT] Turn failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(resp)
}

// Interrupt raises the stop flag for a user's in-flight turn
// POST /api/chat/interrupt
func (h *ChatHandler) Interrupt(c *fiber.Ctx) error {
	var req models.InterruptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	found := h.orchestrator.Interrupt(c.Context(), req.UserID)
	return c.JSON(fiber.Map{
		"status":    "interrupted",
		"in_flight": found,
	})
}
