package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"loom/internal/database"
	"loom/internal/services"
)

// HealthHandler reports service and collaborator status
type HealthHandler struct {
	db           *database.DB
	mongo        *database.MongoDB
	redis        *services.RedisService
	orchestrator *services.Orchestrator
}

// NewHealthHandler creates a new health handler; any collaborator may be nil
func NewHealthHandler(db *database.DB, mongo *database.MongoDB, redis *services.RedisService, orchestrator *services.Orchestrator) *HealthHandler {
	return &HealthHandler{db: db, mongo: mongo, redis: redis, orchestrator: orchestrator}
}

// Handle responds with per-collaborator readiness. The service itself is
// always "healthy": the rule-based responder answers even with every
// collaborator down.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	collaborators := fiber.Map{}

	if h.db != nil {
		collaborators["mysql"] = statusOf(h.db.PingContext(c.Context()))
	} else {
		collaborators["mysql"] = "not_configured"
	}

	if h.mongo != nil {
		collaborators["mongodb"] = statusOf(h.mongo.Ping(c.Context()))
	} else {
		collaborators["mongodb"] = "not_configured"
	}

	if h.redis != nil {
		collaborators["redis"] = statusOf(h.redis.Ping(c.Context()))
	} else {
		collaborators["redis"] = "not_configured"
	}

	backends := fiber.Map{}
	if h.orchestrator != nil {
		for _, b := range h.orchestrator.Chain() {
			if b.Ready() {
				backends[b.Name()] = "ready"
			} else {
				backends[b.Name()] = "not_ready"
			}
		}
	}

	return c.JSON(fiber.Map{
		"status":        "healthy",
		"collaborators": collaborators,
		"backends":      backends,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

func statusOf(err error) string {
	if err != nil {
		return "unreachable"
	}
	return "up"
}
