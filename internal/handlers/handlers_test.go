package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"loom/internal/models"
	"loom/internal/services"
)

type stubContexts struct{}

func (stubContexts) Build(context.Context, string) *models.ConversationContext {
	return &models.ConversationContext{}
}

type stubMemory struct{}

func (stubMemory) Retrieve(context.Context, string, string) ([]models.MemoryRecord, error) {
	return nil, nil
}

func (stubMemory) Append(context.Context, string, string, models.MemoryMetadata) error {
	return nil
}

type stubEventLog struct {
	events []models.LearningEvent
}

func (s stubEventLog) Recent(context.Context, string, int) ([]models.LearningEvent, error) {
	return s.events, nil
}

func newTestOrchestrator() *services.Orchestrator {
	return services.NewOrchestrator(
		services.NewTaskClassifier(),
		nil,
		stubContexts{},
		stubMemory{},
		nil,
		nil,
		services.NewInterruptRegistry(nil),
		nil,
	)
}

func TestChatHandler(t *testing.T) {
	app := fiber.New()
	handler := NewChatHandler(newTestOrchestrator())
	app.Post("/api/chat", handler.Handle)

	t.Run("valid turn", func(t *testing.T) {
		body, _ := json.Marshal(models.ChatRequest{Message: "hello there", UserID: "user-1"})
		req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}

		var chatResp models.ChatResponse
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &chatResp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if chatResp.Response == "" {
			t.Error("Expected a non-empty response")
		}
		if chatResp.TaskType == "" {
			t.Error("Expected a task type")
		}
	})

	t.Run("missing user_id", func(t *testing.T) {
		body, _ := json.Marshal(models.ChatRequest{Message: "hello"})
		req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})
}

func TestInterruptHandler(t *testing.T) {
	app := fiber.New()
	handler := NewChatHandler(newTestOrchestrator())
	app.Post("/api/chat/interrupt", handler.Interrupt)

	body, _ := json.Marshal(models.InterruptRequest{UserID: "user-1"})
	req := httptest.NewRequest("POST", "/api/chat/interrupt", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var ack map[string]interface{}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &ack); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if ack["status"] != "interrupted" {
		t.Errorf("Expected status 'interrupted', got %v", ack["status"])
	}
}

func TestInsightsHandler(t *testing.T) {
	eventLog := stubEventLog{events: []models.LearningEvent{
		{UserID: "user-1", AppType: "chat", DataType: "chat_message"},
	}}
	insights := services.NewInsightsService(eventLog, 200, 0)

	app := fiber.New()
	handler := NewInsightsHandler(insights)
	app.Get("/api/insights", handler.Get)

	t.Run("returns narrative", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/insights?user_id=user-1", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}

		var payload map[string]string
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if payload["insights"] == "" {
			t.Error("Expected a non-empty insights narrative")
		}
	})

	t.Run("missing user_id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/insights", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})
}

func TestMemoryStatsHandler(t *testing.T) {
	app := fiber.New()
	handler := NewMemoryHandler(services.NewMemoryService(nil, 5))
	app.Get("/api/memory/stats/:userID", handler.Stats)

	req := httptest.NewRequest("GET", "/api/memory/stats/user-1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var stats models.MemoryStats
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if stats.UserID != "user-1" {
		t.Errorf("Expected user_id 'user-1', got %q", stats.UserID)
	}
	if stats.MemoryCount != 0 {
		t.Errorf("Expected 0 memories for a fresh user, got %d", stats.MemoryCount)
	}
}

func TestPreferenceHandlerValidation(t *testing.T) {
	app := fiber.New()
	handler := NewPreferenceHandler(nil) // validation failures never reach the service
	app.Get("/api/preferences", handler.List)
	app.Put("/api/preferences/:id", handler.Update)
	app.Delete("/api/preferences/:id", handler.Delete)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"list without user_id", "GET", "/api/preferences"},
		{"update with bad id", "PUT", "/api/preferences/abc"},
		{"update without user_id", "PUT", "/api/preferences/1"},
		{"delete with bad id", "DELETE", "/api/preferences/abc"},
		{"delete without user_id", "DELETE", "/api/preferences/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to send request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(nil, nil, nil, newTestOrchestrator())
	app.Get("/health", handler.Handle)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var health map[string]interface{}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("Expected 'healthy' even with collaborators down, got %v", health["status"])
	}
	collaborators, ok := health["collaborators"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected a collaborators map")
	}
	if collaborators["mysql"] != "not_configured" {
		t.Errorf("Expected mysql 'not_configured', got %v", collaborators["mysql"])
	}
}
