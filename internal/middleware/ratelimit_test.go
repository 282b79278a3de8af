package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func chatApp(config *RateLimitConfig) *fiber.App {
	app := fiber.New()
	app.Post("/api/chat", ChatRateLimiter(config), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return app
}

func postChat(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestChatRateLimiterKeysOnBodyUserID(t *testing.T) {
	config := &RateLimitConfig{
		ChatMax:        2,
		ChatExpiration: time.Minute,
	}
	app := chatApp(config)

	// Two turns for the same user are fine, the third trips the limit.
	for i := 0; i < 2; i++ {
		if got := postChat(t, app, `{"user_id":"user-1","message":"hi"}`); got != fiber.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, got, fiber.StatusOK)
		}
	}
	if got := postChat(t, app, `{"user_id":"user-1","message":"hi"}`); got != fiber.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want %d", got, fiber.StatusTooManyRequests)
	}

	// A different user from the same IP still gets through.
	if got := postChat(t, app, `{"user_id":"user-2","message":"hi"}`); got != fiber.StatusOK {
		t.Fatalf("other user: status = %d, want %d", got, fiber.StatusOK)
	}
}

func TestChatRateLimiterFallsBackToIP(t *testing.T) {
	config := &RateLimitConfig{
		ChatMax:        1,
		ChatExpiration: time.Minute,
	}
	app := chatApp(config)

	if got := postChat(t, app, `{"message":"no user"}`); got != fiber.StatusOK {
		t.Fatalf("first request: status = %d, want %d", got, fiber.StatusOK)
	}
	if got := postChat(t, app, `not even json`); got != fiber.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want %d", got, fiber.StatusTooManyRequests)
	}
}
