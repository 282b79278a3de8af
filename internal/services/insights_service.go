package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"loom/internal/models"
)

const insightsCachePrefix = "insights:"

// eventReader is the slice of LearningService the generator needs.
type eventReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]models.LearningEvent, error)
}

// insightRule maps the presence of an app type in the event window to one
// observation line. Rules run in declaration order so the narrative is
// stable for a given window.
type insightRule struct {
	appType string
	line    func(count int) string
}

var insightRules = []insightRule{
	{"chat", func(n int) string {
		return fmt.Sprintf("You've had %d chat interactions recently.", n)
	}},
	{"notes", func(n int) string {
		return fmt.Sprintf("You've been taking notes actively (%d note updates) — capturing ideas regularly.", n)
	}},
	{"events", func(n int) string {
		return fmt.Sprintf("Your calendar has seen %d changes, so your schedule is in motion.", n)
	}},
	{"search", func(n int) string {
		return fmt.Sprintf("You've run %d searches — lots of curiosity lately.", n)
	}},
	{"mail", func(n int) string {
		return fmt.Sprintf("You've processed %d email actions.", n)
	}},
	{"gallery", func(n int) string {
		return fmt.Sprintf("You've added to your gallery %d times.", n)
	}},
	{"mood", func(n int) string {
		return fmt.Sprintf("You've logged your mood %d times — nice consistency.", n)
	}},
	{"time", func(n int) string {
		return fmt.Sprintf("You've tracked time on %d occasions.", n)
	}},
}

// suggestionsForAbsent is keyed on app types with no recent events; at
// most two fire, in declaration order.
var suggestionsForAbsent = []struct {
	appType string
	line    string
}{
	{"notes", "Try jotting down quick notes — they feed back into your chats."},
	{"mood", "Logging your mood once a day helps surface longer-term patterns."},
	{"events", "Adding events to your calendar lets me remind you about your week."},
	{"time", "Time tracking can reveal where your focus actually goes."},
}

// InsightsService turns a user's recent learning events into a short
// deterministic narrative. A nightly batch warms the cache for active
// users; the endpoint reads cache-first.
type InsightsService struct {
	events eventReader
	cache  *gocache.Cache
	window int
}

func NewInsightsService(events eventReader, window int, cacheTTL time.Duration) *InsightsService {
	if window <= 0 {
		window = 200
	}
	if cacheTTL <= 0 {
		cacheTTL = 26 * time.Hour
	}
	return &InsightsService{
		events: events,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
		window: window,
	}
}

// Summarize returns the cached narrative when warm, otherwise generates
// and caches one.
func (s *InsightsService) Summarize(ctx context.Context, userID string) (string, error) {
	if userID = strings.TrimSpace(userID); userID == "" {
		return "", fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if cached, ok := s.cache.Get(insightsCachePrefix + userID); ok {
		return cached.(string), nil
	}
	return s.Refresh(ctx, userID)
}

// Refresh regenerates the narrative from the durable event log and
// overwrites the cache entry. The batch job calls this directly.
func (s *InsightsService) Refresh(ctx context.Context, userID string) (string, error) {
	events, err := s.events.Recent(ctx, userID, s.window)
	if err != nil {
		return "", fmt.Errorf("failed to load learning events: %w", err)
	}

	narrative := buildNarrative(events)
	s.cache.Set(insightsCachePrefix+userID, narrative, gocache.DefaultExpiration)
	return narrative, nil
}

func buildNarrative(events []models.LearningEvent) string {
	if len(events) == 0 {
		return "Not enough activity yet to draw insights. Keep using your apps and check back soon!"
	}

	counts := make(map[string]int, len(insightRules))
	for _, e := range events {
		counts[e.AppType]++
	}

	var b strings.Builder
	b.WriteString("Here's what I've noticed recently:\n")
	for _, rule := range insightRules {
		if n := counts[rule.appType]; n > 0 {
			b.WriteString("• ")
			b.WriteString(rule.line(n))
			b.WriteString("\n")
		}
	}

	suggested := 0
	for _, s := range suggestionsForAbsent {
		if suggested == 2 {
			break
		}
		if counts[s.appType] == 0 {
			if suggested == 0 {
				b.WriteString("\nSuggestions:\n")
			}
			b.WriteString("• ")
			b.WriteString(s.line)
			b.WriteString("\n")
			suggested++
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// WarmUsers refreshes the cache for each user, logging and skipping
// per-user failures.
func (s *InsightsService) WarmUsers(ctx context.Context, userIDs []string) {
	for _, id := range userIDs {
		if _, err := s.Refresh(ctx, id); err != nil {
			log.Printf("⚠️ [INSIGHTS] Failed to warm insights for user %s: %v", id, err)
		}
	}
	if len(userIDs) > 0 {
		log.Printf("✅ [INSIGHTS] Warmed insights for %d users", len(userIDs))
	}
}
