package backends

import (
	"context"
	"strings"
	"testing"
	"time"

	"loom/internal/models"
)

func TestRuleBasedAlwaysAnswers(t *testing.T) {
	rb := NewRuleBased(models.BackendDescriptor{Name: "rules", Type: "rules"})

	tests := []struct {
		name     string
		message  string
		taskType models.TaskType
		contains string
	}{
		{"greeting", "hey there", models.TaskChat, "assistant"},
		{"greeting exact", "hello", models.TaskChat, "assistant"},
		{"news", "any news today?", models.TaskChat, "news"},
		{"weather", "what's the weather like", models.TaskChat, "weather"},
		{"search degraded", "search for go generics", models.TaskSearch, "search"},
		{"analytics", "show my trends", models.TaskAnalytics, "recent activity"},
		{"content", "write a blog intro", models.TaskContent, "starting point"},
		{"interface", "change the theme", models.TaskInterface, "Settings"},
		{"empty message still answered", "", models.TaskChat, "help"},
		{"gibberish", "xyzzy plugh qwerty", models.TaskChat, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rb.Generate(context.Background(), Request{
				Message:  tt.message,
				TaskType: tt.taskType,
				Context:  &models.ConversationContext{},
			})
			if err != nil {
				t.Fatalf("rule-based backend returned error: %v", err)
			}
			if strings.TrimSpace(got) == "" {
				t.Fatal("rule-based backend returned empty response")
			}
			if tt.contains != "" && !strings.Contains(strings.ToLower(got), strings.ToLower(tt.contains)) {
				t.Errorf("response %q does not mention %q", got, tt.contains)
			}
		})
	}
}

func TestRuleBasedUsesPreferences(t *testing.T) {
	rb := NewRuleBased(models.BackendDescriptor{Name: "rules", Type: "rules"})

	cc := &models.ConversationContext{
		Preferences: []models.Preference{
			{Category: "music", Key: "favorite_album", Value: "Abbey Road"},
		},
	}

	got, err := rb.Generate(context.Background(), Request{
		Message:  "what are my favorite things?",
		TaskType: models.TaskChat,
		Context:  cc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Abbey Road") {
		t.Errorf("expected stored preference in response, got %q", got)
	}
}

func TestRuleBasedDataSummary(t *testing.T) {
	rb := NewRuleBased(models.BackendDescriptor{Name: "rules", Type: "rules"})

	cc := &models.ConversationContext{
		Notes: []models.Note{{Title: "Project kickoff"}},
		Events: []models.CalendarEvent{
			{Title: "Standup", StartsAt: time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)},
		},
	}

	got, err := rb.Generate(context.Background(), Request{
		Message:  "show my notes",
		TaskType: models.TaskData,
		Context:  cc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Project kickoff") || !strings.Contains(got, "Standup") {
		t.Errorf("expected note and event titles in response, got %q", got)
	}
}

func TestRuleBasedIsAlwaysReady(t *testing.T) {
	rb := NewRuleBased(models.BackendDescriptor{Name: "rules", Type: "rules"})
	if !rb.Ready() {
		t.Fatal("rule-based backend must always be ready")
	}
	if err := rb.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady returned error: %v", err)
	}
	if rb.Descriptor().Confidence != 0.7 {
		t.Errorf("expected default confidence 0.7, got %v", rb.Descriptor().Confidence)
	}
}
