package backends

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/models"
)

// RuleBased is the terminal backend in every chain. It is always ready,
// never errors, and produces a non-empty deterministic reply from keyword
// matches and whatever context was assembled for the turn. Its presence is
// what lets the orchestrator promise a response for every input.
type RuleBased struct {
	desc models.BackendDescriptor
}

// NewRuleBased creates the terminal responder.
func NewRuleBased(desc models.BackendDescriptor) *RuleBased {
	if desc.Confidence == 0 {
		desc.Confidence = 0.7
	}
	return &RuleBased{desc: desc}
}

func (r *RuleBased) Name() string                         { return r.desc.Name }
func (r *RuleBased) Descriptor() models.BackendDescriptor { return r.desc }
func (r *RuleBased) Ready() bool                          { return true }

func (r *RuleBased) EnsureReady(ctx context.Context) error { return nil }

func (r *RuleBased) Generate(ctx context.Context, req Request) (string, error) {
	msg := strings.ToLower(strings.TrimSpace(req.Message))
	cc := req.Context
	if cc == nil {
		cc = &models.ConversationContext{}
	}

	if isGreeting(msg) {
		return "Hey! I'm your assistant. I can search the web, look through your notes and events, spot patterns in your activity, or help you write something. What would you like to do?", nil
	}

	if strings.Contains(msg, "news") {
		return "I can't reach live news right now. Try asking me to search again in a moment, or open the Search app for the latest headlines.", nil
	}
	if strings.Contains(msg, "weather") {
		return "I can't fetch the live weather right now. Try again shortly and I'll look it up for you.", nil
	}

	if strings.Contains(msg, "favorite") || strings.Contains(msg, "prefer") {
		if len(cc.Preferences) > 0 {
			var b strings.Builder
			b.WriteString("Here's what I know you like:\n")
			for _, p := range cc.Preferences {
				fmt.Fprintf(&b, "- %s: %s\n", p.Key, p.Value)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		}
		return "I haven't learned your preferences yet. Tell me things like \"my favorite album is...\" and I'll remember them.", nil
	}

	switch req.TaskType {
	case models.TaskSearch:
		reply := "I couldn't reach the web search service, so I don't have live results for that."
		if len(cc.Searches) > 0 {
			reply += fmt.Sprintf(" Your last search here was %q - want me to retry when search is back?", cc.Searches[len(cc.Searches)-1].Query)
		}
		return reply, nil

	case models.TaskAnalytics:
		return activitySummary(cc), nil

	case models.TaskData:
		return dataSummary(cc), nil

	case models.TaskContent:
		return fmt.Sprintf("Here's a starting point for %q:\n\n1. Jot down the key points you want to cover.\n2. Open with the single most important one.\n3. Keep each paragraph to one idea.\n\nShare a draft and I'll help you tighten it.", strings.TrimSpace(req.Message)), nil

	case models.TaskInterface:
		return "For interface tweaks, head to Settings in the app you want to change - themes, layout, and accent colors live there. Tell me what you're trying to adjust and I can point you to the exact toggle.", nil

	default:
		if len(cc.Notes) > 0 || len(cc.Events) > 0 {
			return fmt.Sprintf("I'm listening. You have %d recent notes and %d upcoming events I can pull from - ask me anything about them, or just chat.", len(cc.Notes), len(cc.Events)), nil
		}
		return "I'm here to help. Ask me to search for something, look through your data, or help you write - or just tell me what's on your mind.", nil
	}
}

func isGreeting(msg string) bool {
	for _, g := range []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"} {
		if msg == g || strings.HasPrefix(msg, g+" ") || strings.HasPrefix(msg, g+",") || strings.HasPrefix(msg, g+"!") {
			return true
		}
	}
	return false
}

func activitySummary(cc *models.ConversationContext) string {
	var b strings.Builder
	b.WriteString("Here's what I can see in your recent activity: ")
	fmt.Fprintf(&b, "%d notes, %d calendar events, %d searches, and %d logged work blocks.",
		len(cc.Notes), len(cc.Events), len(cc.Searches), len(cc.TimeEntries))
	if len(cc.Moods) > 0 {
		fmt.Fprintf(&b, " Your latest mood entry was %q.", cc.Moods[len(cc.Moods)-1].Mood)
	}
	b.WriteString(" Ask about any of these and I'll dig in.")
	return b.String()
}

func dataSummary(cc *models.ConversationContext) string {
	if len(cc.Notes) == 0 && len(cc.Events) == 0 {
		return "I don't see any recent notes or events for you yet. Once you add some, ask me again and I'll summarize them."
	}
	var b strings.Builder
	b.WriteString("From your data:\n")
	for _, n := range cc.Notes {
		fmt.Fprintf(&b, "- Note: %s\n", n.Title)
	}
	for _, e := range cc.Events {
		fmt.Fprintf(&b, "- Event: %s (%s)\n", e.Title, e.StartsAt.Format("Jan 2 15:04"))
	}
	b.WriteString("Want details on any of these?")
	return b.String()
}
