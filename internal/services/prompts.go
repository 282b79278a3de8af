package services

import (
	"fmt"
	"strings"

	"loom/internal/models"
)

// BuildSystemPrompt renders the per-lane system prompt. Each lane embeds
// only the context slices it can act on so small local models aren't
// drowned in irrelevant sections.
func BuildSystemPrompt(taskType models.TaskType, cc *models.ConversationContext) string {
	if cc == nil {
		cc = &models.ConversationContext{}
	}

	var b strings.Builder
	b.WriteString("You are Loom, a personal assistant embedded in the user's workspace of apps (notes, calendar, mail, gallery, search). Answer concisely and concretely.\n")

	switch taskType {
	case models.TaskSearch:
		b.WriteString("\nThe user wants current information from the web. Ground your answer in the web search results provided in the user message and cite the sources by name.\n")
		writeSearchHistory(&b, cc)

	case models.TaskAnalytics:
		b.WriteString("\nThe user wants patterns and trends in their own activity. Reason only over the data below; do not invent numbers.\n")
		writeActivity(&b, cc)
		writeMoods(&b, cc)
		writeTimeEntries(&b, cc)

	case models.TaskData:
		b.WriteString("\nThe user is asking about their own stored data. Answer from the items below; say so plainly if something isn't there.\n")
		writeNotes(&b, cc)
		writeEvents(&b, cc)
		writeEmails(&b, cc)
		writeMedia(&b, cc)

	case models.TaskContent:
		b.WriteString("\nThe user wants help writing or creating something. Match their tone and keep drafts tight.\n")
		writeNotes(&b, cc)
		writePreferences(&b, cc)

	case models.TaskInterface:
		b.WriteString("\nThe user is asking about the product's interface. Give practical pointers to settings and layout options.\n")
		writePreferences(&b, cc)

	default:
		b.WriteString("\nThis is open conversation. Be warm, draw on what you know about the user when relevant.\n")
		writePreferences(&b, cc)
		writeNotes(&b, cc)
		writeEvents(&b, cc)
	}

	return b.String()
}

func writeNotes(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.Notes) == 0 {
		return
	}
	b.WriteString("\nRecent notes:\n")
	for _, n := range cc.Notes {
		fmt.Fprintf(b, "- %s: %s\n", n.Title, truncatePrompt(n.Content, 200))
	}
}

func writeEvents(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.Events) == 0 {
		return
	}
	b.WriteString("\nUpcoming and recent calendar events:\n")
	for _, e := range cc.Events {
		fmt.Fprintf(b, "- %s at %s", e.Title, e.StartsAt.Format("Mon Jan 2 15:04"))
		if e.Location != "" {
			fmt.Fprintf(b, " (%s)", e.Location)
		}
		b.WriteString("\n")
	}
}

func writeSearchHistory(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.Searches) == 0 {
		return
	}
	b.WriteString("\nThe user's recent searches:\n")
	for _, s := range cc.Searches {
		fmt.Fprintf(b, "- %s\n", s.Query)
	}
}

func writeEmails(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.Emails) == 0 {
		return
	}
	b.WriteString("\nRecent mail:\n")
	for _, e := range cc.Emails {
		fmt.Fprintf(b, "- From %s: %s\n", e.From, e.Subject)
	}
}

func writeMedia(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.Media) == 0 {
		return
	}
	b.WriteString("\nRecent gallery uploads:\n")
	for _, m := range cc.Media {
		fmt.Fprintf(b, "- %s (%s)\n", m.Filename, m.Kind)
	}
}

func writeMoods(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.Moods) == 0 {
		return
	}
	b.WriteString("\nMood log:\n")
	for _, m := range cc.Moods {
		fmt.Fprintf(b, "- %s: %s\n", m.LoggedAt.Format("Jan 2"), m.Mood)
	}
}

func writeTimeEntries(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.TimeEntries) == 0 {
		return
	}
	b.WriteString("\nTracked work blocks:\n")
	for _, t := range cc.TimeEntries {
		fmt.Fprintf(b, "- %s: %d min\n", t.Task, t.Minutes)
	}
}

func writeActivity(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.Activity) == 0 {
		return
	}
	b.WriteString("\nRecent activity across apps:\n")
	for _, a := range cc.Activity {
		fmt.Fprintf(b, "- [%s] %s\n", a.AppType, a.DataType)
	}
}

func writePreferences(b *strings.Builder, cc *models.ConversationContext) {
	if len(cc.Preferences) == 0 {
		return
	}
	b.WriteString("\nKnown preferences:\n")
	for _, p := range cc.Preferences {
		fmt.Fprintf(b, "- %s: %s\n", p.Key, p.Value)
	}
}

func truncatePrompt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
