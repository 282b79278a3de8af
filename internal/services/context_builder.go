package services

import (
	"context"
	"log"

	"loom/internal/models"
)

// Per-source readers the builder pulls from. Interfaces keep each source
// swappable and let tests inject failing sources.
type appDataReader interface {
	RecentNotes(ctx context.Context, userID string) ([]models.Note, error)
	RecentEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error)
	RecentSearches(ctx context.Context, userID string) ([]models.SearchEntry, error)
	RecentEmails(ctx context.Context, userID string) ([]models.EmailSummary, error)
	RecentMedia(ctx context.Context, userID string) ([]models.MediaFile, error)
	RecentMoods(ctx context.Context, userID string) ([]models.MoodEntry, error)
	RecentTimeEntries(ctx context.Context, userID string) ([]models.TimeEntry, error)
}

type preferenceLister interface {
	List(ctx context.Context, userID string) ([]models.Preference, error)
}

type activityReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]models.LearningEvent, error)
}

// ContextBuilder assembles the ephemeral per-request snapshot of a user's
// world. Each source is read independently; a failing source degrades to an
// empty slice and the turn proceeds with whatever loaded. The snapshot is
// never persisted.
type ContextBuilder struct {
	appData  appDataReader
	prefs    preferenceLister
	activity activityReader
	limit    int
}

// NewContextBuilder creates a builder capped at limit items per source.
func NewContextBuilder(appData appDataReader, prefs preferenceLister, activity activityReader, limit int) *ContextBuilder {
	if limit <= 0 {
		limit = 5
	}
	return &ContextBuilder{
		appData:  appData,
		prefs:    prefs,
		activity: activity,
		limit:    limit,
	}
}

// Build assembles the context for one turn. It always returns a usable
// snapshot; in the worst case every slice is empty.
func (b *ContextBuilder) Build(ctx context.Context, userID string) *models.ConversationContext {
	cc := &models.ConversationContext{}

	var err error
	if cc.Notes, err = b.appData.RecentNotes(ctx, userID); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping notes for user %s: %v", userID, err)
		cc.Notes = nil
	}
	if cc.Events, err = b.appData.RecentEvents(ctx, userID); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping events for user %s: %v", userID, err)
		cc.Events = nil
	}
	if cc.Searches, err = b.appData.RecentSearches(ctx, userID); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping searches for user %s: %v", userID, err)
		cc.Searches = nil
	}
	if cc.Emails, err = b.appData.RecentEmails(ctx, userID); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping emails for user %s: %v", userID, err)
		cc.Emails = nil
	}
	if cc.Media, err = b.appData.RecentMedia(ctx, userID); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping media for user %s: %v", userID, err)
		cc.Media = nil
	}
	if cc.Moods, err = b.appData.RecentMoods(ctx, userID); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping moods for user %s: %v", userID, err)
		cc.Moods = nil
	}
	if cc.TimeEntries, err = b.appData.RecentTimeEntries(ctx, userID); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping time entries for user %s: %v", userID, err)
		cc.TimeEntries = nil
	}
	if cc.Preferences, err = b.prefs.List(ctx, userID); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping preferences for user %s: %v", userID, err)
		cc.Preferences = nil
	}
	if cc.Activity, err = b.activity.Recent(ctx, userID, b.limit); err != nil {
		log.Printf("⚠️ [CONTEXT] Skipping activity for user %s: %v", userID, err)
		cc.Activity = nil
	}

	// The MySQL sources return newest first; flip them so every slice in
	// the snapshot reads oldest-of-the-kept-set first like the app sources.
	reverseSlice(cc.Preferences)
	reverseSlice(cc.Activity)

	// Sources cap at the query, but a snapshot from a misbehaving source
	// still gets clamped here so prompts stay bounded.
	cc.Notes = capSlice(cc.Notes, b.limit)
	cc.Events = capSlice(cc.Events, b.limit)
	cc.Searches = capSlice(cc.Searches, b.limit)
	cc.Emails = capSlice(cc.Emails, b.limit)
	cc.Media = capSlice(cc.Media, b.limit)
	cc.Moods = capSlice(cc.Moods, b.limit)
	cc.TimeEntries = capSlice(cc.TimeEntries, b.limit)
	cc.Preferences = capSlice(cc.Preferences, b.limit)
	cc.Activity = capSlice(cc.Activity, b.limit)

	return cc
}

// capSlice keeps the last n items so the newest of a chronological slice
// survive the cut.
func capSlice[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
