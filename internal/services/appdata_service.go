package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"loom/internal/database"
	"loom/internal/models"
)

// AppDataService reads the sibling apps' collections. This service never
// writes to them; each app owns its own data and this side only takes
// capped recent snapshots for prompt context.
type AppDataService struct {
	mongo *database.MongoDB
	limit int
}

// NewAppDataService creates a reader capped at limit items per source.
func NewAppDataService(mongo *database.MongoDB, limit int) *AppDataService {
	if limit <= 0 {
		limit = 5
	}
	return &AppDataService{mongo: mongo, limit: limit}
}

// recent fills out with the newest limit documents for the user, oldest of
// the kept set first. out must be a pointer to a slice of documents.
func (s *AppDataService) recent(ctx context.Context, collection, timeField, userID string, out interface{}) error {
	if s.mongo == nil {
		return fmt.Errorf("mongodb not configured")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: timeField, Value: -1}}).
		SetLimit(int64(s.limit))
	cursor, err := s.mongo.Collection(collection).Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}

func reverseSlice[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// RecentNotes returns the user's newest notes, oldest first.
func (s *AppDataService) RecentNotes(ctx context.Context, userID string) ([]models.Note, error) {
	var notes []models.Note
	if err := s.recent(ctx, database.CollectionNotes, "createdAt", userID, &notes); err != nil {
		return nil, err
	}
	reverseSlice(notes)
	return notes, nil
}

// RecentEvents returns the user's most recently starting calendar events.
func (s *AppDataService) RecentEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	if err := s.recent(ctx, database.CollectionEvents, "startsAt", userID, &events); err != nil {
		return nil, err
	}
	reverseSlice(events)
	return events, nil
}

// RecentSearches returns the user's newest search history entries.
func (s *AppDataService) RecentSearches(ctx context.Context, userID string) ([]models.SearchEntry, error) {
	var searches []models.SearchEntry
	if err := s.recent(ctx, database.CollectionSearches, "createdAt", userID, &searches); err != nil {
		return nil, err
	}
	reverseSlice(searches)
	return searches, nil
}

// RecentEmails returns the user's newest mail summaries.
func (s *AppDataService) RecentEmails(ctx context.Context, userID string) ([]models.EmailSummary, error) {
	var emails []models.EmailSummary
	if err := s.recent(ctx, database.CollectionEmails, "receivedAt", userID, &emails); err != nil {
		return nil, err
	}
	reverseSlice(emails)
	return emails, nil
}

// RecentMedia returns the user's newest gallery uploads.
func (s *AppDataService) RecentMedia(ctx context.Context, userID string) ([]models.MediaFile, error) {
	var media []models.MediaFile
	if err := s.recent(ctx, database.CollectionMedia, "uploadedAt", userID, &media); err != nil {
		return nil, err
	}
	reverseSlice(media)
	return media, nil
}

// RecentMoods returns the user's newest mood entries.
func (s *AppDataService) RecentMoods(ctx context.Context, userID string) ([]models.MoodEntry, error) {
	var moods []models.MoodEntry
	if err := s.recent(ctx, database.CollectionMoods, "loggedAt", userID, &moods); err != nil {
		return nil, err
	}
	reverseSlice(moods)
	return moods, nil
}

// RecentTimeEntries returns the user's newest tracked work blocks.
func (s *AppDataService) RecentTimeEntries(ctx context.Context, userID string) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	if err := s.recent(ctx, database.CollectionTimeEntries, "loggedAt", userID, &entries); err != nil {
		return nil, err
	}
	reverseSlice(entries)
	return entries, nil
}
