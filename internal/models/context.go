package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConversationContext is the ephemeral per-request snapshot of a user's
// world assembled before prompt construction. Every slice is capped; any
// source that fails to load is simply left empty. It is never persisted.
type ConversationContext struct {
	Notes       []Note
	Events      []CalendarEvent
	Searches    []SearchEntry
	Emails      []EmailSummary
	Media       []MediaFile
	Moods       []MoodEntry
	TimeEntries []TimeEntry
	Activity    []LearningEvent
	Preferences []Preference
}

// Note is a read-only projection of the Notes app's documents.
type Note struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Tags      []string           `bson:"tags,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// CalendarEvent is a read-only projection of the Calendar app's documents.
type CalendarEvent struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	UserID   string             `bson:"userId"`
	Title    string             `bson:"title"`
	Location string             `bson:"location,omitempty"`
	StartsAt time.Time          `bson:"startsAt"`
	EndsAt   time.Time          `bson:"endsAt,omitempty"`
}

// SearchEntry is one saved query from the Search app's history.
type SearchEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Query     string             `bson:"query"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// EmailSummary is a read-only projection of the Mail app's messages.
type EmailSummary struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     string             `bson:"userId"`
	From       string             `bson:"from"`
	Subject    string             `bson:"subject"`
	Snippet    string             `bson:"snippet,omitempty"`
	ReceivedAt time.Time          `bson:"receivedAt"`
}

// MediaFile is a read-only projection of the Gallery app's uploads.
type MediaFile struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     string             `bson:"userId"`
	Filename   string             `bson:"filename"`
	Kind       string             `bson:"kind,omitempty"` // "image", "video", "audio"
	UploadedAt time.Time          `bson:"uploadedAt"`
}

// MoodEntry is one logged mood from the wellbeing tracker.
type MoodEntry struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	UserID   string             `bson:"userId"`
	Mood     string             `bson:"mood"`
	Note     string             `bson:"note,omitempty"`
	LoggedAt time.Time          `bson:"loggedAt"`
}

// TimeEntry is one logged work block from the time tracker.
type TimeEntry struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	UserID   string             `bson:"userId"`
	Task     string             `bson:"task"`
	Minutes  int                `bson:"minutes"`
	LoggedAt time.Time          `bson:"loggedAt"`
}
