package models

import "time"

// LearningEvent is one append-only row in the cross-app activity log.
// Events are written by every app surface (chat included) and are only
// ever read back in bounded recent windows.
type LearningEvent struct {
	ID        int64                  `json:"id"`
	UserID    string                 `json:"user_id"`
	AppType   string                 `json:"app_type"`  // "notes", "calendar", "search", "mail", "gallery", "chat", "mood", "timetracking"
	DataType  string                 `json:"data_type"` // e.g. "note_created", "chat_message"
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
