package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loom/internal/database"
	"loom/internal/models"
)

// LearningService owns the append-only learning_events table. Every app
// surface records what the user did through here; rows are never updated
// or deleted, only appended and read back in bounded recent windows.
type LearningService struct {
	db *database.DB
}

// NewLearningService creates a new learning event service
func NewLearningService(db *database.DB) *LearningService {
	return &LearningService{db: db}
}

// Record appends one event.
func (s *LearningService) Record(ctx context.Context, event models.LearningEvent) error {
	var payload interface{}
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		payload = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_events (user_id, app_type, data_type, payload)
		VALUES (?, ?, ?, ?)
	`, event.UserID, event.AppType, event.DataType, payload)
	if err != nil {
		return fmt.Errorf("failed to record learning event: %w", err)
	}
	return nil
}

// Recent returns the user's newest events, newest first.
func (s *LearningService) Recent(ctx context.Context, userID string, limit int) ([]models.LearningEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, app_type, data_type, payload, created_at
		FROM learning_events
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query learning events: %w", err)
	}
	defer rows.Close()

	var events []models.LearningEvent
	for rows.Next() {
		var e models.LearningEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.AppType, &e.DataType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learning event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				// Malformed payloads don't block the read; the event
				// itself still counts for insight grouping.
				e.Payload = nil
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ActiveUsers lists users with at least one event since the cutoff. The
// insights batch job uses this to decide whose summaries to warm.
func (s *LearningService) ActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id
		FROM learning_events
		WHERE created_at >= ?
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
