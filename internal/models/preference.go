package models

import "time"

// Preference is a durable user preference row. At most one row exists per
// (user, category, normalized value); the first writer wins.
type Preference struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Source     string    `json:"source"`     // "chat" or "manual"
	Confidence float64   `json:"confidence"` // extraction confidence, 0..1
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreatePreferenceRequest is the payload for POST /api/preferences.
type CreatePreferenceRequest struct {
	UserID     string  `json:"user_id"`
	Category   string  `json:"category"`
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// UpdatePreferenceRequest is the payload for PUT /api/preferences/:id.
type UpdatePreferenceRequest struct {
	Category string `json:"category,omitempty"`
	Key      string `json:"key,omitempty"`
	Value    string `json:"value,omitempty"`
}
