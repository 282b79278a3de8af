package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-sql-driver/mysql"

	"loom/internal/database"
	"loom/internal/models"
)

// ErrValidation marks a caller mistake; handlers map it to HTTP 400.
// No writes happen once validation fails.
var ErrValidation = errors.New("validation failed")

// ErrNotFound marks a missing row; handlers map it to HTTP 404.
var ErrNotFound = errors.New("not found")

// PreferenceService owns the durable preferences table. The invariant it
// protects: at most one row per (user, category, normalized value), first
// writer wins. Extraction goes through CreateIfAbsent; the HTTP surface
// additionally gets explicit update and delete.
type PreferenceService struct {
	db *database.DB
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(db *database.DB) *PreferenceService {
	return &PreferenceService{db: db}
}

// normalizeValue is the dedup key: lowercased, whitespace-trimmed.
func normalizeValue(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}

// List returns all preferences for a user, newest first.
func (s *PreferenceService) List(ctx context.Context, userID string) ([]models.Preference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, pref_key, value, source, confidence, created_at, updated_at
		FROM preferences
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []models.Preference
	for rows.Next() {
		var p models.Preference
		if err := rows.Scan(&p.ID, &p.UserID, &p.Category, &p.Key, &p.Value, &p.Source, &p.Confidence, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// CreateIfAbsent inserts a preference unless an equal one (same user,
// category, normalized value) already exists. The existing row wins and is
// returned unchanged; the unique key backstops the check-then-insert race.
func (s *PreferenceService) CreateIfAbsent(ctx context.Context, req models.CreatePreferenceRequest) (*models.Preference, bool, error) {
	if err := validatePreference(req); err != nil {
		return nil, false, err
	}
	if req.Source == "" {
		req.Source = "manual"
	}
	if req.Confidence == 0 {
		req.Confidence = 1.0
	}

	normalized := normalizeValue(req.Value)

	if existing, err := s.find(ctx, req.UserID, req.Category, normalized); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, category, pref_key, value, normalized_value, source, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, req.UserID, req.Category, req.Key, strings.TrimSpace(req.Value), normalized, req.Source, req.Confidence)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			// Lost the race to a concurrent writer; their row wins.
			existing, ferr := s.find(ctx, req.UserID, req.Category, normalized)
			if ferr != nil || existing == nil {
				return nil, false, fmt.Errorf("failed to load winning preference: %w", err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert preference: %w", err)
	}

	id, _ := res.LastInsertId()
	created, err := s.getByID(ctx, id, req.UserID)
	if err != nil {
		return nil, false, err
	}
	log.Printf("✅ [PREFERENCES] Stored %s/%s=%q for user %s", req.Category, req.Key, req.Value, req.UserID)
	return created, true, nil
}

// Update rewrites an existing preference's fields.
func (s *PreferenceService) Update(ctx context.Context, id int64, userID string, req models.UpdatePreferenceRequest) (*models.Preference, error) {
	existing, err := s.getByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Category != "" {
		existing.Category = req.Category
	}
	if req.Key != "" {
		existing.Key = req.Key
	}
	if req.Value != "" {
		existing.Value = strings.TrimSpace(req.Value)
	}
	if strings.TrimSpace(existing.Value) == "" || strings.TrimSpace(existing.Category) == "" {
		return nil, fmt.Errorf("%w: category and value must be non-empty", ErrValidation)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE preferences
		SET category = ?, pref_key = ?, value = ?, normalized_value = ?
		WHERE id = ? AND user_id = ?
	`, existing.Category, existing.Key, existing.Value, normalizeValue(existing.Value), id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update preference: %w", err)
	}

	return s.getByID(ctx, id, userID)
}

// Delete removes a preference row.
func (s *PreferenceService) Delete(ctx context.Context, id int64, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PreferenceService) find(ctx context.Context, userID, category, normalized string) (*models.Preference, error) {
	var p models.Preference
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, category, pref_key, value, source, confidence, created_at, updated_at
		FROM preferences
		WHERE user_id = ? AND category = ? AND normalized_value = ?
	`, userID, category, normalized).Scan(&p.ID, &p.UserID, &p.Category, &p.Key, &p.Value, &p.Source, &p.Confidence, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up preference: %w", err)
	}
	return &p, nil
}

func (s *PreferenceService) getByID(ctx context.Context, id int64, userID string) (*models.Preference, error) {
	var p models.Preference
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, category, pref_key, value, source, confidence, created_at, updated_at
		FROM preferences
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&p.ID, &p.UserID, &p.Category, &p.Key, &p.Value, &p.Source, &p.Confidence, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}
	return &p, nil
}

func validatePreference(req models.CreatePreferenceRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if strings.TrimSpace(req.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if strings.TrimSpace(req.Value) == "" {
		return fmt.Errorf("%w: value is required", ErrValidation)
	}
	return nil
}
