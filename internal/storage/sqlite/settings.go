//go:build sqlite

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"lamconf/internal/domain"
	"lamconf/internal/storage"
)

// settingsKey is the row holding the settings record.
const settingsKey = "lam"

// GetSettings retrieves the settings from the database, or the defaults if none are stored.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := domain.DefaultSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	var settings domain.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings saves the settings to the database.
func (s *Store) UpdateSettings(ctx context.Context, settings *domain.Settings) error {
	if settings == nil {
		return storage.ErrValidation
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		settingsKey, string(raw))
	return err
}
