//go:build postgres

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lamconf/internal/domain"
	"lamconf/internal/storage"
)

const settingsKey = "lam"

// GetSettings returns the stored settings, or the defaults when no row exists.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, settingsKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		defaults := domain.DefaultSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	var settings domain.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings upserts the settings row.
func (s *Store) UpdateSettings(ctx context.Context, settings *domain.Settings) error {
	if settings == nil {
		return storage.ErrValidation
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		settingsKey, string(raw))
	return err
}
