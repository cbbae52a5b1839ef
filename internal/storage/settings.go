package storage

import (
	"context"

	"lamconf/internal/domain"
)

// SettingsBackend durably stores the single settings record.
type SettingsBackend interface {
	// GetSettings returns the stored settings, or domain.DefaultSettings
	// when nothing has been saved yet.
	GetSettings(ctx context.Context) (*domain.Settings, error)
	// UpdateSettings replaces the stored settings.
	UpdateSettings(ctx context.Context, settings *domain.Settings) error
	// Close releases the backend's resources.
	Close() error
}
