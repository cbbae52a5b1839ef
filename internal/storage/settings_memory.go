package storage

import (
	"context"
	"sync"

	"lamconf/internal/domain"
)

// MemorySettingsBackend is an in-memory implementation of SettingsBackend.
type MemorySettingsBackend struct {
	mu        sync.RWMutex
	settings  *domain.Settings
	updateErr error
	closed    bool
}

var _ SettingsBackend = (*MemorySettingsBackend)(nil)

// NewMemorySettingsBackend creates a new in-memory backend holding the defaults.
func NewMemorySettingsBackend() *MemorySettingsBackend {
	defaults := domain.DefaultSettings()
	return &MemorySettingsBackend{settings: &defaults}
}

// FailUpdates makes every following UpdateSettings call return err.
// Pass nil to restore normal behaviour.
func (s *MemorySettingsBackend) FailUpdates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

func (s *MemorySettingsBackend) GetSettings(_ context.Context) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	copy := s.settings.Clone()
	return &copy, nil
}

func (s *MemorySettingsBackend) UpdateSettings(_ context.Context, settings *domain.Settings) error {
	if settings == nil {
		return ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.updateErr != nil {
		return s.updateErr
	}
	copy := settings.Clone()
	s.settings = &copy
	return nil
}

// Close marks the backend closed.
func (s *MemorySettingsBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
