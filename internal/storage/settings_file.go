package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"lamconf/internal/domain"
)

// fileFormatVersion is written to every settings file.
const fileFormatVersion = 1

// fileRecord is the on-disk YAML layout of the settings file.
type fileRecord struct {
	Version      int       `yaml:"version"`
	Host         string    `yaml:"host"`
	Port         string    `yaml:"port"`
	Admins       string    `yaml:"admins"`
	SSL          bool      `yaml:"ssl"`
	UserSuffix   string    `yaml:"user_suffix"`
	GroupSuffix  string    `yaml:"group_suffix"`
	HostSuffix   string    `yaml:"host_suffix"`
	PasswordHash string    `yaml:"password_hash,omitempty"`
	UpdatedAt    time.Time `yaml:"updated_at,omitempty"`
}

func recordFromSettings(s *domain.Settings) fileRecord {
	return fileRecord{
		Version:      fileFormatVersion,
		Host:         s.Host,
		Port:         s.Port,
		Admins:       s.AdminString,
		SSL:          s.UseSSL,
		UserSuffix:   s.UserSuffix,
		GroupSuffix:  s.GroupSuffix,
		HostSuffix:   s.HostSuffix,
		PasswordHash: string(s.PasswordHash),
		UpdatedAt:    s.UpdatedAt,
	}
}

func (r fileRecord) settings() *domain.Settings {
	s := &domain.Settings{
		Host:        r.Host,
		Port:        r.Port,
		AdminString: r.Admins,
		UseSSL:      r.SSL,
		UserSuffix:  r.UserSuffix,
		GroupSuffix: r.GroupSuffix,
		HostSuffix:  r.HostSuffix,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.PasswordHash != "" {
		s.PasswordHash = []byte(r.PasswordHash)
	}
	return s
}

// FileSettingsBackend stores settings in a YAML file.
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so readers never observe a partially written file.
type FileSettingsBackend struct {
	mu   sync.Mutex
	path string
}

var _ SettingsBackend = (*FileSettingsBackend)(nil)

// NewFileSettingsBackend returns a backend for the file at path.
// The file does not need to exist yet.
func NewFileSettingsBackend(path string) (*FileSettingsBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: settings file path is empty", ErrValidation)
	}
	return &FileSettingsBackend{path: path}, nil
}

// Path returns the settings file location.
func (b *FileSettingsBackend) Path() string { return b.path }

func (b *FileSettingsBackend) GetSettings(_ context.Context) (*domain.Settings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		defaults := domain.DefaultSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var rec fileRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", b.path, err)
	}
	if rec.Version > fileFormatVersion {
		return nil, fmt.Errorf("settings file %s has unsupported version %d", b.path, rec.Version)
	}
	return rec.settings(), nil
}

func (b *FileSettingsBackend) UpdateSettings(_ context.Context, settings *domain.Settings) error {
	if settings == nil {
		return ErrValidation
	}
	data, err := yaml.Marshal(recordFromSettings(settings))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("chmod settings file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		cleanup()
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

// Close is a no-op; the file is only open during reads and writes.
func (b *FileSettingsBackend) Close() error { return nil }
