package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lamconf/internal/auth"
	"lamconf/internal/domain"
)

// Document is the settings record loaded for a single request.
// Setters only change the in-memory copy; Save writes it to the backend.
// A Document is not safe for concurrent use.
type Document struct {
	backend  SettingsBackend
	current  domain.Settings
	password *string // pending plaintext, hashed on Save
	hashCost int
	now      func() time.Time
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithHashCost sets the bcrypt cost used when a new password is saved.
func WithHashCost(cost int) DocumentOption {
	return func(d *Document) {
		if cost > 0 {
			d.hashCost = cost
		}
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) DocumentOption {
	return func(d *Document) {
		if now != nil {
			d.now = now
		}
	}
}

// LoadDocument reads the current settings from backend.
func LoadDocument(ctx context.Context, backend SettingsBackend, opts ...DocumentOption) (*Document, error) {
	s, err := backend.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	d := &Document{
		backend:  backend,
		current:  s.Clone(),
		hashCost: auth.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Settings returns a copy of the in-memory settings.
func (d *Document) Settings() domain.Settings { return d.current.Clone() }

// HasPassword reports whether an admin password has been stored.
func (d *Document) HasPassword() bool { return len(d.current.PasswordHash) > 0 }

// VerifyPassword reports whether candidate matches the stored password.
// It always fails while no password has been stored.
func (d *Document) VerifyPassword(candidate string) bool {
	return auth.VerifyPassword(candidate, d.current.PasswordHash) == nil
}

func (d *Document) SetHost(host string)          { d.current.Host = host }
func (d *Document) SetPort(port string)          { d.current.Port = port }
func (d *Document) SetAdminString(admins string) { d.current.AdminString = admins }
func (d *Document) SetSSL(enabled bool)          { d.current.UseSSL = enabled }
func (d *Document) SetUserSuffix(suffix string)  { d.current.UserSuffix = suffix }
func (d *Document) SetGroupSuffix(suffix string) { d.current.GroupSuffix = suffix }
func (d *Document) SetHostSuffix(suffix string)  { d.current.HostSuffix = suffix }

// SetPassword stages a new admin password. It is hashed and stored by Save.
func (d *Document) SetPassword(password string) {
	d.password = &password
}

// Save hashes a staged password and writes the settings to the backend.
// A staged password longer than auth.MaxPasswordLength fails with
// ErrValidation before the backend is touched.
// On failure the in-memory values are left as they are.
func (d *Document) Save(ctx context.Context) error {
	rec := d.current.Clone()
	if d.password != nil {
		hash, err := auth.HashPasswordWithCost(*d.password, d.hashCost)
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		rec.PasswordHash = hash
	}
	rec.UpdatedAt = d.now().UTC()

	if err := d.backend.UpdateSettings(ctx, &rec); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	d.current = rec
	d.password = nil
	return nil
}

// RenderSummary renders the in-memory settings for display.
func (d *Document) RenderSummary() string {
	return d.current.Summary()
}
