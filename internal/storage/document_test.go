package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lamconf/internal/auth"
	"lamconf/internal/settings"
)

var _ settings.ConfigStore = (*Document)(nil)

func seededBackend(t *testing.T, password string) *MemorySettingsBackend {
	t.Helper()
	b := NewMemorySettingsBackend()
	s, err := b.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	hash, err := auth.HashPasswordWithCost(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	s.PasswordHash = hash
	if err := b.UpdateSettings(context.Background(), s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return b
}

func loadDoc(t *testing.T, b SettingsBackend) *Document {
	t.Helper()
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	d, err := LoadDocument(context.Background(), b, WithHashCost(bcrypt.MinCost), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	return d
}

func TestDocument_VerifyPassword(t *testing.T) {
	d := loadDoc(t, seededBackend(t, "lam"))
	if !d.HasPassword() {
		t.Fatal("expected a stored password")
	}
	if !d.VerifyPassword("lam") {
		t.Error("expected correct password to verify")
	}
	if d.VerifyPassword("Lam") {
		t.Error("expected wrong password to fail")
	}
}

func TestDocument_NoPasswordRejectsEverything(t *testing.T) {
	d := loadDoc(t, NewMemorySettingsBackend())
	if d.HasPassword() {
		t.Fatal("fresh backend must not have a password")
	}
	for _, c := range []string{"", "lam", "anything"} {
		if d.VerifyPassword(c) {
			t.Errorf("VerifyPassword(%q) succeeded without a stored password", c)
		}
	}
}

func TestDocument_SaveWritesBackend(t *testing.T) {
	b := seededBackend(t, "lam")
	d := loadDoc(t, b)

	d.SetHost("ldap.example.com")
	d.SetPort("636")
	d.SetAdminString("cn=admin,dc=example")
	d.SetSSL(true)
	d.SetUserSuffix("ou=Users,dc=example")
	d.SetGroupSuffix("ou=Groups,dc=example")
	d.SetHostSuffix("")

	// Nothing reaches the backend before Save.
	stored, _ := b.GetSettings(context.Background())
	if stored.Host == "ldap.example.com" {
		t.Fatal("setter wrote through to backend")
	}

	if err := d.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	stored, _ = b.GetSettings(context.Background())
	if stored.Host != "ldap.example.com" || stored.Port != "636" || !stored.UseSSL {
		t.Errorf("unexpected stored settings: %+v", stored)
	}
	if stored.HostSuffix != "" {
		t.Errorf("host suffix = %q", stored.HostSuffix)
	}
	if stored.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be stamped")
	}
	if err := auth.VerifyPassword("lam", stored.PasswordHash); err != nil {
		t.Error("password must survive an update without rotation")
	}
}

func TestDocument_SetPasswordRotatesOnSave(t *testing.T) {
	b := seededBackend(t, "lam")
	d := loadDoc(t, b)

	d.SetPassword("secret1")
	// Still the old password until saved.
	if !d.VerifyPassword("lam") {
		t.Error("old password should verify before Save")
	}
	if err := d.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !d.VerifyPassword("secret1") || d.VerifyPassword("lam") {
		t.Error("document should verify only the new password after Save")
	}

	reloaded := loadDoc(t, b)
	if !reloaded.VerifyPassword("secret1") {
		t.Error("reloaded document should verify the rotated password")
	}
}

func TestDocument_SaveFailureKeepsMemory(t *testing.T) {
	b := seededBackend(t, "lam")
	d := loadDoc(t, b)
	cause := errors.New("disk full")
	b.FailUpdates(cause)

	d.SetHost("new-host")
	err := d.Save(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if d.Settings().Host != "new-host" {
		t.Error("in-memory value must not be rolled back")
	}
	b.FailUpdates(nil)
	stored, _ := b.GetSettings(context.Background())
	if stored.Host == "new-host" {
		t.Error("failed save must not reach the backend")
	}
}

func TestDocument_SaveRejectsOverlongPassword(t *testing.T) {
	b := seededBackend(t, "lam")
	d := loadDoc(t, b)
	d.SetHost("changed.example.com")
	d.SetPassword(strings.Repeat("x", auth.MaxPasswordLength+1))

	err := d.Save(context.Background())
	if !errors.Is(err, ErrValidation) || !errors.Is(err, auth.ErrPasswordTooLong) {
		t.Fatalf("expected ErrValidation wrapping ErrPasswordTooLong, got %v", err)
	}
	stored, _ := b.GetSettings(context.Background())
	if stored.Host == "changed.example.com" {
		t.Error("nothing may be written when the password is refused")
	}
	if !d.VerifyPassword("lam") {
		t.Error("old password must still verify")
	}
}

func TestDocument_VerifyPasswordMaxLength(t *testing.T) {
	full := strings.Repeat("p", auth.MaxPasswordLength)
	b := NewMemorySettingsBackend()
	seed := loadDoc(t, b)
	seed.SetPassword(full)
	if err := seed.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d := loadDoc(t, b)
	tests := []struct {
		candidate string
		want      bool
	}{
		{full, true},
		{full + "EXTRA", false},
		{full + "p", false},
		{full[:auth.MaxPasswordLength-1], false},
	}
	for _, tt := range tests {
		if got := d.VerifyPassword(tt.candidate); got != tt.want {
			t.Errorf("VerifyPassword(%d bytes) = %v, want %v", len(tt.candidate), got, tt.want)
		}
	}
}

func TestDocument_RenderSummary(t *testing.T) {
	d := loadDoc(t, seededBackend(t, "lam"))
	d.SetHost("ldap.example.com")
	d.SetSSL(true)
	sum := d.RenderSummary()
	for _, want := range []string{"Host: ldap.example.com", "SSL: True"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q:\n%s", want, sum)
		}
	}
	if strings.Contains(sum, "$2a$") {
		t.Error("summary must not leak the password hash")
	}
}

func TestDocument_WithHandleUpdate(t *testing.T) {
	b := seededBackend(t, "lam")
	d := loadDoc(t, b)

	out, err := settings.HandleUpdate(context.Background(), settings.Submission{
		SuppliedPassword:   "lam",
		Host:               "ldap.example.com",
		Port:               "389",
		AdminString:        "cn=admin",
		SSLFlag:            "on",
		UserSuffix:         "ou=Users,dc=example",
		GroupSuffix:        "ou=Groups,dc=example",
		NewPassword:        "secret1",
		NewPasswordConfirm: "secret1",
	}, d)
	if err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}
	if !out.PasswordChanged {
		t.Error("expected password change")
	}
	if !strings.Contains(out.Summary, "Host: ldap.example.com") {
		t.Errorf("summary = %q", out.Summary)
	}
	if !loadDoc(t, b).VerifyPassword("secret1") {
		t.Error("rotated password not persisted")
	}
}

func TestLoadDocument_BackendError(t *testing.T) {
	b := NewMemorySettingsBackend()
	_ = b.Close()
	if _, err := LoadDocument(context.Background(), b); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
