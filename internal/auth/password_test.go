package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWithCost("lam", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPasswordWithCost() error = %v", err)
	}
	if string(hash) == "lam" {
		t.Fatal("hash must not equal the plaintext")
	}

	tests := []struct {
		name      string
		candidate string
		wantErr   error
	}{
		{name: "exact match", candidate: "lam", wantErr: nil},
		{name: "different case", candidate: "LAM", wantErr: ErrInvalidPassword},
		{name: "trailing space", candidate: "lam ", wantErr: ErrInvalidPassword},
		{name: "empty", candidate: "", wantErr: ErrInvalidPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword(tt.candidate, hash)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyPassword(%q) = %v, want %v", tt.candidate, err, tt.wantErr)
			}
		})
	}
}

func TestVerifyPassword_NoHash(t *testing.T) {
	if err := VerifyPassword("anything", nil); !errors.Is(err, ErrNoPassword) {
		t.Errorf("expected ErrNoPassword, got %v", err)
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPasswordWithCost(strings.Repeat("a", MaxPasswordLength+1), bcrypt.MinCost)
	if err == nil {
		t.Fatal("expected error for over-long password")
	}
	if !strings.Contains(err.Error(), "at most 72") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerifyPassword_RejectsCandidatesPastLimit(t *testing.T) {
	stored := strings.Repeat("p", MaxPasswordLength)
	hash, err := HashPasswordWithCost(stored, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPasswordWithCost() error = %v", err)
	}

	tests := []struct {
		name      string
		candidate string
		wantErr   error
	}{
		{name: "exact", candidate: stored, wantErr: nil},
		{name: "suffix appended", candidate: stored + "EXTRA", wantErr: ErrInvalidPassword},
		{name: "one byte over", candidate: stored + "p", wantErr: ErrInvalidPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyPassword(tt.candidate, hash); !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyPassword() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashPassword_TooLongSentinel(t *testing.T) {
	_, err := HashPasswordWithCost(strings.Repeat("a", MaxPasswordLength+1), bcrypt.MinCost)
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := HashPasswordWithCost(strings.Repeat("a", MaxPasswordLength), bcrypt.MinCost); err != nil {
		t.Errorf("a password of exactly %d bytes must hash: %v", MaxPasswordLength, err)
	}
}
