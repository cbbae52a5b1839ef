package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailed means the supplied password did not match the
	// stored one. Callers show the login view; nothing was evaluated or changed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrPasswordMismatch means the new password and its confirmation differ.
	// Non-secret fields have already been applied to the store in memory.
	ErrPasswordMismatch = errors.New("new password and confirmation differ")

	// ErrPersistence matches every *PersistenceError via errors.Is.
	ErrPersistence = errors.New("persisting settings failed")
)

// ValidationError reports the first required field that was empty.
type ValidationError struct {
	Field Field
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s is empty", e.Field)
}

// Key returns the message key describing the empty field.
func (e *ValidationError) Key() string {
	return e.Field.EmptyKey()
}

// PersistenceError wraps the error returned by ConfigStore.Save.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting settings failed: %v", e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrPersistence) true for any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// MessageKey maps an error returned by HandleUpdate to its message key.
// Unknown errors map to KeySaveFailed.
func MessageKey(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Key()
	case errors.Is(err, ErrAuthenticationFailed):
		return KeyPasswordInvalid
	case errors.Is(err, ErrPasswordMismatch):
		return KeyPasswordsDifferent
	default:
		return KeySaveFailed
	}
}
