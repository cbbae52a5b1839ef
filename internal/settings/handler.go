// Package settings applies an administrator's settings submission to the
// stored configuration.
//
// HandleUpdate authenticates the submitter, checks the required fields,
// applies them, optionally rotates the admin password and persists the
// result. It never logs and never renders text: failures are returned as
// typed errors and confirmation text as message keys for the caller to
// translate.
package settings

import (
	"context"
	"strings"
)

// SSLEnabled is the only sslFlag value that turns SSL on.
const SSLEnabled = "on"

// blankChars are the trailing characters ignored when checking that a
// required field is filled in: space, tab, newline, carriage return, NUL and
// vertical tab. Other Unicode spaces count as content.
const blankChars = " \t\n\r\x00\x0B"

// ConfigStore is the configuration loaded for one request.
type ConfigStore interface {
	VerifyPassword(candidate string) bool

	SetHost(host string)
	SetPort(port string)
	SetAdminString(admins string)
	SetSSL(enabled bool)
	SetUserSuffix(suffix string)
	SetGroupSuffix(suffix string)
	SetHostSuffix(suffix string)
	SetPassword(password string)

	Save(ctx context.Context) error
	RenderSummary() string
}

// Submission holds the raw form values of a settings update.
type Submission struct {
	SuppliedPassword   string `json:"password"`
	Host               string `json:"host"`
	Port               string `json:"port"`
	AdminString        string `json:"admins"`
	SSLFlag            string `json:"ssl"`
	UserSuffix         string `json:"user_suffix"`
	GroupSuffix        string `json:"group_suffix"`
	HostSuffix         string `json:"host_suffix"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// Outcome describes a successful update.
type Outcome struct {
	PasswordChanged bool     `json:"password_changed"`
	Summary         string   `json:"summary"`
	Messages        []string `json:"messages"`
}

// HandleUpdate runs the update against store. The checks run in a fixed
// order and the first failure ends the update:
//
//  1. ErrAuthenticationFailed if the supplied password is wrong.
//  2. *ValidationError for the first empty required field.
//  3. ErrPasswordMismatch if the new password and confirmation differ.
//     The non-secret fields are already set on store at this point.
//  4. *PersistenceError if store.Save fails.
func HandleUpdate(ctx context.Context, sub Submission, store ConfigStore) (*Outcome, error) {
	if !store.VerifyPassword(sub.SuppliedPassword) {
		return nil, ErrAuthenticationFailed
	}

	if err := validateRequired(sub); err != nil {
		return nil, err
	}

	store.SetHost(sub.Host)
	store.SetPort(sub.Port)
	store.SetAdminString(sub.AdminString)
	store.SetSSL(sub.SSLFlag == SSLEnabled)
	store.SetUserSuffix(sub.UserSuffix)
	store.SetGroupSuffix(sub.GroupSuffix)
	store.SetHostSuffix(sub.HostSuffix)

	if sub.NewPassword != sub.NewPasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	out := &Outcome{}
	if sub.NewPassword != "" {
		store.SetPassword(sub.NewPassword)
		out.PasswordChanged = true
		out.Messages = append(out.Messages, KeyPasswordChanged)
	}

	if err := store.Save(ctx); err != nil {
		return nil, &PersistenceError{Cause: err}
	}

	out.Messages = append(out.Messages, KeySettingsSaving)
	out.Summary = store.RenderSummary()
	return out, nil
}

func validateRequired(sub Submission) error {
	required := []struct {
		field Field
		value string
	}{
		{FieldHost, sub.Host},
		{FieldPort, sub.Port},
		{FieldAdminString, sub.AdminString},
		{FieldUserSuffix, sub.UserSuffix},
		{FieldGroupSuffix, sub.GroupSuffix},
	}
	for _, r := range required {
		if strings.TrimRight(r.value, blankChars) == "" {
			return &ValidationError{Field: r.field}
		}
	}
	return nil
}
