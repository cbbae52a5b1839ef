// Package audit records settings update attempts.
package audit

import (
	"context"
	"sort"
	"time"

	"lamconf/internal/domain"
)

// AuditEvent represents a single auditable action.
type AuditEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Actor        string    `json:"actor"`      // client address
	ActorType    string    `json:"actor_type"` // "admin" once the password matched
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Changes      *Changes  `json:"changes,omitempty"`
	Detail       string    `json:"detail,omitempty"` // message key of a rejected update
	RequestID    string    `json:"request_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	StatusCode   int       `json:"status_code"`
}

// Changes captures the before and after state for update operations.
type Changes struct {
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`
}

// ListOptions provides filtering and pagination options for listing audit events.
type ListOptions struct {
	Limit        int
	Offset       int
	Actor        string
	ActorType    string
	Action       string
	ResourceType string
	Since        *time.Time
	Until        *time.Time
}

// AuditLogger defines the interface for audit logging operations.
type AuditLogger interface {
	// Log records an audit event, assigning an ID and timestamp if unset.
	Log(ctx context.Context, event *AuditEvent) error

	// List returns matching events newest first, and the total match count.
	List(ctx context.Context, opts ListOptions) ([]*AuditEvent, int, error)

	GetByResource(ctx context.Context, resourceType, resourceID string) ([]*AuditEvent, error)
}

const (
	ActionUpdate = "update"
	ActionLogin  = "login"
)

const (
	ResourceSettings = "settings"

	// SettingsResourceID identifies the single settings record.
	SettingsResourceID = "lam"
)

const (
	ActorTypeAdmin     = "admin"
	ActorTypeAnonymous = "anonymous"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return defaultListLimit
	case o.Limit > maxListLimit:
		return maxListLimit
	}
	return o.Limit
}

// DiffSettings returns the non-secret fields that differ between before and
// after. A password rotation is recorded as "changed", never the value.
// It returns nil when nothing changed.
func DiffSettings(before, after domain.Settings, passwordChanged bool) *Changes {
	type field struct {
		name     string
		old, new any
	}
	fields := []field{
		{"host", before.Host, after.Host},
		{"port", before.Port, after.Port},
		{"admins", before.AdminString, after.AdminString},
		{"ssl", before.UseSSL, after.UseSSL},
		{"user_suffix", before.UserSuffix, after.UserSuffix},
		{"group_suffix", before.GroupSuffix, after.GroupSuffix},
		{"host_suffix", before.HostSuffix, after.HostSuffix},
	}
	c := &Changes{Before: map[string]any{}, After: map[string]any{}}
	for _, f := range fields {
		if f.old != f.new {
			c.Before[f.name] = f.old
			c.After[f.name] = f.new
		}
	}
	if passwordChanged {
		c.After["password"] = "changed"
	}
	if len(c.After) == 0 {
		return nil
	}
	return c
}

// ChangeKeys returns the changed field names in sorted order.
func ChangeKeys(c *Changes) []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.After))
	for k := range c.After {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
