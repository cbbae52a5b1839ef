package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEvents bounds the in-memory audit trail.
const DefaultMaxEvents = 10000

// MemoryAuditLogger keeps events in memory, newest first.
// The oldest events are dropped once maxEvents is reached.
type MemoryAuditLogger struct {
	mu        sync.RWMutex
	events    []*AuditEvent
	maxEvents int
}

var _ AuditLogger = (*MemoryAuditLogger)(nil)

// MemoryAuditLoggerOption configures a MemoryAuditLogger.
type MemoryAuditLoggerOption func(*MemoryAuditLogger)

// WithMaxEvents sets the maximum number of events to keep.
func WithMaxEvents(max int) MemoryAuditLoggerOption {
	return func(m *MemoryAuditLogger) {
		if max > 0 {
			m.maxEvents = max
		}
	}
}

// NewMemoryAuditLogger creates a new in-memory audit logger.
func NewMemoryAuditLogger(opts ...MemoryAuditLoggerOption) *MemoryAuditLogger {
	m := &MemoryAuditLogger{maxEvents: DefaultMaxEvents}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryAuditLogger) Log(_ context.Context, event *AuditEvent) error {
	if event == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append([]*AuditEvent{copyEvent(event)}, m.events...)
	if len(m.events) > m.maxEvents {
		m.events = m.events[:m.maxEvents]
	}
	return nil
}

func (m *MemoryAuditLogger) List(_ context.Context, opts ListOptions) ([]*AuditEvent, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []*AuditEvent
	for _, e := range m.events {
		if opts.matches(e) {
			filtered = append(filtered, e)
		}
	}
	total := len(filtered)

	start := min(opts.Offset, total)
	end := min(start+opts.limit(), total)
	out := make([]*AuditEvent, 0, end-start)
	for _, e := range filtered[start:end] {
		out = append(out, copyEvent(e))
	}
	return out, total, nil
}

func (m *MemoryAuditLogger) GetByResource(_ context.Context, resourceType, resourceID string) ([]*AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*AuditEvent
	for _, e := range m.events {
		if e.ResourceType == resourceType && e.ResourceID == resourceID {
			out = append(out, copyEvent(e))
		}
	}
	return out, nil
}

func (o ListOptions) matches(e *AuditEvent) bool {
	switch {
	case o.Actor != "" && e.Actor != o.Actor:
		return false
	case o.ActorType != "" && e.ActorType != o.ActorType:
		return false
	case o.Action != "" && e.Action != o.Action:
		return false
	case o.ResourceType != "" && e.ResourceType != o.ResourceType:
		return false
	case o.Since != nil && e.Timestamp.Before(*o.Since):
		return false
	case o.Until != nil && e.Timestamp.After(*o.Until):
		return false
	}
	return true
}

func copyEvent(e *AuditEvent) *AuditEvent {
	c := *e
	if e.Changes != nil {
		c.Changes = &Changes{
			Before: copyMap(e.Changes.Before),
			After:  copyMap(e.Changes.After),
		}
	}
	return &c
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
