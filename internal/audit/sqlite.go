//go:build sqlite

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SQLiteAuditLogger writes events to the audit_logs table created by the
// sqlite storage migrations.
type SQLiteAuditLogger struct {
	db *sql.DB
}

var _ AuditLogger = (*SQLiteAuditLogger)(nil)

// NewSQLiteAuditLoggerFromDB creates an audit logger sharing the settings store's connection.
func NewSQLiteAuditLoggerFromDB(db *sql.DB) *SQLiteAuditLogger {
	return &SQLiteAuditLogger{db: db}
}

func (s *SQLiteAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if event == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var changesJSON sql.NullString
	if event.Changes != nil {
		if data, err := json.Marshal(event.Changes); err == nil {
			changesJSON = sql.NullString{String: string(data), Valid: true}
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, timestamp, actor, actor_type, action, resource_type, resource_id, changes, detail, request_id, ip_address, status_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Actor,
		event.ActorType,
		event.Action,
		event.ResourceType,
		event.ResourceID,
		changesJSON,
		nullString(event.Detail),
		nullString(event.RequestID),
		nullString(event.IPAddress),
		event.StatusCode,
	)
	return err
}

func (s *SQLiteAuditLogger) List(ctx context.Context, opts ListOptions) ([]*AuditEvent, int, error) {
	where := "1=1"
	var args []any
	add := func(clause string, v any) {
		where += " AND " + clause
		args = append(args, v)
	}
	if opts.Actor != "" {
		add("actor = ?", opts.Actor)
	}
	if opts.ActorType != "" {
		add("actor_type = ?", opts.ActorType)
	}
	if opts.Action != "" {
		add("action = ?", opts.Action)
	}
	if opts.ResourceType != "" {
		add("resource_type = ?", opts.ResourceType)
	}
	if opts.Since != nil {
		add("timestamp >= ?", opts.Since.UTC().Format(time.RFC3339Nano))
	}
	if opts.Until != nil {
		add("timestamp <= ?", opts.Until.UTC().Format(time.RFC3339Nano))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, timestamp, actor, actor_type, action, resource_type, resource_id, changes, detail, request_id, ip_address, status_code FROM audit_logs WHERE "+
			where+" ORDER BY timestamp DESC LIMIT ? OFFSET ?",
		append(args, opts.limit(), opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events, err := scanSQLiteEvents(rows)
	return events, total, err
}

func (s *SQLiteAuditLogger) GetByResource(ctx context.Context, resourceType, resourceID string) ([]*AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, actor, actor_type, action, resource_type, resource_id, changes, detail, request_id, ip_address, status_code
		FROM audit_logs WHERE resource_type = ? AND resource_id = ?
		ORDER BY timestamp DESC LIMIT ?`, resourceType, resourceID, maxListLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteEvents(rows)
}

func scanSQLiteEvents(rows *sql.Rows) ([]*AuditEvent, error) {
	var events []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var timestamp string
		var changesJSON, detail, requestID, ipAddress sql.NullString
		if err := rows.Scan(&e.ID, &timestamp, &e.Actor, &e.ActorType, &e.Action, &e.ResourceType, &e.ResourceID,
			&changesJSON, &detail, &requestID, &ipAddress, &e.StatusCode); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		e.Detail = detail.String
		e.RequestID = requestID.String
		e.IPAddress = ipAddress.String
		if changesJSON.Valid && changesJSON.String != "" {
			var changes Changes
			if err := json.Unmarshal([]byte(changesJSON.String), &changes); err == nil {
				e.Changes = &changes
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
