//go:build postgres

package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAuditLogger writes events to the audit_logs table created by the
// postgres storage migrations.
type PostgresAuditLogger struct {
	pool *pgxpool.Pool
}

var _ AuditLogger = (*PostgresAuditLogger)(nil)

// NewPostgresAuditLoggerFromPool creates an audit logger sharing the settings store's pool.
func NewPostgresAuditLoggerFromPool(pool *pgxpool.Pool) *PostgresAuditLogger {
	return &PostgresAuditLogger{pool: pool}
}

func (s *PostgresAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if event == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var changesJSON *string
	if event.Changes != nil {
		if data, err := json.Marshal(event.Changes); err == nil {
			s := string(data)
			changesJSON = &s
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, timestamp, actor, actor_type, action, resource_type, resource_id,
			changes, detail, request_id, ip_address, status_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12)`,
		event.ID, event.Timestamp, event.Actor, event.ActorType, event.Action,
		event.ResourceType, event.ResourceID,
		changesJSON, nullStr(event.Detail), nullStr(event.RequestID), nullStr(event.IPAddress),
		event.StatusCode,
	)
	return err
}

func (s *PostgresAuditLogger) List(ctx context.Context, opts ListOptions) ([]*AuditEvent, int, error) {
	where := "TRUE"
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where += " AND " + clause + " $" + strconv.Itoa(len(args))
	}
	if opts.Actor != "" {
		add("actor =", opts.Actor)
	}
	if opts.ActorType != "" {
		add("actor_type =", opts.ActorType)
	}
	if opts.Action != "" {
		add("action =", opts.Action)
	}
	if opts.ResourceType != "" {
		add("resource_type =", opts.ResourceType)
	}
	if opts.Since != nil {
		add("timestamp >=", *opts.Since)
	}
	if opts.Until != nil {
		add("timestamp <=", *opts.Until)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT id, timestamp, actor, actor_type, action, resource_type, resource_id, changes::text, detail, request_id, ip_address, status_code FROM audit_logs WHERE " +
		where + " ORDER BY timestamp DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	rows, err := s.pool.Query(ctx, query, append(args, opts.limit(), opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events, err := scanPostgresEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *PostgresAuditLogger) GetByResource(ctx context.Context, resourceType, resourceID string) ([]*AuditEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, actor, actor_type, action, resource_type, resource_id,
			changes::text, detail, request_id, ip_address, status_code
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY timestamp DESC
		LIMIT $3`, resourceType, resourceID, maxListLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPostgresEvents(rows)
}

func scanPostgresEvents(rows pgx.Rows) ([]*AuditEvent, error) {
	var events []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var changesStr, detail, requestID, ipAddress *string
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Actor, &e.ActorType,
			&e.Action, &e.ResourceType, &e.ResourceID,
			&changesStr, &detail, &requestID, &ipAddress, &e.StatusCode,
		); err != nil {
			return nil, err
		}
		e.Detail = deref(detail)
		e.RequestID = deref(requestID)
		e.IPAddress = deref(ipAddress)
		if changesStr != nil && *changesStr != "" {
			var changes Changes
			if err := json.Unmarshal([]byte(*changesStr), &changes); err == nil {
				e.Changes = &changes
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
