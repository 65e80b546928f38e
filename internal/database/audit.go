package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"roombook/internal/models"

	"github.com/google/uuid"
)

const defaultAuditLimit = 100

// InsertAuditEvent appends an audit record outside of any status change.
func (db *DB) InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin audit insert", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := insertAuditEvent(ctx, tx, event); err != nil {
		return err
	}
	return storeErr("commit audit insert", tx.Commit())
}

func insertAuditEvent(ctx context.Context, tx *sql.Tx, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO audit_events
        (id, event_type, room_id, user_id, booking_id, metadata, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.EventType, event.RoomID, event.UserID, event.BookingID, string(raw), event.CreatedAt)
	if err != nil {
		return storeErr("insert audit event", err)
	}
	return nil
}

// ListAuditEvents returns the newest events first, optionally narrowed by type.
func (db *DB) ListAuditEvents(ctx context.Context, eventType string, limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	query := `SELECT id, event_type, room_id, user_id, booking_id, metadata, created_at FROM audit_events`
	var args []any
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list audit events", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var (
			e   models.AuditEvent
			raw string
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.RoomID, &e.UserID, &e.BookingID, &raw, &e.CreatedAt); err != nil {
			return nil, storeErr("scan audit event", err)
		}
		if err := json.Unmarshal([]byte(raw), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata for %s: %w", e.ID, err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list audit events", err)
	}
	return events, nil
}
