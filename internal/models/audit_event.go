package models

import "time"

// AuditEvent is an append-only record of a lifecycle action.
type AuditEvent struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	RoomID    string         `json:"room_id"`
	UserID    string         `json:"user_id"`
	BookingID string         `json:"booking_id"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
