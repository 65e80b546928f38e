package models

import "time"

type Booking struct {
	ID             string     `json:"id"`
	RoomID         string     `json:"room_id"`
	UserID         string     `json:"user_id"`
	Title          string     `json:"title"`
	Purpose        string     `json:"purpose,omitempty"`
	Date           string     `json:"date"`
	StartTime      TimeOfDay  `json:"start_time"`
	EndTime        TimeOfDay  `json:"end_time"`
	AttendeesCount int        `json:"attendees_count"`
	Status         string     `json:"status"` // pending, confirmed, checked_in, completed, cancelled, no_show
	QRCode         string     `json:"qr_code"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt   *time.Time `json:"checked_out_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Version        int64      `json:"version"`
}

func (b *Booking) IsActive() bool {
	return IsActiveStatus(b.Status)
}

// IsReserved reports a booking held but not yet checked in.
func (b *Booking) IsReserved() bool {
	return IsReservedStatus(b.Status)
}

// Overlaps reports whether [start,end) intersects the booking's interval.
func (b *Booking) Overlaps(start, end TimeOfDay) bool {
	return start < b.EndTime && b.StartTime < end
}

// StartsAt resolves the booking start to an instant in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	day, err := ParseDate(b.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return b.StartTime.On(day), nil
}

// BookingRequest carries raw creation input; times stay strings until validated.
type BookingRequest struct {
	RoomID         string `json:"room_id"`
	UserID         string `json:"user_id"`
	Title          string `json:"title"`
	Purpose        string `json:"purpose,omitempty"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	AttendeesCount int    `json:"attendees_count"`
}

// StatusChange is a conditional status update applied together with an audit record.
type StatusChange struct {
	BookingID    string
	From         []string
	To           string
	CheckedInAt  *time.Time
	CheckedOutAt *time.Time
	At           time.Time
	Audit        *AuditEvent
}
