package domain

import (
	"context"
	"time"

	"roombook/internal/models"
)

type Repository interface {
	UpsertRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByCode(ctx context.Context, code, userID string) (*models.Booking, error)
	GetActiveBookings(ctx context.Context, roomID, date string) ([]*models.Booking, error)
	GetActiveBookingsByDate(ctx context.Context, date string) ([]*models.Booking, error)
	GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, from, to string) ([]*models.Booking, error)
	GetReleaseCandidates(ctx context.Context, date string, before models.TimeOfDay) ([]*models.Booking, error)
	ApplyStatusChange(ctx context.Context, change models.StatusChange) error
	ListAuditEvents(ctx context.Context, eventType string, limit int) ([]*models.AuditEvent, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Coordinator provides cross-process locks and counters.
type Coordinator interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Unlock(ctx context.Context, key, token string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RoomService interface {
	ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
}

type CalendarService interface {
	GetSlots(ctx context.Context, roomID, date string) (*models.DaySchedule, error)
	AvailableEndTimes(ctx context.Context, roomID, date, start string) ([]models.TimeOfDay, error)
	QuickSlots(ctx context.Context) ([]models.QuickSlot, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error)
}

type CheckInService interface {
	CheckIn(ctx context.Context, userID, code string) (*models.Booking, error)
	CheckOut(ctx context.Context, userID, bookingID string) (*models.Booking, error)
}

type AutoReleaser interface {
	Sweep(ctx context.Context) (models.SweepResult, error)
}

type AnalyticsService interface {
	Summary(ctx context.Context, from, to string) (*models.AnalyticsSummary, error)
	RecentAuditEvents(ctx context.Context, eventType string, limit int) ([]*models.AuditEvent, error)
}
