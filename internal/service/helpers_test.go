package service

import (
	"context"
	"io"
	"testing"
	"time"

	"roombook/internal/database"
	"roombook/internal/events"
	"roombook/internal/models"
	"roombook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	labID    = "6f1c2a10-0000-4000-8000-000000000001"
	hallID   = "9b2e7d44-0000-4000-8000-000000000002"
	closedID = "0c3d5e66-0000-4000-8000-000000000003"
	testDate = "2024-05-01"
)

type fixture struct {
	db        *database.DB
	bus       *events.EventBus
	now       time.Time
	settings  Settings
	rooms     *RoomService
	calendar  *CalendarService
	bookings  *BookingService
	checkins  *CheckInService
	releases  *AutoReleaseService
	analytics *AnalyticsService
	published []*events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SyncRooms(context.Background(), []models.Room{
		{ID: labID, Name: "Lab-1", Building: "Science", Type: models.RoomTypeLab, Capacity: 30, IsActive: true},
		{ID: hallID, Name: "Hall-A", Building: "Main", Type: models.RoomTypeSeminarHall, Capacity: 120, IsActive: true},
		{ID: closedID, Name: "Old Annex", Building: "Annex", Type: models.RoomTypeClassroom, Capacity: 20, IsActive: false},
	}))

	f := &fixture{
		db:  db,
		bus: events.NewEventBus(),
		now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	for _, eventType := range events.AllBookingEvents {
		f.bus.Subscribe(eventType, func(e *events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	f.settings = DefaultSettings()
	f.settings.Now = func() time.Time { return f.now }
	f.build(&logger)
	return f
}

// build wires services from the current settings.
func (f *fixture) build(logger *zerolog.Logger) {
	f.rooms = NewRoomService(f.db, logger)
	f.calendar = NewCalendarService(f.db, f.settings, logger)
	f.bookings = NewBookingService(f.db, repository.NewMemoryCoordinator(), f.bus, f.settings, logger)
	f.checkins = NewCheckInService(f.db, f.bus, f.settings, logger)
	f.releases = NewAutoReleaseService(f.db, f.bus, f.settings, logger)
	f.analytics = NewAnalyticsService(f.db, f.settings, logger)
}

func (f *fixture) eventTypes() []string {
	out := make([]string, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.Type)
	}
	return out
}

func request(roomID, userID, start, end string) models.BookingRequest {
	return models.BookingRequest{
		RoomID:         roomID,
		UserID:         userID,
		Title:          "Robotics club",
		Date:           testDate,
		StartTime:      start,
		EndTime:        end,
		AttendeesCount: 12,
	}
}

func (f *fixture) mustBook(t *testing.T, roomID, userID, start, end string) *models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), request(roomID, userID, start, end))
	require.NoError(t, err)
	return b
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) UpsertRoom(ctx context.Context, room *models.Room) error {
	return m.Called(ctx, room).Error(0)
}
func (m *mockRepo) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}
func (m *mockRepo) ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Room), args.Error(1)
}
func (m *mockRepo) CreateBookingWithLock(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) GetBookingByCode(ctx context.Context, code, userID string) (*models.Booking, error) {
	args := m.Called(ctx, code, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) GetActiveBookings(ctx context.Context, roomID, date string) ([]*models.Booking, error) {
	args := m.Called(ctx, roomID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) GetActiveBookingsByDate(ctx context.Context, date string) ([]*models.Booking, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) GetBookingsByDateRange(ctx context.Context, from, to string) ([]*models.Booking, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) GetReleaseCandidates(ctx context.Context, date string, before models.TimeOfDay) ([]*models.Booking, error) {
	args := m.Called(ctx, date, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) ApplyStatusChange(ctx context.Context, change models.StatusChange) error {
	return m.Called(ctx, change).Error(0)
}
func (m *mockRepo) ListAuditEvents(ctx context.Context, eventType string, limit int) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, eventType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEvent), args.Error(1)
}
