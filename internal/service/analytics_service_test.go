package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func countOf(entries []models.CountEntry, key string) int {
	for _, e := range entries {
		if e.Key == key {
			return e.Count
		}
	}
	return -1
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustBook(t, labID, "alice", "09:00", "10:00")
	f.mustBook(t, labID, "bob", "10:00", "11:00")
	f.mustBook(t, hallID, "carol", "09:00", "11:00")
	c := f.mustBook(t, hallID, "dave", "14:00", "15:00")

	f.now = time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC)
	_, err := f.checkins.CheckIn(ctx, "alice", a.QRCode)
	require.NoError(t, err)
	_, err = f.bookings.CancelBooking(ctx, "dave", c.ID)
	require.NoError(t, err)

	summary, err := f.analytics.Summary(ctx, "", "")
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalBookings)
	assert.Equal(t, 3, summary.TotalRooms)
	assert.Equal(t, 25, summary.CheckInRate)

	assert.Equal(t, []models.CountEntry{
		{Key: models.StatusCancelled, Count: 1},
		{Key: models.StatusCheckedIn, Count: 1},
		{Key: models.StatusConfirmed, Count: 2},
	}, summary.ByStatus)

	require.Len(t, summary.ByWeekday, 7)
	assert.Equal(t, "Sun", summary.ByWeekday[0].Key)
	assert.Equal(t, 4, countOf(summary.ByWeekday, "Wed"))
	assert.Equal(t, 0, countOf(summary.ByWeekday, "Mon"))

	assert.Equal(t, []models.CountEntry{
		{Key: "9:00", Count: 2},
		{Key: "10:00", Count: 1},
		{Key: "14:00", Count: 1},
	}, summary.ByHour)

	assert.Equal(t, []models.CountEntry{
		{Key: "Hall-A", Count: 2},
		{Key: "Lab-1", Count: 2},
	}, summary.ByRoom)

	assert.Equal(t, 20, countOf(summary.RoomUtilization, "Lab-1"))
	assert.Equal(t, 0, countOf(summary.RoomUtilization, "Old Annex"))
}

func TestSummary_DateRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustBook(t, labID, "alice", "09:00", "10:00")

	summary, err := f.analytics.Summary(ctx, "2024-05-02", "2024-05-31")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalBookings)
	assert.Zero(t, summary.CheckInRate)
	assert.Empty(t, summary.ByRoom)

	_, err = f.analytics.Summary(ctx, "yesterday", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSummary_UtilizationCap(t *testing.T) {
	repo := new(mockRepo)
	logger := zerolog.New(io.Discard)
	svc := NewAnalyticsService(repo, DefaultSettings(), &logger)
	ctx := context.Background()

	var bookings []*models.Booking
	for i := 0; i < 12; i++ {
		bookings = append(bookings, &models.Booking{RoomID: labID, Date: testDate, StartTime: models.AtHour(9), Status: models.StatusCompleted})
	}
	bookings = append(bookings, &models.Booking{RoomID: "gone", Date: testDate, StartTime: models.AtHour(9), Status: models.StatusNoShow})

	repo.On("GetBookingsByDateRange", ctx, "0001-01-01", "9999-12-31").Return(bookings, nil)
	repo.On("ListRooms", ctx, models.RoomFilter{IncludeAll: true}).Return([]*models.Room{{ID: labID, Name: "Lab-1"}}, nil)

	summary, err := svc.Summary(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 100, countOf(summary.RoomUtilization, "Lab-1"))
	assert.Equal(t, 1, countOf(summary.ByRoom, "Unknown"))
	assert.Equal(t, 92, summary.CheckInRate)
}

func TestSummary_RoomsWithSharedName(t *testing.T) {
	repo := new(mockRepo)
	logger := zerolog.New(io.Discard)
	svc := NewAnalyticsService(repo, DefaultSettings(), &logger)
	ctx := context.Background()

	book := func(roomID string) *models.Booking {
		return &models.Booking{RoomID: roomID, Date: testDate, StartTime: models.AtHour(9), Status: models.StatusConfirmed}
	}
	bookings := []*models.Booking{book("science-lab"), book("science-lab"), book("science-lab"), book("arts-lab")}

	repo.On("GetBookingsByDateRange", ctx, "0001-01-01", "9999-12-31").Return(bookings, nil)
	repo.On("ListRooms", ctx, models.RoomFilter{IncludeAll: true}).Return([]*models.Room{
		{ID: "science-lab", Name: "Lab-1", Building: "Science"},
		{ID: "arts-lab", Name: "Lab-1", Building: "Arts"},
	}, nil)

	summary, err := svc.Summary(ctx, "", "")
	require.NoError(t, err)

	assert.Equal(t, []models.CountEntry{
		{Key: "Lab-1", Count: 3},
		{Key: "Lab-1", Count: 1},
	}, summary.ByRoom)
	assert.Equal(t, []models.CountEntry{
		{Key: "Lab-1", Count: 30},
		{Key: "Lab-1", Count: 10},
	}, summary.RoomUtilization)
}

func TestRecentAuditEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustBook(t, labID, "alice", "09:00", "10:00")
	_, err := f.releases.SweepAt(ctx, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	events, err := f.analytics.RecentAuditEvents(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditAutoRelease, events[0].EventType)

	events, err = f.analytics.RecentAuditEvents(ctx, models.AuditCheckIn, 10)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	_, err = f.analytics.RecentAuditEvents(ctx, "login", 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecentAuditEvents_LimitCapped(t *testing.T) {
	repo := new(mockRepo)
	logger := zerolog.New(io.Discard)
	svc := NewAnalyticsService(repo, DefaultSettings(), &logger)
	ctx := context.Background()

	repo.On("ListAuditEvents", ctx, "", 500).Return(nil, errors.New("boom")).Once()

	_, err := svc.RecentAuditEvents(ctx, "", 10000)
	assert.Error(t, err)
	repo.AssertCalled(t, "ListAuditEvents", ctx, "", 500)
	repo.AssertNotCalled(t, "ListAuditEvents", ctx, "", mock.MatchedBy(func(n int) bool { return n > 500 }))
}
