package service

import (
	"context"
	"errors"

	"roombook/internal/domain"
	"roombook/internal/models"
	"roombook/internal/schedule"

	"github.com/rs/zerolog"
)

// CalendarService answers slot availability from a fresh read of the store.
type CalendarService struct {
	repo     domain.Repository
	settings Settings
	logger   *zerolog.Logger
}

func NewCalendarService(repo domain.Repository, settings Settings, logger *zerolog.Logger) *CalendarService {
	return &CalendarService{
		repo:     repo,
		settings: settings,
		logger:   logger,
	}
}

// GetSlots returns the hourly grid for a room and date. An unknown room yields
// an empty schedule rather than an error.
func (s *CalendarService) GetSlots(ctx context.Context, roomID, date string) (*models.DaySchedule, error) {
	day, err := models.ParseDate(date, s.settings.Location)
	if err != nil {
		return nil, domain.NewValidationError("date", "must be YYYY-MM-DD")
	}
	date = day.Format(models.DateLayout)

	out := &models.DaySchedule{RoomID: roomID, Date: date, Slots: []models.Slot{}}

	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return out, nil
		}
		return nil, err
	}

	bookings, err := s.repo.GetActiveBookings(ctx, roomID, date)
	if err != nil {
		return nil, err
	}

	out.Slots = schedule.Slots(s.settings.Grid, bookings)
	return out, nil
}

// AvailableEndTimes lists the grid boundaries a booking starting at start may end on.
func (s *CalendarService) AvailableEndTimes(ctx context.Context, roomID, date, start string) ([]models.TimeOfDay, error) {
	startTime, err := models.ParseTimeOfDay(start)
	if err != nil {
		return nil, domain.NewValidationError("start", "must be HH:MM")
	}

	day, err := s.GetSlots(ctx, roomID, date)
	if err != nil {
		return nil, err
	}

	ends := schedule.EndTimes(s.settings.Grid, day.Slots, startTime)
	if ends == nil {
		ends = []models.TimeOfDay{}
	}
	return ends, nil
}

// QuickSlots suggests the next one-hour slot in every active room that is still free today.
func (s *CalendarService) QuickSlots(ctx context.Context) ([]models.QuickSlot, error) {
	now := s.settings.now()
	date := now.Format(models.DateLayout)
	nextHour := now.Hour() + 1

	rooms, err := s.repo.ListRooms(ctx, models.RoomFilter{})
	if err != nil {
		return nil, err
	}

	bookings, err := s.repo.GetActiveBookingsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	byRoom := make(map[string][]*models.Booking)
	for _, b := range bookings {
		byRoom[b.RoomID] = append(byRoom[b.RoomID], b)
	}

	limit := s.settings.QuickSlotsLimit
	if limit <= 0 {
		limit = models.DefaultQuickSlotsLimit
	}

	slots := []models.QuickSlot{}
	for _, room := range rooms {
		if len(slots) >= limit {
			break
		}
		if !schedule.NextFreeHour(s.settings.Grid, byRoom[room.ID], nextHour) {
			continue
		}
		slots = append(slots, models.QuickSlot{
			Room:      *room,
			Date:      date,
			StartTime: models.AtHour(nextHour),
			EndTime:   models.AtHour(nextHour + 1),
		})
	}
	return slots, nil
}
