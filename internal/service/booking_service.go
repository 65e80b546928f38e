package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/models"
	"roombook/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	rejectValidation  = "validation"
	rejectNotFound    = "room_not_found"
	rejectCapacity    = "capacity"
	rejectConflict    = "conflict"
	rejectRateLimited = "rate_limited"
)

type BookingService struct {
	repo        domain.Repository
	coordinator domain.Coordinator
	eventBus    domain.EventPublisher
	settings    Settings
	logger      *zerolog.Logger
}

func NewBookingService(repo domain.Repository, coordinator domain.Coordinator, eventBus domain.EventPublisher, settings Settings, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:        repo,
		coordinator: coordinator,
		eventBus:    eventBus,
		settings:    settings,
		logger:      logger,
	}
}

// CreateBooking validates the request, checks room capacity and existing
// bookings, and stores a confirmed booking with a fresh check-in code.
func (s *BookingService) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	booking, err := s.validateRequest(req)
	if err != nil {
		s.reject(req, rejectValidation)
		return nil, err
	}

	room, err := s.repo.GetRoom(ctx, booking.RoomID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.reject(req, rejectNotFound)
		}
		return nil, err
	}
	if !room.IsActive {
		s.reject(req, rejectNotFound)
		return nil, fmt.Errorf("room %s: %w", room.ID, domain.ErrNotFound)
	}
	if booking.AttendeesCount > room.Capacity {
		s.reject(req, rejectCapacity)
		return nil, domain.NewValidationError("attendees_count",
			fmt.Sprintf("exceeds room capacity of %d", room.Capacity))
	}

	if err := s.checkRateLimit(ctx, booking.UserID); err != nil {
		s.reject(req, rejectRateLimited)
		return nil, err
	}

	// Overlap is reported before grid alignment so an off-grid request that
	// collides with an existing booking reads as a conflict.
	existing, err := s.repo.GetActiveBookings(ctx, booking.RoomID, booking.Date)
	if err != nil {
		return nil, err
	}
	if other := schedule.FindConflict(existing, booking.StartTime, booking.EndTime); other != nil {
		s.reject(req, rejectConflict)
		return nil, fmt.Errorf("%w: %s-%s is taken", domain.ErrConflict, other.StartTime.Short(), other.EndTime.Short())
	}

	if !s.settings.Grid.Aligned(booking.StartTime, booking.EndTime) {
		s.reject(req, rejectValidation)
		v := &domain.ValidationError{}
		if !booking.StartTime.OnHour() {
			v.Add("start_time", "must be on the hour")
		}
		if !booking.EndTime.OnHour() {
			v.Add("end_time", "must be on the hour")
		}
		return nil, v
	}

	booking.ID = uuid.NewString()
	booking.Status = models.StatusConfirmed
	booking.QRCode = s.generateCode(booking.RoomID)

	err = s.repo.CreateBookingWithLock(ctx, booking)
	if errors.Is(err, database.ErrDuplicateCode) {
		s.logger.Warn().Str("room_id", booking.RoomID).Msg("check-in code collision, regenerating")
		booking.QRCode = s.generateCode(booking.RoomID)
		err = s.repo.CreateBookingWithLock(ctx, booking)
	}
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.reject(req, rejectConflict)
		}
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("room_id", booking.RoomID).
		Str("user_id", booking.UserID).
		Str("date", booking.Date).
		Str("start", booking.StartTime.Short()).
		Str("end", booking.EndTime.Short()).
		Msg("booking created")
	publishBookingEvent(s.eventBus, s.logger, events.EventBookingCreated, events.PayloadFromBooking(booking, booking.UserID))

	return booking, nil
}

func (s *BookingService) validateRequest(req models.BookingRequest) (*models.Booking, error) {
	v := &domain.ValidationError{}

	if strings.TrimSpace(req.RoomID) == "" {
		v.Add("room_id", "is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		v.Add("user_id", "is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		v.Add("title", "is required")
	}
	if req.AttendeesCount < 1 {
		v.Add("attendees_count", "must be at least 1")
	}

	day, dateErr := models.ParseDate(req.Date, s.settings.Location)
	if dateErr != nil {
		v.Add("date", "must be YYYY-MM-DD")
	}
	start, startErr := models.ParseTimeOfDay(req.StartTime)
	if startErr != nil {
		v.Add("start_time", "must be HH:MM")
	}
	end, endErr := models.ParseTimeOfDay(req.EndTime)
	if endErr != nil {
		v.Add("end_time", "must be HH:MM")
	}

	if startErr == nil && endErr == nil {
		if start >= end {
			v.Add("end_time", "must be after start_time")
		} else if !s.settings.Grid.Contains(start, end) {
			v.Add("start_time", fmt.Sprintf("must be within %s-%s",
				s.settings.Grid.Open().Short(), s.settings.Grid.Close().Short()))
		}
	}

	if dateErr == nil {
		today, _ := models.ParseDate(s.settings.today(), s.settings.Location)
		if !s.settings.AllowPastBookings && day.Before(today) {
			v.Add("date", "is in the past")
		}
		if s.settings.MaxAdvanceDays > 0 && day.After(today.AddDate(0, 0, s.settings.MaxAdvanceDays)) {
			v.Add("date", fmt.Sprintf("is more than %d days ahead", s.settings.MaxAdvanceDays))
		}
	}

	if err := v.OrNil(); err != nil {
		return nil, err
	}

	return &models.Booking{
		RoomID:         strings.TrimSpace(req.RoomID),
		UserID:         strings.TrimSpace(req.UserID),
		Title:          strings.TrimSpace(req.Title),
		Purpose:        strings.TrimSpace(req.Purpose),
		Date:           day.Format(models.DateLayout),
		StartTime:      start,
		EndTime:        end,
		AttendeesCount: req.AttendeesCount,
	}, nil
}

func (s *BookingService) checkRateLimit(ctx context.Context, userID string) error {
	if s.coordinator == nil || s.settings.CreateRateLimit <= 0 {
		return nil
	}
	allowed, err := s.coordinator.CheckRateLimit(ctx, "create:"+userID, s.settings.CreateRateLimit, s.settings.CreateRateWindow)
	if err != nil {
		// Fail open while the coordinator is unreachable.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("rate limit check failed")
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: too many bookings from %s", domain.ErrRateLimited, userID)
	}
	return nil
}

// generateCode builds PREFIX-<room id head>-<base36 millis>-<4 hex>.
func (s *BookingService) generateCode(roomID string) string {
	head := roomID
	if len(head) > 8 {
		head = head[:8]
	}
	prefix := s.settings.CodePrefix
	if prefix == "" {
		prefix = models.DefaultCodePrefix
	}
	millis := strings.ToUpper(strconv.FormatInt(s.settings.now().UnixMilli(), 36))
	id := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(id[:2]))
	return fmt.Sprintf("%s-%s-%s-%s", prefix, head, millis, suffix)
}

// CancelBooking releases a reserved booking on behalf of its owner.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	booking, err := loadOwnedBooking(ctx, s.repo, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(booking.Status, models.StatusCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel a %s booking", domain.ErrInvalidTransition, booking.Status)
	}

	now := s.settings.now()
	err = s.repo.ApplyStatusChange(ctx, models.StatusChange{
		BookingID: booking.ID,
		From:      models.ReservedStatuses,
		To:        models.StatusCancelled,
		At:        now,
	})
	if errors.Is(err, database.ErrConcurrentModification) {
		return nil, fmt.Errorf("%w: booking changed before it could be cancelled", domain.ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	booking.Status = models.StatusCancelled
	booking.UpdatedAt = now
	booking.Version++

	s.logger.Info().Str("booking_id", booking.ID).Str("user_id", userID).Msg("booking cancelled")
	publishBookingEvent(s.eventBus, s.logger, events.EventBookingCancelled, events.PayloadFromBooking(booking, userID))
	return booking, nil
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	bookings, err := s.repo.GetUserBookings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return bookings, nil
}

// loadOwnedBooking hides other users' bookings behind the same NotFound as missing ones.
func loadOwnedBooking(ctx context.Context, repo domain.Repository, userID, bookingID string) (*models.Booking, error) {
	booking, err := repo.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errBookingNotFound
		}
		return nil, err
	}
	if booking.UserID != userID {
		return nil, errBookingNotFound
	}
	return booking, nil
}

var errBookingNotFound = domain.Describe(domain.ErrNotFound, "booking not found")

func (s *BookingService) reject(req models.BookingRequest, reason string) {
	publishBookingEvent(s.eventBus, s.logger, events.EventBookingRejected, events.BookingEventPayload{
		RoomID:    req.RoomID,
		UserID:    req.UserID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    reason,
	})
}
