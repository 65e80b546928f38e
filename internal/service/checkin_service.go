package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

var errAlreadyCheckedOut = domain.Describe(domain.ErrAlreadyInState, "already checked out")

// CheckInService validates check-in codes and closes sessions on checkout.
type CheckInService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	settings Settings
	logger   *zerolog.Logger
}

func NewCheckInService(repo domain.Repository, eventBus domain.EventPublisher, settings Settings, logger *zerolog.Logger) *CheckInService {
	return &CheckInService{
		repo:     repo,
		eventBus: eventBus,
		settings: settings,
		logger:   logger,
	}
}

// CheckIn marks the caller's booking identified by code as checked in.
func (s *CheckInService) CheckIn(ctx context.Context, userID, code string) (*models.Booking, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.NewValidationError("code", "is required")
	}

	booking, err := s.repo.GetBookingByCode(ctx, code, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}
	if err := checkInAllowed(booking.Status); err != nil {
		return nil, err
	}

	now := s.settings.now()
	err = s.repo.ApplyStatusChange(ctx, models.StatusChange{
		BookingID:   booking.ID,
		From:        models.ReservedStatuses,
		To:          models.StatusCheckedIn,
		CheckedInAt: &now,
		At:          now,
		Audit: &models.AuditEvent{
			EventType: models.AuditCheckIn,
			RoomID:    booking.RoomID,
			UserID:    booking.UserID,
			BookingID: booking.ID,
			Metadata:  map[string]any{"booking_id": booking.ID, "code": booking.QRCode},
			CreatedAt: now,
		},
	})
	if errors.Is(err, database.ErrConcurrentModification) {
		return nil, s.raceOutcome(ctx, booking.ID, checkInAllowed)
	}
	if err != nil {
		return nil, err
	}

	booking.Status = models.StatusCheckedIn
	booking.CheckedInAt = &now
	booking.UpdatedAt = now
	booking.Version++

	s.logger.Info().Str("booking_id", booking.ID).Str("user_id", userID).Msg("checked in")
	publishBookingEvent(s.eventBus, s.logger, events.EventBookingCheckedIn, events.PayloadFromBooking(booking, userID))
	return booking, nil
}

// CheckOut completes a checked-in booking. There is no time window.
func (s *CheckInService) CheckOut(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	booking, err := loadOwnedBooking(ctx, s.repo, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkOutAllowed(booking.Status); err != nil {
		return nil, err
	}

	now := s.settings.now()
	err = s.repo.ApplyStatusChange(ctx, models.StatusChange{
		BookingID:    booking.ID,
		From:         []string{models.StatusCheckedIn},
		To:           models.StatusCompleted,
		CheckedOutAt: &now,
		At:           now,
		Audit: &models.AuditEvent{
			EventType: models.AuditCheckOut,
			RoomID:    booking.RoomID,
			UserID:    booking.UserID,
			BookingID: booking.ID,
			Metadata:  map[string]any{"booking_id": booking.ID},
			CreatedAt: now,
		},
	})
	if errors.Is(err, database.ErrConcurrentModification) {
		return nil, s.raceOutcome(ctx, booking.ID, checkOutAllowed)
	}
	if err != nil {
		return nil, err
	}

	booking.Status = models.StatusCompleted
	booking.CheckedOutAt = &now
	booking.UpdatedAt = now
	booking.Version++

	s.logger.Info().Str("booking_id", booking.ID).Str("user_id", userID).Msg("checked out")
	publishBookingEvent(s.eventBus, s.logger, events.EventBookingCheckedOut, events.PayloadFromBooking(booking, userID))
	return booking, nil
}

// raceOutcome explains a lost conditional update from the booking's current status.
func (s *CheckInService) raceOutcome(ctx context.Context, bookingID string, allowed func(string) error) error {
	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := allowed(current.Status); err != nil {
		return err
	}
	return fmt.Errorf("%w: booking %s changed concurrently", domain.ErrInvalidTransition, bookingID)
}

func checkInAllowed(status string) error {
	if status == models.StatusCheckedIn {
		return domain.ErrAlreadyCheckedIn
	}
	if !models.CanTransition(status, models.StatusCheckedIn) {
		return fmt.Errorf("%w: cannot check in a %s booking", domain.ErrInvalidTransition, status)
	}
	return nil
}

func checkOutAllowed(status string) error {
	if status == models.StatusCompleted {
		return errAlreadyCheckedOut
	}
	if !models.CanTransition(status, models.StatusCompleted) {
		return fmt.Errorf("%w: cannot check out a %s booking", domain.ErrInvalidTransition, status)
	}
	return nil
}
