package service

import (
	"context"
	"errors"
	"time"

	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

// AutoReleaseService marks reservations nobody checked into as no-shows.
type AutoReleaseService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	settings Settings
	logger   *zerolog.Logger
}

func NewAutoReleaseService(repo domain.Repository, eventBus domain.EventPublisher, settings Settings, logger *zerolog.Logger) *AutoReleaseService {
	return &AutoReleaseService{
		repo:     repo,
		eventBus: eventBus,
		settings: settings,
		logger:   logger,
	}
}

func (s *AutoReleaseService) Sweep(ctx context.Context) (models.SweepResult, error) {
	return s.SweepAt(ctx, s.settings.now())
}

// SweepAt releases today's reservations whose start is more than the grace
// period before now. Failures on individual bookings are logged and skipped.
func (s *AutoReleaseService) SweepAt(ctx context.Context, now time.Time) (models.SweepResult, error) {
	loc := s.settings.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	result := models.SweepResult{CheckedAt: now}

	date := now.Format(models.DateLayout)
	candidates, err := s.repo.GetReleaseCandidates(ctx, date, models.TimeOfDayOf(now))
	if err != nil {
		return result, err
	}
	result.BookingsChecked = len(candidates)

	for _, b := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		deadline := b.StartTime.On(now).Add(s.settings.GracePeriod)
		if !now.After(deadline) {
			continue
		}

		err := s.repo.ApplyStatusChange(ctx, models.StatusChange{
			BookingID: b.ID,
			From:      models.ReservedStatuses,
			To:        models.StatusNoShow,
			At:        now,
			Audit: &models.AuditEvent{
				EventType: models.AuditAutoRelease,
				RoomID:    b.RoomID,
				UserID:    b.UserID,
				BookingID: b.ID,
				Metadata: map[string]any{
					"booking_id": b.ID,
					"reason":     models.ReleaseReasonNoCheckIn,
				},
				CreatedAt: now,
			},
		})
		if errors.Is(err, database.ErrConcurrentModification) {
			s.logger.Debug().Str("booking_id", b.ID).Msg("booking left reserved state before release")
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Str("booking_id", b.ID).Msg("failed to release booking")
			continue
		}

		result.BookingsReleased++
		b.Status = models.StatusNoShow
		s.logger.Info().
			Str("booking_id", b.ID).
			Str("room_id", b.RoomID).
			Str("start", b.StartTime.Short()).
			Msg("booking auto-released")

		payload := events.PayloadFromBooking(b, "system")
		payload.Reason = models.ReleaseReasonNoCheckIn
		publishBookingEvent(s.eventBus, s.logger, events.EventBookingReleased, payload)
	}

	return result, nil
}
