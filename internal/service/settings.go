package service

import (
	"fmt"
	"time"

	"roombook/internal/config"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/models"
	"roombook/internal/schedule"

	"github.com/rs/zerolog"
)

// Settings carries the booking rules shared by every service.
type Settings struct {
	Grid              schedule.Grid
	Location          *time.Location
	GracePeriod       time.Duration
	CodePrefix        string
	CreateRateLimit   int
	CreateRateWindow  time.Duration
	QuickSlotsLimit   int
	MaxAdvanceDays    int
	AllowPastBookings bool
	Now               func() time.Time
}

// DefaultSettings mirrors the configuration defaults in UTC.
func DefaultSettings() Settings {
	return Settings{
		Grid:             schedule.DefaultGrid(),
		Location:         time.UTC,
		GracePeriod:      models.DefaultGraceMinutes * time.Minute,
		CodePrefix:       models.DefaultCodePrefix,
		CreateRateLimit:  models.DefaultCreateRateLimit,
		CreateRateWindow: models.DefaultCreateRateWindow * time.Second,
		QuickSlotsLimit:  models.DefaultQuickSlotsLimit,
		Now:              time.Now,
	}
}

func SettingsFromConfig(cfg config.BookingConfig) (Settings, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Settings{}, fmt.Errorf("booking timezone: %w", err)
	}
	grid := schedule.Grid{OpenHour: cfg.OpenHour, CloseHour: cfg.CloseHour}
	if err := grid.Validate(); err != nil {
		return Settings{}, err
	}

	return Settings{
		Grid:              grid,
		Location:          loc,
		GracePeriod:       cfg.GracePeriod(),
		CodePrefix:        cfg.CodePrefix,
		CreateRateLimit:   cfg.CreateRateLimit,
		CreateRateWindow:  time.Duration(cfg.CreateRateWindow) * time.Second,
		QuickSlotsLimit:   cfg.QuickSlotsLimit,
		MaxAdvanceDays:    cfg.MaxAdvanceDays,
		AllowPastBookings: cfg.AllowPastBookings,
		Now:               time.Now,
	}, nil
}

// now returns the current instant in the service time zone.
func (s Settings) now() time.Time {
	clock := s.Now
	if clock == nil {
		clock = time.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return clock().In(loc)
}

func (s Settings) today() string {
	return s.now().Format(models.DateLayout)
}

func publishBookingEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, payload events.BookingEventPayload) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", payload.BookingID).Msg("publish event error")
	}
}
