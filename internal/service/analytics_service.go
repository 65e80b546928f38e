package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

const (
	topRooms        = 6
	maxAuditLimit   = 500
	minAnalyticsDay = "0001-01-01"
	maxAnalyticsDay = "9999-12-31"
	unknownRoomName = "Unknown"
)

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type AnalyticsService struct {
	repo     domain.Repository
	settings Settings
	logger   *zerolog.Logger
}

func NewAnalyticsService(repo domain.Repository, settings Settings, logger *zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:     repo,
		settings: settings,
		logger:   logger,
	}
}

// Summary aggregates bookings dated within [from, to]; empty bounds are open.
func (s *AnalyticsService) Summary(ctx context.Context, from, to string) (*models.AnalyticsSummary, error) {
	v := &domain.ValidationError{}
	if from == "" {
		from = minAnalyticsDay
	} else if _, err := models.ParseDate(from, s.settings.Location); err != nil {
		v.Add("from", "must be YYYY-MM-DD")
	}
	if to == "" {
		to = maxAnalyticsDay
	} else if _, err := models.ParseDate(to, s.settings.Location); err != nil {
		v.Add("to", "must be YYYY-MM-DD")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	bookings, err := s.repo.GetBookingsByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	rooms, err := s.repo.ListRooms(ctx, models.RoomFilter{IncludeAll: true})
	if err != nil {
		return nil, err
	}

	roomNames := make(map[string]string, len(rooms))
	for _, r := range rooms {
		roomNames[r.ID] = r.Name
	}

	byStatus := map[string]int{}
	byWeekday := map[string]int{}
	byHour := map[int]int{}
	// Keyed by room ID; bookings for rooms missing from the catalog share "".
	byRoom := map[string]int{}
	attended := 0

	for _, b := range bookings {
		byStatus[b.Status]++
		if day, err := models.ParseDate(b.Date, time.UTC); err == nil {
			byWeekday[weekdays[day.Weekday()]]++
		}
		byHour[b.StartTime.Hour()]++

		if _, ok := roomNames[b.RoomID]; ok {
			byRoom[b.RoomID]++
		} else {
			byRoom[""]++
		}

		if b.Status == models.StatusCheckedIn || b.Status == models.StatusCompleted {
			attended++
		}
	}

	summary := &models.AnalyticsSummary{
		TotalBookings: len(bookings),
		TotalRooms:    len(rooms),
	}
	if len(bookings) > 0 {
		summary.CheckInRate = (attended*100 + len(bookings)/2) / len(bookings)
	}

	summary.ByStatus = sortedByKey(byStatus)

	summary.ByWeekday = make([]models.CountEntry, 0, len(weekdays))
	for _, d := range weekdays {
		summary.ByWeekday = append(summary.ByWeekday, models.CountEntry{Key: d, Count: byWeekday[d]})
	}

	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	summary.ByHour = make([]models.CountEntry, 0, len(hours))
	for _, h := range hours {
		summary.ByHour = append(summary.ByHour, models.CountEntry{Key: fmt.Sprintf("%d:00", h), Count: byHour[h]})
	}

	summary.ByRoom = make([]models.CountEntry, 0, len(byRoom))
	for id, n := range byRoom {
		name, ok := roomNames[id]
		if !ok {
			name = unknownRoomName
		}
		summary.ByRoom = append(summary.ByRoom, models.CountEntry{Key: name, Count: n})
	}
	sort.Slice(summary.ByRoom, func(i, j int) bool {
		if summary.ByRoom[i].Count != summary.ByRoom[j].Count {
			return summary.ByRoom[i].Count > summary.ByRoom[j].Count
		}
		return summary.ByRoom[i].Key < summary.ByRoom[j].Key
	})
	if len(summary.ByRoom) > topRooms {
		summary.ByRoom = summary.ByRoom[:topRooms]
	}

	// Utilization is a coarse 10% per booking, capped at 100.
	summary.RoomUtilization = make([]models.CountEntry, 0, len(rooms))
	for _, r := range rooms {
		summary.RoomUtilization = append(summary.RoomUtilization, models.CountEntry{
			Key:   r.Name,
			Count: min(100, byRoom[r.ID]*10),
		})
	}

	return summary, nil
}

// RecentAuditEvents lists the newest audit records, optionally of one type.
func (s *AnalyticsService) RecentAuditEvents(ctx context.Context, eventType string, limit int) ([]*models.AuditEvent, error) {
	switch eventType {
	case "", models.AuditAutoRelease, models.AuditCheckIn, models.AuditCheckOut:
	default:
		return nil, domain.NewValidationError("type", fmt.Sprintf("unknown audit event type %q", eventType))
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	events, err := s.repo.ListAuditEvents(ctx, eventType, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.AuditEvent{}
	}
	return events, nil
}

func sortedByKey(counts map[string]int) []models.CountEntry {
	out := make([]models.CountEntry, 0, len(counts))
	for k, c := range counts {
		out = append(out, models.CountEntry{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
