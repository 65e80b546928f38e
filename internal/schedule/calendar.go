package schedule

import "roombook/internal/models"

// Slots tags every grid slot as available or not. A slot at h is unavailable when
// an active booking satisfies h >= start && h < end, so a slot starting exactly at
// a booking's end stays free.
func Slots(g Grid, bookings []*models.Booking) []models.Slot {
	starts := g.SlotStarts()
	out := make([]models.Slot, 0, len(starts))
	for _, start := range starts {
		out = append(out, models.Slot{
			Time:      start,
			Label:     start.Label(),
			Available: !occupied(start, bookings),
		})
	}
	return out
}

func occupied(slotStart models.TimeOfDay, bookings []*models.Booking) bool {
	for _, b := range bookings {
		if b == nil || !b.IsActive() {
			continue
		}
		if slotStart >= b.StartTime && slotStart < b.EndTime {
			return true
		}
	}
	return false
}

// EndTimes returns every grid boundary after start reachable without crossing an
// unavailable slot. The first unavailable slot at or after start bounds the result.
func EndTimes(g Grid, slots []models.Slot, start models.TimeOfDay) []models.TimeOfDay {
	if !start.OnHour() || start < g.Open() || start >= g.Close() {
		return nil
	}

	free := make(map[models.TimeOfDay]bool, len(slots))
	for _, s := range slots {
		free[s.Time] = s.Available
	}

	var out []models.TimeOfDay
	for h := start; h < g.Close(); h += models.Hour {
		if !free[h] {
			break
		}
		out = append(out, h+models.Hour)
	}
	return out
}

// FindConflict returns the first active booking overlapping [start,end), or nil.
func FindConflict(bookings []*models.Booking, start, end models.TimeOfDay) *models.Booking {
	for _, b := range bookings {
		if b == nil || !b.IsActive() {
			continue
		}
		if b.Overlaps(start, end) {
			return b
		}
	}
	return nil
}

// NextFreeHour reports whether the one-hour slot starting at hour is free and on the grid.
func NextFreeHour(g Grid, bookings []*models.Booking, hour int) bool {
	if hour < g.OpenHour || hour >= g.CloseHour {
		return false
	}
	return !occupied(models.AtHour(hour), bookings)
}
