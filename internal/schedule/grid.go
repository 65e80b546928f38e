// Package schedule holds the pure slot calendar used by every booking surface.
package schedule

import (
	"fmt"

	"roombook/internal/models"
)

// Grid is the fixed set of hourly boundaries bookings must align to.
// Slots start at OpenHour..CloseHour-1; CloseHour is only ever an end boundary.
type Grid struct {
	OpenHour  int
	CloseHour int
}

func DefaultGrid() Grid {
	return Grid{OpenHour: models.DefaultOpenHour, CloseHour: models.DefaultCloseHour}
}

func (g Grid) Validate() error {
	if g.OpenHour < 0 || g.CloseHour > 24 || g.OpenHour >= g.CloseHour {
		return fmt.Errorf("invalid grid %02d:00-%02d:00", g.OpenHour, g.CloseHour)
	}
	return nil
}

// SlotStarts lists the start of every hourly slot.
func (g Grid) SlotStarts() []models.TimeOfDay {
	out := make([]models.TimeOfDay, 0, g.CloseHour-g.OpenHour)
	for h := g.OpenHour; h < g.CloseHour; h++ {
		out = append(out, models.AtHour(h))
	}
	return out
}

func (g Grid) Open() models.TimeOfDay  { return models.AtHour(g.OpenHour) }
func (g Grid) Close() models.TimeOfDay { return models.AtHour(g.CloseHour) }

// Contains reports whether [start,end) lies inside the grid's opening hours.
func (g Grid) Contains(start, end models.TimeOfDay) bool {
	return start >= g.Open() && end <= g.Close()
}

// Aligned reports whether both ends sit on hourly boundaries.
func (g Grid) Aligned(start, end models.TimeOfDay) bool {
	return start.OnHour() && end.OnHour()
}
