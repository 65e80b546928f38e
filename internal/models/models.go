package models

import "time"

type Slot struct {
	Time      TimeOfDay `json:"time"`
	Label     string    `json:"label"`
	Available bool      `json:"available"`
}

// DaySchedule is the slot calendar of one room on one date.
type DaySchedule struct {
	RoomID string `json:"room_id"`
	Date   string `json:"date"`
	Slots  []Slot `json:"slots"`
}

// QuickSlot is a free one-hour slot suggestion.
type QuickSlot struct {
	Room      Room      `json:"room"`
	Date      string    `json:"date"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}

// SweepResult summarizes one auto-release pass.
type SweepResult struct {
	CheckedAt        time.Time `json:"checked_at"`
	BookingsChecked  int       `json:"bookings_checked"`
	BookingsReleased int       `json:"bookings_released"`
}

type CountEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type AnalyticsSummary struct {
	TotalBookings   int          `json:"total_bookings"`
	TotalRooms      int          `json:"total_rooms"`
	CheckInRate     int          `json:"checkin_rate"`
	ByStatus        []CountEntry `json:"by_status"`
	ByWeekday       []CountEntry `json:"by_weekday"`
	ByHour          []CountEntry `json:"by_hour"`
	ByRoom          []CountEntry `json:"by_room"`
	RoomUtilization []CountEntry `json:"room_utilization"`
}
