package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time within a day, in seconds since midnight.
type TimeOfDay int

const (
	Second TimeOfDay = 1
	Minute           = 60 * Second
	Hour             = 60 * Minute
)

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour)*Hour + TimeOfDay(minute)*Minute + TimeOfDay(second)*Second
}

// AtHour returns the grid boundary for an hour.
func AtHour(hour int) TimeOfDay {
	return TimeOfDay(hour) * Hour
}

// TimeOfDayOf extracts the wall-clock part of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", raw)
}

func (t TimeOfDay) Hour() int   { return int(t / Hour) }
func (t TimeOfDay) Minute() int { return int(t%Hour) / int(Minute) }
func (t TimeOfDay) Second() int { return int(t % Minute) }

// OnHour reports whether t sits exactly on an hourly boundary.
func (t TimeOfDay) OnHour() bool {
	return t%Hour == 0
}

// String renders the storage form, e.g. "09:00:00".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// Short renders "HH:MM".
func (t TimeOfDay) Short() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Label renders a 12-hour label such as "1:00 PM".
func (t TimeOfDay) Label() string {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC).Format("3:04 PM")
}

// On places t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, date.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if t.Second() != 0 {
		return json.Marshal(t.String())
	}
	return json.Marshal(t.Short())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time as TEXT so lexical order matches time order.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *TimeOfDay) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
}
