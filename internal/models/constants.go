package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCheckedIn = "checked_in"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

const (
	RoomTypeClassroom   = "classroom"
	RoomTypeLab         = "lab"
	RoomTypeSeminarHall = "seminar_hall"
	RoomTypeMeetingRoom = "meeting_room"
)

const (
	CapacityBandSmall  = "small"
	CapacityBandMedium = "medium"
	CapacityBandLarge  = "large"
)

const (
	AuditAutoRelease = "auto_release"
	AuditCheckIn     = "check_in"
	AuditCheckOut    = "check_out"

	// ReleaseReasonNoCheckIn is stored in auto_release metadata.
	ReleaseReasonNoCheckIn = "no_checkin_15min"
)

const (
	// DefaultOpenHour is the first bookable hour of the grid.
	DefaultOpenHour = 8

	// DefaultCloseHour is the last grid boundary; no slot starts at it.
	DefaultCloseHour = 21

	// DefaultGraceMinutes is how long a reservation waits for check-in before release.
	DefaultGraceMinutes = 15

	// DefaultCodePrefix prefixes every check-in code.
	DefaultCodePrefix = "CRUO"

	// DefaultQuickSlotsLimit caps the quick-slot suggestions.
	DefaultQuickSlotsLimit = 6

	// DefaultAutoReleaseInterval is the sweep period in seconds.
	DefaultAutoReleaseInterval = 5 * 60

	// DefaultCreateRateLimit bookings per user per window.
	DefaultCreateRateLimit = 20

	// DefaultCreateRateWindow window in seconds.
	DefaultCreateRateWindow = 60

	// DateLayout is the calendar date format used on the wire and in storage.
	DateLayout = "2006-01-02"
)
