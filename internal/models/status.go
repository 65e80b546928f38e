package models

var transitions = map[string][]string{
	StatusPending:   {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted},
}

// ReservedStatuses are the "booked, not yet checked in" labels.
var ReservedStatuses = []string{StatusPending, StatusConfirmed}

// ActiveStatuses count toward conflict detection.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusCheckedIn}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsActiveStatus(status string) bool {
	return contains(ActiveStatuses, status)
}

func IsReservedStatus(status string) bool {
	return contains(ReservedStatuses, status)
}

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func IsKnownStatus(status string) bool {
	return status == StatusPending || status == StatusConfirmed || status == StatusCheckedIn || IsTerminalStatus(status)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
