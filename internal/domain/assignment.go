package domain

import "time"

type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentStarted   AssignmentStatus = "started"
	AssignmentCompleted AssignmentStatus = "completed"
)

func ParseAssignmentStatus(s string) (AssignmentStatus, bool) {
	switch AssignmentStatus(s) {
	case AssignmentAssigned, AssignmentAccepted, AssignmentStarted, AssignmentCompleted:
		return AssignmentStatus(s), true
	default:
		return "", false
	}
}

// assignmentNext is strictly linear: assigned -> accepted -> started -> completed.
var assignmentNext = map[AssignmentStatus]AssignmentStatus{
	AssignmentAssigned: AssignmentAccepted,
	AssignmentAccepted: AssignmentStarted,
	AssignmentStarted:  AssignmentCompleted,
}

// DriverAssignment is the driver-facing sub-lifecycle of a confirmed booking.
// Its status advances in lockstep with the parent booking.
type DriverAssignment struct {
	ID        string           `json:"id"`
	BookingID string           `json:"booking_id"`
	DriverID  string           `json:"driver_id"`
	VehicleID string           `json:"vehicle_id"`
	Status    AssignmentStatus `json:"status"`

	PickupLocation string    `json:"pickup_location"`
	DropLocation   string    `json:"drop_location"`
	StartDateTime  time.Time `json:"start_date_time"`
	ReturnDateTime time.Time `json:"return_date_time"`
	PassengerInfo  GuestInfo `json:"passenger_info"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Advance moves the assignment to the requested status. Only the single next
// step is permitted; anything else is a conflict.
func (a *DriverAssignment) Advance(to AssignmentStatus, now time.Time) error {
	next, ok := assignmentNext[a.Status]
	if !ok || next != to {
		return NewConflictError("assignment cannot move from %s to %s", a.Status, to)
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}

// BookingStatusFor returns the parent booking status implied by an assignment
// status, or "" when the assignment step does not move the booking.
func BookingStatusFor(s AssignmentStatus) BookingStatus {
	switch s {
	case AssignmentStarted:
		return StatusOngoing
	case AssignmentCompleted:
		return StatusCompleted
	default:
		return ""
	}
}
