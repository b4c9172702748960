package domain

import "time"

type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleInactive    VehicleStatus = "inactive"
	VehicleMaintenance VehicleStatus = "maintenance"
)

type AvailabilityBlock struct {
	ID        string    `json:"id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
	BlockedBy string    `json:"blocked_by"`
	BlockedAt time.Time `json:"blocked_at"`
}

// Overlaps reports whether [start, end] intersects the block.
func (b AvailabilityBlock) Overlaps(start, end time.Time) bool {
	return !end.Before(b.StartDate) && !b.EndDate.Before(start)
}

type Vehicle struct {
	ID               string              `json:"id"`
	Type             string              `json:"type"`
	Capacity         int                 `json:"capacity"`
	LuggageCapacity  string              `json:"luggage_capacity,omitempty"`
	AC               bool                `json:"ac"`
	RegNo            string              `json:"reg_no"`
	Status           VehicleStatus       `json:"status"`
	Availability     []AvailabilityBlock `json:"availability,omitempty"`
	AssignedDriverID *string             `json:"assigned_driver_id,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// BlockedDuring reports whether any availability block intersects the trip window.
func (v *Vehicle) BlockedDuring(start, end time.Time) bool {
	for _, b := range v.Availability {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// ValidateNewBlock rejects a block that overlaps an existing one.
func (v *Vehicle) ValidateNewBlock(block AvailabilityBlock) error {
	if block.EndDate.Before(block.StartDate) {
		return NewValidationError("end_date must not be before start_date")
	}
	for _, existing := range v.Availability {
		if existing.Overlaps(block.StartDate, block.EndDate) {
			return NewConflictError("availability block overlaps existing block %s", existing.ID)
		}
	}
	return nil
}
