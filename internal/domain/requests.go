package domain

import (
	"net/mail"
	"time"
)

// CreateBookingRequest is what the public widget (or an admin surface) posts.
// Either user_id or guest_info must be present, never both.
type CreateBookingRequest struct {
	PackageID       string     `json:"package_id"`
	UserID          *string    `json:"user_id,omitempty"`
	GuestInfo       *GuestInfo `json:"guest_info,omitempty"`
	PickupLocation  string     `json:"pickup_location"`
	DropLocation    string     `json:"drop_location"`
	StartDateTime   time.Time  `json:"start_date_time"`
	ReturnDateTime  time.Time  `json:"return_date_time"`
	PaxCount        int        `json:"pax_count"`
	SpecialRequests string     `json:"special_requests,omitempty"`
}

// Validate accumulates field-level messages; pax bounds are checked against
// the package separately since they need a lookup.
func (r *CreateBookingRequest) Validate(now time.Time) error {
	var errs []string
	if r.PackageID == "" {
		errs = append(errs, "package_id is required")
	}
	if r.PickupLocation == "" {
		errs = append(errs, "pickup_location is required")
	}
	if r.DropLocation == "" {
		errs = append(errs, "drop_location is required")
	}
	if r.StartDateTime.IsZero() {
		errs = append(errs, "start_date_time is required")
	} else if r.StartDateTime.Before(now) {
		errs = append(errs, "start_date_time must be in the future")
	}
	if r.ReturnDateTime.IsZero() {
		errs = append(errs, "return_date_time is required")
	} else if r.ReturnDateTime.Before(r.StartDateTime) {
		errs = append(errs, "return_date_time must not be before start_date_time")
	}
	if r.PaxCount <= 0 {
		errs = append(errs, "pax_count must be positive")
	}
	if (r.UserID == nil) == (r.GuestInfo == nil) {
		errs = append(errs, "exactly one of user_id or guest_info must be set")
	}
	if r.GuestInfo != nil {
		if r.GuestInfo.Name == "" {
			errs = append(errs, "guest_info.name is required")
		}
		if _, err := mail.ParseAddress(r.GuestInfo.Email); err != nil {
			errs = append(errs, "guest_info.email is invalid")
		}
		if r.GuestInfo.Phone == "" {
			errs = append(errs, "guest_info.phone is required")
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

type ApproveBookingRequest struct {
	VehicleID         *string  `json:"vehicle_id,omitempty"`
	CommissionPercent *float64 `json:"commission_percent,omitempty"`
	Note              string   `json:"note,omitempty"`
}

type RejectBookingRequest struct {
	Reason string `json:"reason"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type IssuePaymentRequest struct {
	Method string `json:"method"`
}

// PaymentCallback is the confirmation the payment provider posts back.
type PaymentCallback struct {
	PaymentRequestID string `json:"payment_request_id"`
	PaymentID        string `json:"payment_id"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
}

func (c *PaymentCallback) Validate() error {
	var errs []string
	if c.PaymentRequestID == "" {
		errs = append(errs, "payment_request_id is required")
	}
	if c.Status != "paid" && c.Status != "failed" {
		errs = append(errs, "status must be paid or failed")
	}
	if c.Status == "paid" {
		if c.PaymentID == "" {
			errs = append(errs, "payment_id is required for paid callbacks")
		}
		if c.Amount <= 0 {
			errs = append(errs, "amount must be positive")
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

type AssignmentStatusRequest struct {
	Status string `json:"status"`
}

type AvailabilityBlockRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
}
