package domain

import (
	"time"
)

type Passenger struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Passport string `json:"passport,omitempty"`
}

type GuestInfo struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	Country    string      `json:"country"`
	Passengers []Passenger `json:"passengers,omitempty"`
}

type AuditLog struct {
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Meta      map[string]any `json:"meta,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Amounts are whole currency units (INR). totalAmount = userVisibleAmount +
// commissionAmount: commission is operator revenue layered on top of the
// customer-visible price, not subtracted from it.
type Booking struct {
	ID          string     `json:"id"`
	UserID      *string    `json:"user_id,omitempty"`
	GuestInfo   *GuestInfo `json:"guest_info,omitempty"`
	ManageToken string     `json:"manage_token,omitempty"`

	PackageID string  `json:"package_id"`
	VehicleID *string `json:"vehicle_id,omitempty"`

	PickupLocation string    `json:"pickup_location"`
	DropLocation   string    `json:"drop_location"`
	StartDateTime  time.Time `json:"start_date_time"`
	ReturnDateTime time.Time `json:"return_date_time"`
	PaxCount       int       `json:"pax_count"`

	BaseAmount        int64   `json:"base_amount"`
	Taxes             int64   `json:"taxes"`
	UserVisibleAmount int64   `json:"user_visible_amount"`
	CommissionPercent float64 `json:"commission_percent"`
	CommissionAmount  int64   `json:"commission_amount"`
	TotalAmount       int64   `json:"total_amount"`

	Status         BookingStatus  `json:"status"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`

	// Decision fields: set by either approval or rejection, so they hold
	// whoever decided, when, and their note or rejection reason.
	ApprovedBy   *string    `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	ApprovalNote string     `json:"approval_note,omitempty"`

	PaymentRequestID   *string    `json:"payment_request_id,omitempty"`
	PaymentRequestedAt *time.Time `json:"payment_requested_at,omitempty"`
	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at,omitempty"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	SpecialRequests string `json:"special_requests,omitempty"`
	Rating          *int   `json:"rating,omitempty"`
	Review          string `json:"review,omitempty"`

	AuditLogs []AuditLog `json:"audit_logs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// transition is the only writer of Status. It validates reachability and
// keeps the derived approval/payment projections in sync.
func (b *Booking) transition(to BookingStatus) error {
	if err := ValidateTransition(b.Status, to); err != nil {
		return err
	}
	b.Status = to
	b.ApprovalStatus = to.ApprovalProjection()
	b.PaymentStatus = to.PaymentProjection()
	return nil
}

func (b *Booking) appendAudit(actorID, action string, meta map[string]any, now time.Time) {
	b.AuditLogs = append(b.AuditLogs, AuditLog{
		ActorID:   actorID,
		Action:    action,
		Meta:      meta,
		Timestamp: now,
	})
}

// Approve moves a pending booking to approved_pending_payment. A commission
// override recomputes the commission before the status flips, so money and
// status always change in the same write.
func (b *Booking) Approve(actorID string, vehicleID *string, commissionPercent *float64, note string, now time.Time) error {
	if err := b.transition(StatusApprovedPendingPayment); err != nil {
		return err
	}
	if commissionPercent != nil {
		if *commissionPercent < 0 || *commissionPercent > 100 {
			return NewValidationError("commission_percent must be between 0 and 100")
		}
		b.CommissionPercent = *commissionPercent
		b.CommissionAmount = commissionAmount(b.UserVisibleAmount, *commissionPercent)
		b.TotalAmount = b.UserVisibleAmount + b.CommissionAmount
	}
	if vehicleID != nil {
		b.VehicleID = vehicleID
	}
	b.ApprovedBy = &actorID
	b.ApprovedAt = &now
	b.ApprovalNote = note
	meta := map[string]any{"total_amount": b.TotalAmount}
	if vehicleID != nil {
		meta["vehicle_id"] = *vehicleID
	}
	b.appendAudit(actorID, "booking.approved", meta, now)
	b.UpdatedAt = now
	return nil
}

func (b *Booking) Reject(actorID, reason string, now time.Time) error {
	if err := b.transition(StatusRejected); err != nil {
		return err
	}
	b.ApprovedBy = &actorID
	b.ApprovedAt = &now
	b.ApprovalNote = reason
	b.appendAudit(actorID, "booking.rejected", map[string]any{"reason": reason}, now)
	b.UpdatedAt = now
	return nil
}

// MarkPaymentRequested links a freshly issued payment request and moves the
// booking to payment_pending.
func (b *Booking) MarkPaymentRequested(actorID, requestID string, now time.Time) error {
	if err := b.transition(StatusPaymentPending); err != nil {
		return err
	}
	b.PaymentRequestID = &requestID
	b.PaymentRequestedAt = &now
	b.appendAudit(actorID, "payment.requested", map[string]any{"payment_request_id": requestID}, now)
	b.UpdatedAt = now
	return nil
}

func (b *Booking) ConfirmPayment(paymentID string, now time.Time) error {
	if err := b.transition(StatusConfirmed); err != nil {
		return err
	}
	b.PaymentConfirmedAt = &now
	b.appendAudit("payment-gateway", "payment.captured", map[string]any{"payment_id": paymentID}, now)
	b.UpdatedAt = now
	return nil
}

// PaymentExpired returns the booking to the retry position. The request id is
// cleared so a fresh request may be issued.
func (b *Booking) PaymentExpired(requestID string, now time.Time) error {
	if err := b.transition(StatusApprovedPendingPayment); err != nil {
		return err
	}
	b.PaymentRequestID = nil
	b.appendAudit("system", "payment.expired", map[string]any{"payment_request_id": requestID}, now)
	b.UpdatedAt = now
	return nil
}

// PaymentFailed records a provider-reported failure and returns the booking
// to the retry position, same back edge as expiry.
func (b *Booking) PaymentFailed(requestID string, now time.Time) error {
	if err := b.transition(StatusApprovedPendingPayment); err != nil {
		return err
	}
	b.PaymentRequestID = nil
	b.appendAudit("payment-gateway", "payment.failed", map[string]any{"payment_request_id": requestID}, now)
	b.UpdatedAt = now
	return nil
}

func (b *Booking) StartTrip(driverID string, now time.Time) error {
	if err := b.transition(StatusOngoing); err != nil {
		return err
	}
	b.appendAudit(driverID, "trip.started", nil, now)
	b.UpdatedAt = now
	return nil
}

func (b *Booking) CompleteTrip(driverID string, now time.Time) error {
	if err := b.transition(StatusCompleted); err != nil {
		return err
	}
	b.CompletedAt = &now
	b.appendAudit(driverID, "trip.completed", nil, now)
	b.UpdatedAt = now
	return nil
}

func (b *Booking) Cancel(actorID, reason string, now time.Time) error {
	if b.Status.Terminal() {
		return NewConflictError("booking is already %s", b.Status)
	}
	if err := b.transition(StatusCancelled); err != nil {
		return err
	}
	b.CancelledAt = &now
	b.CancellationReason = reason
	b.appendAudit(actorID, "booking.cancelled", map[string]any{"reason": reason}, now)
	b.UpdatedAt = now
	return nil
}

// CheckMoney verifies the monetary invariants after a write.
func (b *Booking) CheckMoney() error {
	if b.BaseAmount < 0 || b.Taxes < 0 || b.UserVisibleAmount < 0 || b.CommissionAmount < 0 || b.TotalAmount < 0 {
		return NewValidationError("amounts must be non-negative")
	}
	if b.TotalAmount != b.UserVisibleAmount+b.CommissionAmount {
		return NewValidationError("total_amount must equal user_visible_amount + commission_amount")
	}
	return nil
}
