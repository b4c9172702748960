package domain

import "time"

type PaymentMethod string

const (
	MethodUPI PaymentMethod = "upi"
	MethodPSP PaymentMethod = "psp"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case MethodUPI, MethodPSP:
		return PaymentMethod(s), true
	default:
		return "", false
	}
}

type PaymentRequestStatus string

const (
	RequestPending   PaymentRequestStatus = "pending"
	RequestPaid      PaymentRequestStatus = "paid"
	RequestExpired   PaymentRequestStatus = "expired"
	RequestCancelled PaymentRequestStatus = "cancelled"
	// RequestRefundDue marks a captured payment whose booking left
	// payment_pending before confirmation landed. The money is with the
	// provider and has to be refunded by an operator.
	RequestRefundDue PaymentRequestStatus = "refund_due"
)

// PaymentRequest is one attempt to collect payment for an approved booking.
// A booking has at most one pending request at any time.
type PaymentRequest struct {
	ID        string               `json:"id"`
	BookingID string               `json:"booking_id"`
	Method    PaymentMethod        `json:"method"`
	QR        string               `json:"qr,omitempty"`
	Link      string               `json:"link,omitempty"`
	Amount    int64                `json:"amount"`
	Currency  string               `json:"currency"`
	ExpiresAt time.Time            `json:"expires_at"`
	Status    PaymentRequestStatus `json:"status"`

	PaymentID          *string    `json:"payment_id,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	AttemptCount  int        `json:"attempt_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (p *PaymentRequest) Expired(now time.Time) bool {
	return p.Status == RequestPending && now.After(p.ExpiresAt)
}

func (p *PaymentRequest) MarkPaid(paymentID string, now time.Time) error {
	if p.Status != RequestPending {
		return NewConflictError("payment request is already %s", p.Status)
	}
	p.Status = RequestPaid
	p.PaymentID = &paymentID
	p.PaidAt = &now
	return nil
}

func (p *PaymentRequest) MarkExpired(now time.Time) error {
	if p.Status != RequestPending {
		return NewConflictError("payment request is already %s", p.Status)
	}
	p.Status = RequestExpired
	return nil
}

func (p *PaymentRequest) MarkRefundDue(reason string, now time.Time) error {
	if p.Status != RequestPaid {
		return NewConflictError("payment request is %s, only a paid request can owe a refund", p.Status)
	}
	p.Status = RequestRefundDue
	p.CancelledAt = &now
	p.CancellationReason = reason
	return nil
}

func (p *PaymentRequest) MarkCancelled(reason string, now time.Time) error {
	if p.Status != RequestPending {
		return NewConflictError("payment request is already %s", p.Status)
	}
	p.Status = RequestCancelled
	p.CancelledAt = &now
	p.CancellationReason = reason
	return nil
}
