package domain

type BookingStatus string

const (
	StatusPendingApproval        BookingStatus = "pending_approval"
	StatusApprovedPendingPayment BookingStatus = "approved_pending_payment"
	StatusPaymentPending         BookingStatus = "payment_pending"
	StatusConfirmed              BookingStatus = "confirmed"
	StatusOngoing                BookingStatus = "ongoing"
	StatusCompleted              BookingStatus = "completed"
	StatusCancelled              BookingStatus = "cancelled"
	StatusRejected               BookingStatus = "rejected"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case StatusPendingApproval, StatusApprovedPendingPayment, StatusPaymentPending,
		StatusConfirmed, StatusOngoing, StatusCompleted, StatusCancelled, StatusRejected:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

func (s BookingStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// transitions is the only definition of reachability between booking states.
// The back edge payment_pending -> approved_pending_payment covers an expired
// payment request, which returns the booking to the retry position.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPendingApproval:        {StatusApprovedPendingPayment, StatusRejected, StatusCancelled},
	StatusApprovedPendingPayment: {StatusPaymentPending, StatusCancelled},
	StatusPaymentPending:         {StatusConfirmed, StatusApprovedPendingPayment, StatusCancelled},
	StatusConfirmed:              {StatusOngoing, StatusCancelled},
	StatusOngoing:                {StatusCompleted, StatusCancelled},
	StatusCompleted:              {},
	StatusCancelled:              {},
	StatusRejected:               {},
}

func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a ConflictError when to is unreachable from from.
func ValidateTransition(from, to BookingStatus) error {
	if !CanTransition(from, to) {
		return NewConflictError("booking cannot move from %s to %s", from, to)
	}
	return nil
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// ApprovalProjection derives the approvalStatus field from the authoritative
// composite status. Bookings cancelled before a decision stay pending.
func (s BookingStatus) ApprovalProjection() ApprovalStatus {
	switch s {
	case StatusApprovedPendingPayment, StatusPaymentPending, StatusConfirmed, StatusOngoing, StatusCompleted:
		return ApprovalApproved
	case StatusRejected:
		return ApprovalRejected
	default:
		return ApprovalPending
	}
}

// PaymentProjection derives the paymentStatus field from the authoritative
// composite status.
func (s BookingStatus) PaymentProjection() PaymentStatus {
	switch s {
	case StatusConfirmed, StatusOngoing, StatusCompleted:
		return PaymentPaid
	default:
		return PaymentPending
	}
}
