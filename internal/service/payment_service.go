package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/payments"
	"github.com/malabartours/bookings/internal/repo/postgres"
	"github.com/malabartours/bookings/pkg/config"
	"github.com/malabartours/bookings/pkg/events"
	"github.com/malabartours/bookings/pkg/logger"
)

const chargeAttempts = 2

type PaymentService interface {
	IssueRequest(ctx context.Context, bookingID, actorID string, method domain.PaymentMethod) (*domain.PaymentRequest, error)
	HandleCallback(ctx context.Context, cb *domain.PaymentCallback) (*domain.Booking, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
	RunExpirySweeper(ctx context.Context)
}

type paymentService struct {
	bookings  postgres.BookingRepo
	requests  postgres.PaymentRequestRepo
	vehicles  postgres.VehicleRepo
	drivers   postgres.AssignmentRepo
	providers map[domain.PaymentMethod]payments.Provider
	bus       events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewPaymentService(
	bookings postgres.BookingRepo,
	requests postgres.PaymentRequestRepo,
	vehicles postgres.VehicleRepo,
	drivers postgres.AssignmentRepo,
	providers map[domain.PaymentMethod]payments.Provider,
	bus events.Publisher,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		bookings:  bookings,
		requests:  requests,
		vehicles:  vehicles,
		drivers:   drivers,
		providers: providers,
		bus:       bus,
		cfg:       cfg,
		now:       time.Now,
	}
}

// IssueRequest creates the single open payment request for an approved
// booking and moves it to payment_pending.
func (s *paymentService) IssueRequest(ctx context.Context, bookingID, actorID string, method domain.PaymentMethod) (*domain.PaymentRequest, error) {
	provider, ok := s.providers[method]
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported payment method %q", method))
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NewNotFoundError("booking", bookingID)
	}
	if b.Status != domain.StatusApprovedPendingPayment {
		return nil, domain.NewConflictError("booking %s is %s, payment can only be requested after approval", bookingID, b.Status)
	}

	attempts, err := s.requests.CountByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if attempts >= s.cfg.Booking.MaxPaymentAttempts {
		return nil, domain.NewConflictError("booking %s has exhausted its %d payment attempts", bookingID, s.cfg.Booking.MaxPaymentAttempts)
	}

	now := s.now().UTC()
	req := &domain.PaymentRequest{
		ID:            uuid.NewString(),
		BookingID:     bookingID,
		Method:        method,
		Amount:        b.TotalAmount,
		Currency:      s.cfg.Booking.Currency,
		ExpiresAt:     now.Add(s.cfg.Booking.PaymentRequestTTL),
		Status:        domain.RequestPending,
		AttemptCount:  attempts + 1,
		LastAttemptAt: &now,
		CreatedAt:     now,
	}

	charge, err := s.createCharge(ctx, provider, req, fmt.Sprintf("Booking %s", bookingID))
	if err != nil {
		return nil, &domain.UpstreamError{Op: "create charge", Err: err}
	}
	req.QR = charge.QR
	req.Link = charge.Link

	if err := s.requests.CreatePending(ctx, req); err != nil {
		return nil, err
	}

	prior := b.Status
	if err := b.MarkPaymentRequested(actorID, req.ID, now); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateTransition(ctx, b, prior); err != nil {
		// Lost the race on the booking row; retire the request we just created.
		if _, cErr := s.requests.MarkCancelled(ctx, req.ID, "booking left approved state", now); cErr != nil {
			logger.ErrorContext(ctx, "failed to cancel orphaned payment request", "error", cErr, "payment_request_id", req.ID)
		}
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.PaymentRequested, events.PaymentRequestedEvent{
		BookingID:        bookingID,
		PaymentRequestID: req.ID,
		Method:           string(method),
		Amount:           req.Amount,
		Currency:         req.Currency,
		ExpiresAt:        req.ExpiresAt,
		AttemptCount:     req.AttemptCount,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish payment.requested", "error", err, "booking_id", bookingID)
	}

	return req, nil
}

func (s *paymentService) createCharge(ctx context.Context, provider payments.Provider, req *domain.PaymentRequest, desc string) (*payments.ChargeDetails, error) {
	var lastErr error
	for attempt := 1; attempt <= chargeAttempts; attempt++ {
		charge, err := provider.CreateCharge(ctx, req, desc)
		if err == nil {
			return charge, nil
		}
		lastErr = err
		logger.WarnContext(ctx, "provider charge attempt failed",
			"error", err, "payment_request_id", req.ID, "attempt", attempt)
	}
	return nil, lastErr
}

// HandleCallback settles a payment request from a gateway notification. Paid
// re-deliveries are idempotent; anything else on a non-pending request is a
// conflict.
func (s *paymentService) HandleCallback(ctx context.Context, cb *domain.PaymentCallback) (*domain.Booking, error) {
	if err := cb.Validate(); err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, cb.PaymentRequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.NewNotFoundError("payment request", cb.PaymentRequestID)
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NewNotFoundError("booking", req.BookingID)
	}

	if req.Status == domain.RequestPaid {
		return b, nil
	}
	if req.Status != domain.RequestPending {
		return nil, domain.NewConflictError("payment request %s is already %s", req.ID, req.Status)
	}

	now := s.now().UTC()
	if cb.Status != "paid" {
		return s.settleFailed(ctx, b, req, now)
	}

	if cb.Amount != b.TotalAmount {
		return nil, domain.NewValidationError(
			fmt.Sprintf("callback amount %d does not match booking total %d", cb.Amount, b.TotalAmount))
	}
	if req.Expired(now) {
		if _, err := s.expireRequest(ctx, req, now); err != nil {
			logger.ErrorContext(ctx, "failed to expire overdue payment request", "error", err, "payment_request_id", req.ID)
		}
		return nil, domain.NewConflictError("payment request %s expired before the callback arrived", req.ID)
	}

	ok, err := s.requests.MarkPaid(ctx, req.ID, cb.PaymentID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("payment request %s was settled concurrently", req.ID)
	}

	prior := b.Status
	if err := b.ConfirmPayment(cb.PaymentID, now); err != nil {
		s.flagRefundDue(ctx, req, now)
		return nil, err
	}
	if err := s.bookings.UpdateTransition(ctx, b, prior); err != nil {
		// Lost the race on the booking row (a concurrent cancel, most
		// likely). The money is captured, so flag it for a refund instead
		// of stranding a paid request against a dead booking.
		s.flagRefundDue(ctx, req, now)
		return nil, err
	}

	s.assignDriver(ctx, b)

	if err := s.bus.Publish(ctx, events.PaymentCaptured, events.PaymentCapturedEvent{
		BookingID:        b.ID,
		PaymentRequestID: req.ID,
		PaymentID:        cb.PaymentID,
		Amount:           cb.Amount,
		PaidAt:           now,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish payment.captured", "error", err, "booking_id", b.ID)
	}

	return b, nil
}

func (s *paymentService) flagRefundDue(ctx context.Context, req *domain.PaymentRequest, now time.Time) {
	ok, err := s.requests.MarkRefundDue(ctx, req.ID, "booking left payment_pending before confirmation", now)
	if err != nil || !ok {
		logger.ErrorContext(ctx, "failed to flag paid request for refund",
			"error", err, "payment_request_id", req.ID, "booking_id", req.BookingID)
		return
	}
	logger.WarnContext(ctx, "captured payment needs a manual refund",
		"payment_request_id", req.ID, "booking_id", req.BookingID)
}

func (s *paymentService) settleFailed(ctx context.Context, b *domain.Booking, req *domain.PaymentRequest, now time.Time) (*domain.Booking, error) {
	if _, err := s.requests.MarkCancelled(ctx, req.ID, "provider reported failure", now); err != nil {
		return nil, err
	}

	prior := b.Status
	if err := b.PaymentFailed(req.ID, now); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateTransition(ctx, b, prior); err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.PaymentFailed, events.PaymentExpiredEvent{
		BookingID:        b.ID,
		PaymentRequestID: req.ID,
		AttemptCount:     req.AttemptCount,
		ExpiredAt:        now,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish payment.failed", "error", err, "booking_id", b.ID)
	}

	return b, nil
}

// ExpireOverdue sweeps pending requests past their deadline and returns their
// bookings to approved_pending_payment.
func (s *paymentService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.requests.ListExpired(ctx, now, 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		ok, err := s.expireRequest(ctx, &overdue[i], now)
		if err != nil {
			logger.ErrorContext(ctx, "failed to expire payment request", "error", err, "payment_request_id", overdue[i].ID)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *paymentService) expireRequest(ctx context.Context, req *domain.PaymentRequest, now time.Time) (bool, error) {
	ok, err := s.requests.MarkExpired(ctx, req.ID)
	if err != nil || !ok {
		return false, err
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return false, err
	}
	if b == nil || b.Status != domain.StatusPaymentPending {
		return true, nil
	}
	if b.PaymentRequestID == nil || *b.PaymentRequestID != req.ID {
		return true, nil
	}

	prior := b.Status
	if err := b.PaymentExpired(req.ID, now); err != nil {
		return false, err
	}
	if err := s.bookings.UpdateTransition(ctx, b, prior); err != nil {
		return false, err
	}

	if err := s.bus.Publish(ctx, events.PaymentExpired, events.PaymentExpiredEvent{
		BookingID:        b.ID,
		PaymentRequestID: req.ID,
		AttemptCount:     req.AttemptCount,
		ExpiredAt:        now,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish payment.expired", "error", err, "booking_id", b.ID)
	}
	return true, nil
}

// RunExpirySweeper blocks until ctx is done, sweeping on the configured
// interval.
func (s *paymentService) RunExpirySweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Booking.PaymentExpirySweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireOverdue(ctx, s.now().UTC())
			if err != nil {
				logger.ErrorContext(ctx, "payment expiry sweep failed", "error", err)
			} else if n > 0 {
				logger.InfoContext(ctx, "expired overdue payment requests", "count", n)
			}
		}
	}
}

// assignDriver creates the driver assignment once payment lands, when the
// approved vehicle has a driver attached. Missing pieces are logged, not
// fatal: the trip can be staffed manually.
func (s *paymentService) assignDriver(ctx context.Context, b *domain.Booking) {
	if b.VehicleID == nil {
		return
	}
	v, err := s.vehicles.GetByID(ctx, *b.VehicleID)
	if err != nil || v == nil || v.AssignedDriverID == nil {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load vehicle for assignment", "error", err, "vehicle_id", *b.VehicleID)
		}
		return
	}

	existing, err := s.drivers.GetByBookingID(ctx, b.ID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check existing assignment", "error", err, "booking_id", b.ID)
		return
	}
	if existing != nil {
		return
	}

	now := s.now().UTC()
	a := &domain.DriverAssignment{
		ID:             uuid.NewString(),
		BookingID:      b.ID,
		DriverID:       *v.AssignedDriverID,
		VehicleID:      v.ID,
		Status:         domain.AssignmentAssigned,
		PickupLocation: b.PickupLocation,
		DropLocation:   b.DropLocation,
		StartDateTime:  b.StartDateTime,
		ReturnDateTime: b.ReturnDateTime,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if b.GuestInfo != nil {
		a.PassengerInfo = *b.GuestInfo
	}
	if err := s.drivers.Create(ctx, a); err != nil {
		logger.ErrorContext(ctx, "failed to create driver assignment", "error", err, "booking_id", b.ID)
	}
}
