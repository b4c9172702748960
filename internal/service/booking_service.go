package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/repo/postgres"
	"github.com/malabartours/bookings/pkg/config"
	"github.com/malabartours/bookings/pkg/events"
	"github.com/malabartours/bookings/pkg/logger"
)

type BookingService interface {
	Create(ctx context.Context, req *domain.CreateBookingRequest) (*domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	GetWithToken(ctx context.Context, id, token string) (*domain.Booking, error)
	List(ctx context.Context, status *domain.BookingStatus, page, limit int) ([]domain.Booking, *Pagination, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Booking, error)
	Approve(ctx context.Context, id, actorID string, req *domain.ApproveBookingRequest) (*domain.Booking, error)
	Reject(ctx context.Context, id, actorID, reason string) (*domain.Booking, error)
	Cancel(ctx context.Context, id, actorID, reason string) (*domain.Booking, error)
	HardDelete(ctx context.Context, id, actorID string) error
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type bookingService struct {
	bookings postgres.BookingRepo
	packages postgres.PackageRepo
	vehicles postgres.VehicleRepo
	payments postgres.PaymentRequestRepo
	bus      events.Publisher
	cfg      *config.Config
	now      func() time.Time
}

func NewBookingService(
	bookings postgres.BookingRepo,
	packages postgres.PackageRepo,
	vehicles postgres.VehicleRepo,
	payments postgres.PaymentRequestRepo,
	bus events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		bookings: bookings,
		packages: packages,
		vehicles: vehicles,
		payments: payments,
		bus:      bus,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	now := s.now().UTC()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	pkg, err := s.packages.GetByID(ctx, req.PackageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load package: %w", err)
	}
	if pkg == nil || !pkg.IsActive {
		return nil, domain.NewNotFoundError("package", req.PackageID)
	}
	if err := pkg.ValidatePax(req.PaxCount); err != nil {
		return nil, err
	}

	quote := domain.PriceBooking(pkg, req.PaxCount, s.cfg.Booking.TaxPercent, s.cfg.Booking.DefaultCommissionPercent)

	actorID := "guest"
	if req.UserID != nil {
		actorID = *req.UserID
	}

	b := &domain.Booking{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		GuestInfo:         req.GuestInfo,
		PackageID:         req.PackageID,
		PickupLocation:    req.PickupLocation,
		DropLocation:      req.DropLocation,
		StartDateTime:     req.StartDateTime,
		ReturnDateTime:    req.ReturnDateTime,
		PaxCount:          req.PaxCount,
		BaseAmount:        quote.BaseAmount,
		Taxes:             quote.Taxes,
		UserVisibleAmount: quote.UserVisibleAmount,
		CommissionPercent: quote.CommissionPercent,
		CommissionAmount:  quote.CommissionAmount,
		TotalAmount:       quote.TotalAmount,
		Status:            domain.StatusPendingApproval,
		ApprovalStatus:    domain.ApprovalPending,
		PaymentStatus:     domain.PaymentPending,
		SpecialRequests:   req.SpecialRequests,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.GuestInfo != nil {
		b.ManageToken = uuid.NewString()
	}
	b.AuditLogs = []domain.AuditLog{{
		ActorID:   actorID,
		Action:    "booking.created",
		Meta:      map[string]any{"pax_count": b.PaxCount, "total_amount": b.TotalAmount},
		Timestamp: now,
	}}

	if err := b.CheckMoney(); err != nil {
		return nil, err
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if err := s.packages.IncrementBookingCount(ctx, pkg.ID); err != nil {
		logger.ErrorContext(ctx, "failed to bump package booking count", "error", err, "package_id", pkg.ID)
	}

	ev := events.BookingCreatedEvent{
		BookingID:     b.ID,
		PackageID:     b.PackageID,
		StartDateTime: b.StartDateTime,
		PaxCount:      b.PaxCount,
		CreatedAt:     b.CreatedAt,
	}
	if b.GuestInfo != nil {
		ev.GuestEmail = b.GuestInfo.Email
		ev.GuestName = b.GuestInfo.Name
	}
	if err := s.bus.Publish(ctx, events.BookingCreated, ev); err != nil {
		logger.ErrorContext(ctx, "failed to publish booking.created", "error", err, "booking_id", b.ID)
	}

	return b, nil
}

func (s *bookingService) Get(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NewNotFoundError("booking", id)
	}
	return b, nil
}

func (s *bookingService) GetWithToken(ctx context.Context, id, token string) (*domain.Booking, error) {
	b, err := s.bookings.GetByIDWithToken(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NewNotFoundError("booking", id)
	}
	return b, nil
}

func (s *bookingService) List(ctx context.Context, status *domain.BookingStatus, page, limit int) ([]domain.Booking, *Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	bookings, err := s.bookings.List(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, err
	}
	total, err := s.bookings.Count(ctx, status)
	if err != nil {
		return nil, nil, err
	}

	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	return bookings, &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

func (s *bookingService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Booking, error) {
	return s.bookings.ListByUserID(ctx, userID, limit, offset)
}

// Approve applies the admin decision as a single conditional write keyed on
// pending_approval. Re-submitting an already-applied approval is a no-op.
func (s *bookingService) Approve(ctx context.Context, id, actorID string, req *domain.ApproveBookingRequest) (*domain.Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Idempotent replay of the same decision.
	if b.Status == domain.StatusApprovedPendingPayment {
		return b, nil
	}

	if req.VehicleID != nil {
		if err := s.checkVehicleAvailable(ctx, *req.VehicleID, b); err != nil {
			return nil, err
		}
	}

	prior := b.Status
	if err := b.Approve(actorID, req.VehicleID, req.CommissionPercent, req.Note, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateTransition(ctx, b, prior); err != nil {
		return nil, err
	}

	ev := events.BookingDecidedEvent{
		BookingID:   b.ID,
		ApprovedBy:  actorID,
		TotalAmount: b.TotalAmount,
		Note:        req.Note,
		DecidedAt:   *b.ApprovedAt,
	}
	if b.VehicleID != nil {
		ev.VehicleID = *b.VehicleID
	}
	if err := s.bus.Publish(ctx, events.BookingApproved, ev); err != nil {
		logger.ErrorContext(ctx, "failed to publish booking.approved", "error", err, "booking_id", b.ID)
	}

	return b, nil
}

func (s *bookingService) checkVehicleAvailable(ctx context.Context, vehicleID string, b *domain.Booking) error {
	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("failed to load vehicle: %w", err)
	}
	if v == nil {
		return domain.NewNotFoundError("vehicle", vehicleID)
	}
	if v.Status != domain.VehicleActive {
		return domain.NewConflictError("vehicle %s is %s", vehicleID, v.Status)
	}
	if v.BlockedDuring(b.StartDateTime, b.ReturnDateTime) {
		return domain.NewConflictError("vehicle %s is blocked during the trip window", vehicleID)
	}
	conflicts, err := s.bookings.CountVehicleConflicts(ctx, vehicleID, b.StartDateTime, b.ReturnDateTime)
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return domain.NewConflictError("vehicle %s already holds a booking during the trip window", vehicleID)
	}
	return nil
}

func (s *bookingService) Reject(ctx context.Context, id, actorID, reason string) (*domain.Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if b.Status == domain.StatusRejected {
		return b, nil
	}

	prior := b.Status
	if err := b.Reject(actorID, reason, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateTransition(ctx, b, prior); err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.BookingRejected, events.BookingDecidedEvent{
		BookingID:  b.ID,
		ApprovedBy: actorID,
		Note:       reason,
		DecidedAt:  *b.ApprovedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish booking.rejected", "error", err, "booking_id", b.ID)
	}

	return b, nil
}

func (s *bookingService) Cancel(ctx context.Context, id, actorID, reason string) (*domain.Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prior := b.Status
	now := s.now().UTC()
	if err := b.Cancel(actorID, reason, now); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateTransition(ctx, b, prior); err != nil {
		return nil, err
	}

	// A cancelled booking cannot collect; retire any open payment request.
	if pending, err := s.payments.GetPendingByBookingID(ctx, id); err != nil {
		logger.ErrorContext(ctx, "failed to load pending payment request", "error", err, "booking_id", id)
	} else if pending != nil {
		if _, err := s.payments.MarkCancelled(ctx, pending.ID, "booking cancelled", now); err != nil {
			logger.ErrorContext(ctx, "failed to cancel payment request", "error", err, "payment_request_id", pending.ID)
		}
	}

	if err := s.bus.Publish(ctx, events.BookingCancelled, events.BookingCancelledEvent{
		BookingID:   b.ID,
		ActorID:     actorID,
		Reason:      reason,
		CancelledAt: now,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish booking.cancelled", "error", err, "booking_id", b.ID)
	}

	return b, nil
}

// HardDelete physically removes a booking. Destructive, super_admin only,
// outside the normal lifecycle.
func (s *bookingService) HardDelete(ctx context.Context, id, actorID string) error {
	ok, err := s.bookings.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError("booking", id)
	}
	logger.InfoContext(ctx, "booking hard-deleted", "booking_id", id, "actor_id", actorID)
	return nil
}
