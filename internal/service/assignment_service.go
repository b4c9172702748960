package service

import (
	"context"
	"time"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/repo/postgres"
	"github.com/malabartours/bookings/pkg/events"
	"github.com/malabartours/bookings/pkg/logger"
)

type AssignmentService interface {
	Get(ctx context.Context, id, driverID string) (*domain.DriverAssignment, error)
	ListForDriver(ctx context.Context, driverID string, limit, offset int) ([]domain.DriverAssignment, error)
	UpdateStatus(ctx context.Context, id, driverID string, to domain.AssignmentStatus) (*domain.DriverAssignment, error)
}

type assignmentService struct {
	assignments postgres.AssignmentRepo
	bookings    postgres.BookingRepo
	bus         events.Publisher
	now         func() time.Time
}

func NewAssignmentService(assignments postgres.AssignmentRepo, bookings postgres.BookingRepo, bus events.Publisher) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		bookings:    bookings,
		bus:         bus,
		now:         time.Now,
	}
}

func (s *assignmentService) Get(ctx context.Context, id, driverID string) (*domain.DriverAssignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.NewNotFoundError("assignment", id)
	}
	if a.DriverID != driverID {
		return nil, domain.NewAuthorizationError("assignment %s belongs to another driver", id)
	}
	return a, nil
}

func (s *assignmentService) ListForDriver(ctx context.Context, driverID string, limit, offset int) ([]domain.DriverAssignment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.assignments.ListByDriverID(ctx, driverID, limit, offset)
}

// UpdateStatus advances the assignment one step and, for started/completed,
// moves the parent booking in lockstep. Only the assigned driver may act.
func (s *assignmentService) UpdateStatus(ctx context.Context, id, driverID string, to domain.AssignmentStatus) (*domain.DriverAssignment, error) {
	a, err := s.Get(ctx, id, driverID)
	if err != nil {
		return nil, err
	}

	if a.Status == to {
		return a, nil
	}

	now := s.now().UTC()
	from := a.Status
	if err := a.Advance(to, now); err != nil {
		return nil, err
	}
	ok, err := s.assignments.AdvanceStatus(ctx, id, driverID, from, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("assignment %s changed concurrently", id)
	}

	if bs := domain.BookingStatusFor(to); bs != "" {
		if err := s.advanceBooking(ctx, a, bs, now); err != nil {
			return nil, err
		}
	}

	subject := map[domain.AssignmentStatus]string{
		domain.AssignmentAccepted:  events.TripAccepted,
		domain.AssignmentStarted:   events.TripStarted,
		domain.AssignmentCompleted: events.TripCompleted,
	}[to]
	if subject != "" {
		if err := s.bus.Publish(ctx, subject, events.TripEvent{
			BookingID:    a.BookingID,
			AssignmentID: a.ID,
			DriverID:     a.DriverID,
			At:           now,
		}); err != nil {
			logger.ErrorContext(ctx, "failed to publish trip event", "error", err, "subject", subject, "assignment_id", a.ID)
		}
	}

	return a, nil
}

func (s *assignmentService) advanceBooking(ctx context.Context, a *domain.DriverAssignment, to domain.BookingStatus, now time.Time) error {
	b, err := s.bookings.GetByID(ctx, a.BookingID)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.NewNotFoundError("booking", a.BookingID)
	}

	prior := b.Status
	switch to {
	case domain.StatusOngoing:
		err = b.StartTrip(a.DriverID, now)
	case domain.StatusCompleted:
		err = b.CompleteTrip(a.DriverID, now)
	}
	if err != nil {
		return err
	}
	return s.bookings.UpdateTransition(ctx, b, prior)
}
