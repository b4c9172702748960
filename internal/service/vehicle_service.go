package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/repo/postgres"
	"github.com/malabartours/bookings/pkg/logger"
)

type VehicleService interface {
	Create(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error)
	Get(ctx context.Context, id string) (*domain.Vehicle, error)
	List(ctx context.Context, limit, offset int) ([]domain.Vehicle, error)
	AddAvailabilityBlock(ctx context.Context, vehicleID, actorID string, req *domain.AvailabilityBlockRequest) (*domain.AvailabilityBlock, error)
}

type vehicleService struct {
	vehicles postgres.VehicleRepo
	bookings postgres.BookingRepo
	now      func() time.Time
}

func NewVehicleService(vehicles postgres.VehicleRepo, bookings postgres.BookingRepo) VehicleService {
	return &vehicleService{vehicles: vehicles, bookings: bookings, now: time.Now}
}

func (s *vehicleService) Create(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	var errs []string
	if v.Type == "" {
		errs = append(errs, "type is required")
	}
	if v.RegNo == "" {
		errs = append(errs, "reg_no is required")
	}
	if v.Capacity <= 0 {
		errs = append(errs, "capacity must be positive")
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationError(errs...)
	}

	now := s.now().UTC()
	v.ID = uuid.NewString()
	if v.Status == "" {
		v.Status = domain.VehicleActive
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *vehicleService) Get(ctx context.Context, id string) (*domain.Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.NewNotFoundError("vehicle", id)
	}
	return v, nil
}

func (s *vehicleService) List(ctx context.Context, limit, offset int) ([]domain.Vehicle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.vehicles.List(ctx, limit, offset)
}

// AddAvailabilityBlock blocks the vehicle for a window. Overlap with an
// existing block or an in-flight booking is a conflict; the database guard on
// insert decides concurrent racers.
func (s *vehicleService) AddAvailabilityBlock(ctx context.Context, vehicleID, actorID string, req *domain.AvailabilityBlockRequest) (*domain.AvailabilityBlock, error) {
	v, err := s.Get(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	block := domain.AvailabilityBlock{
		ID:        uuid.NewString(),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
		BlockedBy: actorID,
		BlockedAt: s.now().UTC(),
	}
	if err := v.ValidateNewBlock(block); err != nil {
		return nil, err
	}

	conflicts, err := s.bookings.CountVehicleConflicts(ctx, vehicleID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if conflicts > 0 {
		return nil, domain.NewConflictError("vehicle %s holds bookings during the block window", vehicleID)
	}

	ok, err := s.vehicles.AddAvailabilityBlock(ctx, vehicleID, block)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("availability block overlaps an existing block")
	}

	logger.InfoContext(ctx, "availability block added",
		"vehicle_id", vehicleID, "start", block.StartDate, "end", block.EndDate)
	return &block, nil
}
