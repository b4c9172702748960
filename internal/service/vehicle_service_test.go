package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/malabartours/bookings/internal/domain"
)

func TestAddAvailabilityBlock(t *testing.T) {
	vehicles := newMockVehicleRepo()
	bookings := newMockBookingRepo()
	vehicles.vehicles["veh-1"] = &domain.Vehicle{ID: "veh-1", Status: domain.VehicleActive}
	svc := NewVehicleService(vehicles, bookings)

	start := time.Now().UTC().AddDate(0, 0, 10)
	block, err := svc.AddAvailabilityBlock(context.Background(), "veh-1", "admin-1", &domain.AvailabilityBlockRequest{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 3),
		Reason:    "maintenance",
	})
	if err != nil {
		t.Fatalf("add block: %v", err)
	}
	if block.ID == "" || block.BlockedBy != "admin-1" {
		t.Errorf("block = %+v", block)
	}
	if !vehicles.blockAdded {
		t.Error("block not persisted")
	}
}

func TestAddAvailabilityBlockOverlapConflicts(t *testing.T) {
	vehicles := newMockVehicleRepo()
	bookings := newMockBookingRepo()
	start := time.Now().UTC().AddDate(0, 0, 10)
	vehicles.vehicles["veh-1"] = &domain.Vehicle{
		ID:     "veh-1",
		Status: domain.VehicleActive,
		Availability: []domain.AvailabilityBlock{
			{ID: "blk-1", StartDate: start, EndDate: start.AddDate(0, 0, 5)},
		},
	}
	svc := NewVehicleService(vehicles, bookings)

	_, err := svc.AddAvailabilityBlock(context.Background(), "veh-1", "admin-1", &domain.AvailabilityBlockRequest{
		StartDate: start.AddDate(0, 0, 2),
		EndDate:   start.AddDate(0, 0, 7),
	})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestAddAvailabilityBlockBookingConflicts(t *testing.T) {
	vehicles := newMockVehicleRepo()
	bookings := newMockBookingRepo()
	bookings.conflicts = 1
	vehicles.vehicles["veh-1"] = &domain.Vehicle{ID: "veh-1", Status: domain.VehicleActive}
	svc := NewVehicleService(vehicles, bookings)

	start := time.Now().UTC().AddDate(0, 0, 10)
	_, err := svc.AddAvailabilityBlock(context.Background(), "veh-1", "admin-1", &domain.AvailabilityBlockRequest{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 3),
	})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError when bookings occupy the window, got %v", err)
	}
}

func TestCreateVehicleValidation(t *testing.T) {
	svc := NewVehicleService(newMockVehicleRepo(), newMockBookingRepo())

	_, err := svc.Create(context.Background(), &domain.Vehicle{})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	v, err := svc.Create(context.Background(), &domain.Vehicle{Type: "tempo_traveller", RegNo: "KL-07-1234", Capacity: 12})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ID == "" || v.Status != domain.VehicleActive {
		t.Errorf("vehicle = %+v", v)
	}
}
