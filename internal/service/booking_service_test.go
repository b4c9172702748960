package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/pkg/config"
	"github.com/malabartours/bookings/pkg/events"
)

func testConfig() *config.Config {
	return &config.Config{
		Booking: config.BookingConfig{
			Currency:                 "INR",
			DefaultCommissionPercent: 10,
			TaxPercent:               0,
			PaymentRequestTTL:        15 * time.Minute,
			MaxPaymentAttempts:       3,
			PaymentExpirySweep:       time.Minute,
		},
	}
}

type bookingFixture struct {
	svc      BookingService
	bookings *mockBookingRepo
	packages *mockPackageRepo
	vehicles *mockVehicleRepo
	payments *mockPaymentRepo
	bus      *mockBus
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		bookings: newMockBookingRepo(),
		packages: newMockPackageRepo(),
		vehicles: newMockVehicleRepo(),
		payments: newMockPaymentRepo(),
		bus:      &mockBus{},
	}
	f.packages.packages["pkg-1"] = &domain.Package{
		ID:              "pkg-1",
		Slug:            "munnar-hills",
		BasePricePerPax: 15000,
		MinPax:          1,
		MaxPax:          6,
		IsActive:        true,
	}
	f.svc = NewBookingService(f.bookings, f.packages, f.vehicles, f.payments, f.bus, testConfig())
	return f
}

func guestCreateRequest() *domain.CreateBookingRequest {
	start := time.Now().UTC().AddDate(0, 0, 7)
	return &domain.CreateBookingRequest{
		PackageID:      "pkg-1",
		GuestInfo:      &domain.GuestInfo{Name: "Asha", Email: "asha@example.com", Phone: "+911234567890"},
		PickupLocation: "Kochi",
		DropLocation:   "Munnar",
		StartDateTime:  start,
		ReturnDateTime: start.AddDate(0, 0, 2),
		PaxCount:       2,
	}
}

func TestCreateBooking(t *testing.T) {
	f := newBookingFixture()

	b, err := f.svc.Create(context.Background(), guestCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != domain.StatusPendingApproval {
		t.Errorf("status = %s", b.Status)
	}
	if b.ManageToken == "" {
		t.Error("guest booking must carry a manage token")
	}
	if b.UserVisibleAmount != 30000 || b.CommissionAmount != 3000 || b.TotalAmount != 33000 {
		t.Errorf("pricing = %d/%d/%d", b.UserVisibleAmount, b.CommissionAmount, b.TotalAmount)
	}
	if len(b.AuditLogs) != 1 || b.AuditLogs[0].Action != "booking.created" {
		t.Errorf("audit = %+v", b.AuditLogs)
	}
	if f.packages.increment != 1 {
		t.Errorf("package booking count bumped %d times", f.packages.increment)
	}
	if !f.bus.has(events.BookingCreated) {
		t.Error("booking.created not published")
	}
}

func TestCreateBookingPaxOutOfRange(t *testing.T) {
	f := newBookingFixture()
	req := guestCreateRequest()
	req.PaxCount = 10

	_, err := f.svc.Create(context.Background(), req)
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateBookingUnknownPackage(t *testing.T) {
	f := newBookingFixture()
	req := guestCreateRequest()
	req.PackageID = "pkg-missing"

	_, err := f.svc.Create(context.Background(), req)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestApproveBooking(t *testing.T) {
	f := newBookingFixture()
	b, err := f.svc.Create(context.Background(), guestCreateRequest())
	if err != nil {
		t.Fatal(err)
	}
	f.vehicles.vehicles["veh-1"] = &domain.Vehicle{ID: "veh-1", Status: domain.VehicleActive}

	vehicleID := "veh-1"
	approved, err := f.svc.Approve(context.Background(), b.ID, "admin-1", &domain.ApproveBookingRequest{VehicleID: &vehicleID})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.StatusApprovedPendingPayment {
		t.Errorf("status = %s", approved.Status)
	}
	if !f.bus.has(events.BookingApproved) {
		t.Error("booking.approved not published")
	}

	// Replaying the decision is a no-op, not a conflict.
	again, err := f.svc.Approve(context.Background(), b.ID, "admin-1", &domain.ApproveBookingRequest{})
	if err != nil {
		t.Fatalf("replay approve: %v", err)
	}
	if len(again.AuditLogs) != len(approved.AuditLogs) {
		t.Error("replay appended audit entries")
	}
}

func TestApproveBlockedVehicleConflicts(t *testing.T) {
	f := newBookingFixture()
	b, err := f.svc.Create(context.Background(), guestCreateRequest())
	if err != nil {
		t.Fatal(err)
	}
	f.vehicles.vehicles["veh-1"] = &domain.Vehicle{
		ID:     "veh-1",
		Status: domain.VehicleActive,
		Availability: []domain.AvailabilityBlock{
			{StartDate: b.StartDateTime.AddDate(0, 0, -1), EndDate: b.ReturnDateTime.AddDate(0, 0, 1)},
		},
	}

	vehicleID := "veh-1"
	_, err = f.svc.Approve(context.Background(), b.ID, "admin-1", &domain.ApproveBookingRequest{VehicleID: &vehicleID})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestApproveVehicleWithInFlightBookingConflicts(t *testing.T) {
	f := newBookingFixture()
	b, err := f.svc.Create(context.Background(), guestCreateRequest())
	if err != nil {
		t.Fatal(err)
	}
	f.vehicles.vehicles["veh-1"] = &domain.Vehicle{ID: "veh-1", Status: domain.VehicleActive}
	f.bookings.conflicts = 1

	vehicleID := "veh-1"
	_, err = f.svc.Approve(context.Background(), b.ID, "admin-1", &domain.ApproveBookingRequest{VehicleID: &vehicleID})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestRejectAfterApproveConflicts(t *testing.T) {
	f := newBookingFixture()
	b, err := f.svc.Create(context.Background(), guestCreateRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Approve(context.Background(), b.ID, "admin-1", &domain.ApproveBookingRequest{}); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Reject(context.Background(), b.ID, "admin-2", "changed my mind")
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestCancelRetiresPendingPaymentRequest(t *testing.T) {
	f := newBookingFixture()
	b, err := f.svc.Create(context.Background(), guestCreateRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Approve(context.Background(), b.ID, "admin-1", &domain.ApproveBookingRequest{}); err != nil {
		t.Fatal(err)
	}

	// Simulate an issued payment request.
	stored, _ := f.bookings.GetByID(context.Background(), b.ID)
	if err := stored.MarkPaymentRequested("admin-1", "pr-1", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	f.bookings.put(stored)
	f.payments.put(&domain.PaymentRequest{ID: "pr-1", BookingID: b.ID, Status: domain.RequestPending})

	cancelled, err := f.svc.Cancel(context.Background(), b.ID, "admin-1", "guest asked")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("status = %s", cancelled.Status)
	}
	if f.payments.requests["pr-1"].Status != domain.RequestCancelled {
		t.Errorf("payment request status = %s, want cancelled", f.payments.requests["pr-1"].Status)
	}
	if !f.bus.has(events.BookingCancelled) {
		t.Error("booking.cancelled not published")
	}
}

func TestHardDelete(t *testing.T) {
	f := newBookingFixture()
	b, err := f.svc.Create(context.Background(), guestCreateRequest())
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.HardDelete(context.Background(), b.ID, "root-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var notFound *domain.NotFoundError
	if err := f.svc.HardDelete(context.Background(), b.ID, "root-1"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError on second delete, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	f := newBookingFixture()
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(context.Background(), guestCreateRequest()); err != nil {
			t.Fatal(err)
		}
	}

	_, pagination, err := f.svc.List(context.Background(), nil, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if pagination.Total != 3 || pagination.Pages != 2 {
		t.Errorf("pagination = %+v", pagination)
	}
}
