package service

import (
	"context"
	"time"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/payments"
)

// ---------- Mocks ----------

type mockBookingRepo struct {
	bookings  map[string]*domain.Booking
	conflicts int
	createErr error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]*domain.Booking)}
}

func (m *mockBookingRepo) put(b *domain.Booking) {
	cp := *b
	m.bookings[b.ID] = &cp
}

func (m *mockBookingRepo) Create(_ context.Context, b *domain.Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.put(b)
	return nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingRepo) GetByIDWithToken(_ context.Context, id, token string) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok || b.ManageToken != token {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingRepo) List(_ context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if status == nil || b.Status == *status {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBookingRepo) Count(_ context.Context, status *domain.BookingStatus) (int, error) {
	n := 0
	for _, b := range m.bookings {
		if status == nil || b.Status == *status {
			n++
		}
	}
	return n, nil
}

func (m *mockBookingRepo) ListByUserID(_ context.Context, userID string, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.UserID != nil && *b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBookingRepo) UpdateTransition(_ context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	stored, ok := m.bookings[b.ID]
	if !ok || stored.Status != expected {
		return domain.NewConflictError("booking %s changed concurrently", b.ID)
	}
	m.put(b)
	return nil
}

func (m *mockBookingRepo) CountVehicleConflicts(context.Context, string, time.Time, time.Time) (int, error) {
	return m.conflicts, nil
}

func (m *mockBookingRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := m.bookings[id]; !ok {
		return false, nil
	}
	delete(m.bookings, id)
	return true, nil
}

type mockPaymentRepo struct {
	requests map[string]*domain.PaymentRequest
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{requests: make(map[string]*domain.PaymentRequest)}
}

func (m *mockPaymentRepo) put(p *domain.PaymentRequest) {
	cp := *p
	m.requests[p.ID] = &cp
}

func (m *mockPaymentRepo) CreatePending(_ context.Context, p *domain.PaymentRequest) error {
	for _, existing := range m.requests {
		if existing.BookingID == p.BookingID && existing.Status == domain.RequestPending {
			return domain.NewConflictError("booking %s already has a pending payment request", p.BookingID)
		}
	}
	m.put(p)
	return nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id string) (*domain.PaymentRequest, error) {
	p, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepo) GetPendingByBookingID(_ context.Context, bookingID string) (*domain.PaymentRequest, error) {
	for _, p := range m.requests {
		if p.BookingID == bookingID && p.Status == domain.RequestPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) CountByBookingID(_ context.Context, bookingID string) (int, error) {
	n := 0
	for _, p := range m.requests {
		if p.BookingID == bookingID {
			n++
		}
	}
	return n, nil
}

func (m *mockPaymentRepo) MarkPaid(_ context.Context, id, paymentID string, now time.Time) (bool, error) {
	p, ok := m.requests[id]
	if !ok || p.Status != domain.RequestPending {
		return false, nil
	}
	p.Status = domain.RequestPaid
	p.PaymentID = &paymentID
	p.PaidAt = &now
	return true, nil
}

func (m *mockPaymentRepo) MarkExpired(_ context.Context, id string) (bool, error) {
	p, ok := m.requests[id]
	if !ok || p.Status != domain.RequestPending {
		return false, nil
	}
	p.Status = domain.RequestExpired
	return true, nil
}

func (m *mockPaymentRepo) MarkCancelled(_ context.Context, id, reason string, now time.Time) (bool, error) {
	p, ok := m.requests[id]
	if !ok || p.Status != domain.RequestPending {
		return false, nil
	}
	p.Status = domain.RequestCancelled
	p.CancellationReason = reason
	p.CancelledAt = &now
	return true, nil
}

func (m *mockPaymentRepo) MarkRefundDue(_ context.Context, id, reason string, now time.Time) (bool, error) {
	p, ok := m.requests[id]
	if !ok || p.Status != domain.RequestPaid {
		return false, nil
	}
	p.Status = domain.RequestRefundDue
	p.CancellationReason = reason
	p.CancelledAt = &now
	return true, nil
}

func (m *mockPaymentRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]domain.PaymentRequest, error) {
	var out []domain.PaymentRequest
	for _, p := range m.requests {
		if p.Status == domain.RequestPending && p.Expired(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockVehicleRepo struct {
	vehicles   map[string]*domain.Vehicle
	blockAdded bool
	blockOK    bool
}

func newMockVehicleRepo() *mockVehicleRepo {
	return &mockVehicleRepo{vehicles: make(map[string]*domain.Vehicle), blockOK: true}
}

func (m *mockVehicleRepo) Create(_ context.Context, v *domain.Vehicle) error {
	cp := *v
	m.vehicles[v.ID] = &cp
	return nil
}

func (m *mockVehicleRepo) GetByID(_ context.Context, id string) (*domain.Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *mockVehicleRepo) List(context.Context, int, int) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	for _, v := range m.vehicles {
		out = append(out, *v)
	}
	return out, nil
}

func (m *mockVehicleRepo) AddAvailabilityBlock(_ context.Context, vehicleID string, block domain.AvailabilityBlock) (bool, error) {
	if !m.blockOK {
		return false, nil
	}
	m.blockAdded = true
	if v, ok := m.vehicles[vehicleID]; ok {
		v.Availability = append(v.Availability, block)
	}
	return true, nil
}

type mockAssignmentRepo struct {
	assignments map[string]*domain.DriverAssignment
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{assignments: make(map[string]*domain.DriverAssignment)}
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *domain.DriverAssignment) error {
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*domain.DriverAssignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockAssignmentRepo) GetByBookingID(_ context.Context, bookingID string) (*domain.DriverAssignment, error) {
	for _, a := range m.assignments {
		if a.BookingID == bookingID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAssignmentRepo) ListByDriverID(_ context.Context, driverID string, limit, offset int) ([]domain.DriverAssignment, error) {
	var out []domain.DriverAssignment
	for _, a := range m.assignments {
		if a.DriverID == driverID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) AdvanceStatus(_ context.Context, id, driverID string, from, to domain.AssignmentStatus, now time.Time) (bool, error) {
	a, ok := m.assignments[id]
	if !ok || a.DriverID != driverID || a.Status != from {
		return false, nil
	}
	a.Status = to
	a.UpdatedAt = now
	return true, nil
}

type mockPackageRepo struct {
	packages  map[string]*domain.Package
	increment int
}

func newMockPackageRepo() *mockPackageRepo {
	return &mockPackageRepo{packages: make(map[string]*domain.Package)}
}

func (m *mockPackageRepo) GetByID(_ context.Context, id string) (*domain.Package, error) {
	p, ok := m.packages[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPackageRepo) GetBySlug(_ context.Context, slug string) (*domain.Package, error) {
	for _, p := range m.packages {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockPackageRepo) ListActive(context.Context, string, int, int) ([]domain.Package, error) {
	var out []domain.Package
	for _, p := range m.packages {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPackageRepo) IncrementBookingCount(_ context.Context, id string) error {
	m.increment++
	return nil
}

type mockBus struct {
	published []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.published = append(m.published, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

func (m *mockBus) has(subject string) bool {
	for _, s := range m.published {
		if s == subject {
			return true
		}
	}
	return false
}

type mockProvider struct {
	calls int
	fail  bool
}

func (m *mockProvider) CreateCharge(context.Context, *domain.PaymentRequest, string) (*payments.ChargeDetails, error) {
	m.calls++
	if m.fail {
		return nil, context.DeadlineExceeded
	}
	return &payments.ChargeDetails{QR: "data:image/png;base64,qr", Link: "upi://pay?pa=test"}, nil
}
