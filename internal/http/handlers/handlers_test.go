package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/http/handlers"
	"github.com/malabartours/bookings/internal/http/middleware"
	"github.com/malabartours/bookings/internal/service"
	"github.com/malabartours/bookings/pkg/auth"
)

const testSecret = "test-secret"

// ---------- Mocks ----------

type mockBookingService struct {
	bookings map[string]*domain.Booking
	nextID   int
}

func newMockBookingService() *mockBookingService {
	return &mockBookingService{bookings: make(map[string]*domain.Booking)}
}

func (m *mockBookingService) Create(_ context.Context, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	if err := req.Validate(time.Now().UTC().Add(-time.Minute)); err != nil {
		return nil, err
	}
	m.nextID++
	b := &domain.Booking{
		ID:             fmt.Sprintf("b-%d", m.nextID),
		UserID:         req.UserID,
		GuestInfo:      req.GuestInfo,
		PackageID:      req.PackageID,
		StartDateTime:  req.StartDateTime,
		ReturnDateTime: req.ReturnDateTime,
		PaxCount:       req.PaxCount,
		Status:         domain.StatusPendingApproval,
		ApprovalStatus: domain.ApprovalPending,
		PaymentStatus:  domain.PaymentPending,
	}
	if req.GuestInfo != nil {
		b.ManageToken = "token-" + b.ID
	}
	m.bookings[b.ID] = b
	return b, nil
}

func (m *mockBookingService) Get(_ context.Context, id string) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id)
	}
	return b, nil
}

func (m *mockBookingService) GetWithToken(_ context.Context, id, token string) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok || b.ManageToken != token {
		return nil, domain.NewNotFoundError("booking", id)
	}
	return b, nil
}

func (m *mockBookingService) List(_ context.Context, status *domain.BookingStatus, page, limit int) ([]domain.Booking, *service.Pagination, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if status == nil || b.Status == *status {
			out = append(out, *b)
		}
	}
	return out, &service.Pagination{Page: 1, Limit: 20, Total: len(out), Pages: 1}, nil
}

func (m *mockBookingService) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.UserID != nil && *b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBookingService) Approve(_ context.Context, id, actorID string, req *domain.ApproveBookingRequest) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id)
	}
	if b.Status == domain.StatusApprovedPendingPayment {
		return b, nil
	}
	if err := b.Approve(actorID, req.VehicleID, req.CommissionPercent, req.Note, time.Now().UTC()); err != nil {
		return nil, err
	}
	return b, nil
}

func (m *mockBookingService) Reject(_ context.Context, id, actorID, reason string) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id)
	}
	if err := b.Reject(actorID, reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	return b, nil
}

func (m *mockBookingService) Cancel(_ context.Context, id, actorID, reason string) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id)
	}
	if err := b.Cancel(actorID, reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	return b, nil
}

func (m *mockBookingService) HardDelete(_ context.Context, id, actorID string) error {
	if _, ok := m.bookings[id]; !ok {
		return domain.NewNotFoundError("booking", id)
	}
	delete(m.bookings, id)
	return nil
}

type mockPaymentService struct {
	issued *domain.PaymentRequest
}

func (m *mockPaymentService) IssueRequest(_ context.Context, bookingID, actorID string, method domain.PaymentMethod) (*domain.PaymentRequest, error) {
	m.issued = &domain.PaymentRequest{
		ID:        "pr-1",
		BookingID: bookingID,
		Method:    method,
		Amount:    33000,
		Currency:  "INR",
		Status:    domain.RequestPending,
	}
	return m.issued, nil
}

func (m *mockPaymentService) HandleCallback(_ context.Context, cb *domain.PaymentCallback) (*domain.Booking, error) {
	if err := cb.Validate(); err != nil {
		return nil, err
	}
	if m.issued == nil || cb.PaymentRequestID != m.issued.ID {
		return nil, domain.NewNotFoundError("payment request", cb.PaymentRequestID)
	}
	return &domain.Booking{ID: m.issued.BookingID, Status: domain.StatusConfirmed}, nil
}

func (m *mockPaymentService) ExpireOverdue(context.Context, time.Time) (int, error) { return 0, nil }
func (m *mockPaymentService) RunExpirySweeper(context.Context)                      {}

// ---------- Helpers ----------

func bearer(t *testing.T, sub, role string) string {
	t.Helper()
	token, err := auth.NewAccessToken(sub, sub+"@example.com", role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func createPayload() map[string]any {
	start := time.Now().UTC().AddDate(0, 0, 7)
	return map[string]any{
		"package_id": "pkg-1",
		"guest_info": map[string]any{
			"name":  "Asha",
			"email": "asha@example.com",
			"phone": "+911234567890",
		},
		"pickup_location":  "Kochi",
		"drop_location":    "Munnar",
		"start_date_time":  start.Format(time.RFC3339),
		"return_date_time": start.AddDate(0, 0, 2).Format(time.RFC3339),
		"pax_count":        2,
	}
}

func doJSON(t *testing.T, router chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ---------- Public booking widget ----------

func TestCreateBookingEndpoint(t *testing.T) {
	svc := newMockBookingService()
	router := handlers.NewBookingHandler(svc).Routes()

	rec := doJSON(t, router, http.MethodPost, "/", "", createPayload())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out domain.Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.StatusPendingApproval {
		t.Errorf("status = %s", out.Status)
	}
	if out.ManageToken == "" {
		t.Error("guest response must include manage_token")
	}
}

func TestCreateBookingInvalidBody(t *testing.T) {
	router := handlers.NewBookingHandler(newMockBookingService()).Routes()

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCreateBookingValidationErrors(t *testing.T) {
	router := handlers.NewBookingHandler(newMockBookingService()).Routes()

	payload := createPayload()
	delete(payload, "guest_info")
	payload["pax_count"] = 0

	rec := doJSON(t, router, http.MethodPost, "/", "", payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Code    string   `json:"code"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Code != "INVALID_INPUT" || len(out.Details) < 2 {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetBookingWithManageToken(t *testing.T) {
	svc := newMockBookingService()
	router := handlers.NewBookingHandler(svc).Routes()

	rec := doJSON(t, router, http.MethodPost, "/", "", createPayload())
	var created domain.Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, router, http.MethodGet, "/"+created.ID+"?manage_token="+created.ManageToken, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/"+created.ID+"?manage_token=wrong", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("wrong token status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/"+created.ID, "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d", rec.Code)
	}
}

// publicRouter mounts the widget the way main.go does, with optional claims.
func publicRouter(svc *mockBookingService) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.OptionalJWT(testSecret))
	r.Mount("/", handlers.NewBookingHandler(svc).Routes())
	return r
}

func TestCreateBookingAnonymousUserIDRejected(t *testing.T) {
	svc := newMockBookingService()
	router := publicRouter(svc)

	payload := createPayload()
	delete(payload, "guest_info")
	payload["user_id"] = "victim-user-1"

	rec := doJSON(t, router, http.MethodPost, "/", "", payload)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(svc.bookings) != 0 {
		t.Errorf("booking was created for an unauthenticated caller")
	}
}

func TestCreateBookingBearerOverridesBodyIdentity(t *testing.T) {
	svc := newMockBookingService()
	router := publicRouter(svc)

	payload := createPayload()
	payload["user_id"] = "victim-user-1"

	rec := doJSON(t, router, http.MethodPost, "/", bearer(t, "user-7", "user"), payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out domain.Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.UserID == nil || *out.UserID != "user-7" {
		t.Errorf("user_id = %v, want the token subject", out.UserID)
	}
	if out.GuestInfo != nil {
		t.Error("guest info must be dropped for an authenticated caller")
	}
}

func TestCreateBookingBadBearerRejected(t *testing.T) {
	router := publicRouter(newMockBookingService())

	rec := doJSON(t, router, http.MethodPost, "/", "Bearer not-a-token", createPayload())
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

// ---------- Admin console ----------

func adminRouter(svc *mockBookingService, pay *mockPaymentService) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireJWT(testSecret, "admin"))
	r.Mount("/", handlers.NewAdminBookingHandler(svc, pay).Routes())
	return r
}

func TestApproveEndpoint(t *testing.T) {
	svc := newMockBookingService()
	b, _ := svc.Create(context.Background(), guestReq())
	router := adminRouter(svc, &mockPaymentService{})

	rec := doJSON(t, router, http.MethodPost, "/"+b.ID+"/approve", bearer(t, "admin-1", "admin"), map[string]any{"note": "ok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out domain.Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.StatusApprovedPendingPayment {
		t.Errorf("status = %s", out.Status)
	}
}

func TestApproveWithoutTokenUnauthorized(t *testing.T) {
	router := adminRouter(newMockBookingService(), &mockPaymentService{})

	rec := doJSON(t, router, http.MethodPost, "/b-1/approve", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestApproveWrongRoleForbidden(t *testing.T) {
	router := adminRouter(newMockBookingService(), &mockPaymentService{})

	rec := doJSON(t, router, http.MethodPost, "/b-1/approve", bearer(t, "driver-1", "driver"), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc := newMockBookingService()
	b, _ := svc.Create(context.Background(), guestReq())
	router := adminRouter(svc, &mockPaymentService{})

	rec := doJSON(t, router, http.MethodPost, "/"+b.ID+"/reject", bearer(t, "admin-1", "admin"), map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRejectDecidedBookingConflicts(t *testing.T) {
	svc := newMockBookingService()
	b, _ := svc.Create(context.Background(), guestReq())
	router := adminRouter(svc, &mockPaymentService{})
	token := bearer(t, "admin-1", "admin")

	if rec := doJSON(t, router, http.MethodPost, "/"+b.ID+"/approve", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d", rec.Code)
	}
	rec := doJSON(t, router, http.MethodPost, "/"+b.ID+"/reject", token, map[string]any{"reason": "changed mind"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestPaymentRequestEndpoint(t *testing.T) {
	svc := newMockBookingService()
	b, _ := svc.Create(context.Background(), guestReq())
	pay := &mockPaymentService{}
	router := adminRouter(svc, pay)

	rec := doJSON(t, router, http.MethodPost, "/"+b.ID+"/payment-request", bearer(t, "admin-1", "admin"), map[string]any{"method": "upi"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/"+b.ID+"/payment-request", bearer(t, "admin-1", "admin"), map[string]any{"method": "cheque"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad method status = %d", rec.Code)
	}
}

func TestHardDeleteRequiresSuperAdmin(t *testing.T) {
	svc := newMockBookingService()
	b, _ := svc.Create(context.Background(), guestReq())
	router := adminRouter(svc, &mockPaymentService{})

	rec := doJSON(t, router, http.MethodDelete, "/"+b.ID, bearer(t, "admin-1", "admin"), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin delete status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/"+b.ID, bearer(t, "root-1", "super_admin"), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("super_admin delete status = %d", rec.Code)
	}
}

// ---------- Payment callback ----------

func TestPaymentCallbackEndpoint(t *testing.T) {
	pay := &mockPaymentService{}
	if _, err := pay.IssueRequest(context.Background(), "b-1", "admin-1", domain.MethodUPI); err != nil {
		t.Fatal(err)
	}
	router := handlers.NewPaymentHandler(pay).Routes()

	rec := doJSON(t, router, http.MethodPost, "/callback", "", map[string]any{
		"payment_request_id": "pr-1",
		"payment_id":         "pay_1",
		"amount":             33000,
		"status":             "paid",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/callback", "", map[string]any{
		"payment_request_id": "pr-1",
		"status":             "refunded",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status code = %d", rec.Code)
	}
}

func guestReq() *domain.CreateBookingRequest {
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
