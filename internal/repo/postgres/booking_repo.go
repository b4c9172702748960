package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malabartours/bookings/internal/domain"
)

type BookingRepo interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByIDWithToken(ctx context.Context, id, token string) (*domain.Booking, error)
	List(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	Count(ctx context.Context, status *domain.BookingStatus) (int, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.Booking, error)
	// UpdateTransition persists a state transition as a single conditional
	// write keyed on the status the caller read. Zero matched rows means a
	// concurrent writer won and is surfaced as a ConflictError.
	UpdateTransition(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error
	CountVehicleConflicts(ctx context.Context, vehicleID string, start, end time.Time) (int, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type bookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) BookingRepo {
	return &bookingRepo{pool: pool}
}

const bookingCols = `id, user_id, guest_info, manage_token, package_id, vehicle_id,
pickup_location, drop_location, start_date_time, return_date_time, pax_count,
base_amount, taxes, user_visible_amount, commission_percent, commission_amount, total_amount,
status, approval_status, payment_status,
approved_by, approved_at, approval_note,
payment_request_id, payment_requested_at, payment_confirmed_at,
cancellation_reason, cancelled_at, completed_at,
special_requests, rating, review, audit_logs,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b         domain.Booking
		guestInfo []byte
		auditLogs []byte
	)
	err := row.Scan(
		&b.ID, &b.UserID, &guestInfo, &b.ManageToken, &b.PackageID, &b.VehicleID,
		&b.PickupLocation, &b.DropLocation, &b.StartDateTime, &b.ReturnDateTime, &b.PaxCount,
		&b.BaseAmount, &b.Taxes, &b.UserVisibleAmount, &b.CommissionPercent, &b.CommissionAmount, &b.TotalAmount,
		&b.Status, &b.ApprovalStatus, &b.PaymentStatus,
		&b.ApprovedBy, &b.ApprovedAt, &b.ApprovalNote,
		&b.PaymentRequestID, &b.PaymentRequestedAt, &b.PaymentConfirmedAt,
		&b.CancellationReason, &b.CancelledAt, &b.CompletedAt,
		&b.SpecialRequests, &b.Rating, &b.Review, &auditLogs,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(guestInfo) > 0 {
		if err := json.Unmarshal(guestInfo, &b.GuestInfo); err != nil {
			return nil, err
		}
	}
	if len(auditLogs) > 0 {
		if err := json.Unmarshal(auditLogs, &b.AuditLogs); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

func (r *bookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const q = `INSERT INTO bookings (
		id, user_id, guest_info, manage_token, package_id, vehicle_id,
		pickup_location, drop_location, start_date_time, return_date_time, pax_count,
		base_amount, taxes, user_visible_amount, commission_percent, commission_amount, total_amount,
		status, approval_status, payment_status,
		special_requests, audit_logs, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`

	guestInfo, err := marshalNullable(b.GuestInfo)
	if err != nil {
		return err
	}
	auditLogs, err := json.Marshal(b.AuditLogs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err = r.pool.Exec(ctx, q,
		b.ID, b.UserID, guestInfo, b.ManageToken, b.PackageID, b.VehicleID,
		b.PickupLocation, b.DropLocation, b.StartDateTime, b.ReturnDateTime, b.PaxCount,
		b.BaseAmount, b.Taxes, b.UserVisibleAmount, b.CommissionPercent, b.CommissionAmount, b.TotalAmount,
		b.Status, b.ApprovalStatus, b.PaymentStatus,
		b.SpecialRequests, auditLogs, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepo) GetByIDWithToken(ctx context.Context, id, token string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1 AND manage_token=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, token))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepo) List(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingCols + ` FROM bookings`
	args := []any{}
	if status != nil {
		q += ` WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *status, limit, offset)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepo) Count(ctx context.Context, status *domain.BookingStatus) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	var err error
	if status != nil {
		err = r.pool.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE status=$1`, *status).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT count(*) FROM bookings`).Scan(&count)
	}
	return count, err
}

func (r *bookingRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepo) UpdateTransition(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	const q = `UPDATE bookings SET
		vehicle_id=$3, commission_percent=$4, commission_amount=$5, total_amount=$6,
		status=$7, approval_status=$8, payment_status=$9,
		approved_by=$10, approved_at=$11, approval_note=$12,
		payment_request_id=$13, payment_requested_at=$14, payment_confirmed_at=$15,
		cancellation_reason=$16, cancelled_at=$17, completed_at=$18,
		audit_logs=$19, updated_at=$20
	WHERE id=$1 AND status=$2`

	auditLogs, err := json.Marshal(b.AuditLogs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q,
		b.ID, expected,
		b.VehicleID, b.CommissionPercent, b.CommissionAmount, b.TotalAmount,
		b.Status, b.ApprovalStatus, b.PaymentStatus,
		b.ApprovedBy, b.ApprovedAt, b.ApprovalNote,
		b.PaymentRequestID, b.PaymentRequestedAt, b.PaymentConfirmedAt,
		b.CancellationReason, b.CancelledAt, b.CompletedAt,
		auditLogs, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NewConflictError("booking %s is no longer %s", b.ID, expected)
	}
	return nil
}

// CountVehicleConflicts counts paid-for bookings holding the vehicle during
// the window. Used by the availability gate before assigning a vehicle or
// accepting a new block.
func (r *bookingRepo) CountVehicleConflicts(ctx context.Context, vehicleID string, start, end time.Time) (int, error) {
	const q = `SELECT count(*) FROM bookings
		WHERE vehicle_id=$1
		  AND status IN ('approved_pending_payment','payment_pending','confirmed','ongoing')
		  AND start_date_time <= $3 AND return_date_time >= $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, q, vehicleID, start, end).Scan(&count)
	return count, err
}

func (r *bookingRepo) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *domain.GuestInfo:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
