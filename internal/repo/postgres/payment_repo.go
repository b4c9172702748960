package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malabartours/bookings/internal/domain"
)

type PaymentRequestRepo interface {
	// CreatePending inserts a new pending request unless the booking already
	// has one. Returns a ConflictError on a second pending request.
	CreatePending(ctx context.Context, p *domain.PaymentRequest) error
	GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error)
	GetPendingByBookingID(ctx context.Context, bookingID string) (*domain.PaymentRequest, error)
	CountByBookingID(ctx context.Context, bookingID string) (int, error)
	MarkPaid(ctx context.Context, id, paymentID string, now time.Time) (bool, error)
	MarkExpired(ctx context.Context, id string) (bool, error)
	MarkCancelled(ctx context.Context, id, reason string, now time.Time) (bool, error)
	// MarkRefundDue flags a paid request whose booking never reached
	// confirmed, so an operator can refund the captured amount.
	MarkRefundDue(ctx context.Context, id, reason string, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.PaymentRequest, error)
}

type paymentRequestRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRequestRepo(pool *pgxpool.Pool) PaymentRequestRepo {
	return &paymentRequestRepo{pool: pool}
}

const paymentCols = `id, booking_id, method, qr, link, amount, currency, expires_at, status,
payment_id, paid_at, cancelled_at, cancellation_reason, attempt_count, last_attempt_at, created_at`

func scanPaymentRequest(row rowScanner) (*domain.PaymentRequest, error) {
	var p domain.PaymentRequest
	err := row.Scan(
		&p.ID, &p.BookingID, &p.Method, &p.QR, &p.Link, &p.Amount, &p.Currency, &p.ExpiresAt, &p.Status,
		&p.PaymentID, &p.PaidAt, &p.CancelledAt, &p.CancellationReason, &p.AttemptCount, &p.LastAttemptAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRequestRepo) CreatePending(ctx context.Context, p *domain.PaymentRequest) error {
	// Guarded insert keeps the at-most-one-pending-request-per-booking
	// invariant under concurrent issuance.
	const q = `INSERT INTO payment_requests (
		id, booking_id, method, qr, link, amount, currency, expires_at, status,
		attempt_count, last_attempt_at, created_at
	) SELECT $1,$2,$3,$4,$5,$6,$7,$8,'pending',$9,$10,$11
	WHERE NOT EXISTS (
		SELECT 1 FROM payment_requests WHERE booking_id=$2 AND status='pending'
	)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q,
		p.ID, p.BookingID, p.Method, p.QR, p.Link, p.Amount, p.Currency, p.ExpiresAt,
		p.AttemptCount, p.LastAttemptAt, p.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NewConflictError("booking %s already has a pending payment request", p.BookingID)
	}
	return nil
}

func (r *paymentRequestRepo) GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	const q = `SELECT ` + paymentCols + ` FROM payment_requests WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPaymentRequest(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *paymentRequestRepo) GetPendingByBookingID(ctx context.Context, bookingID string) (*domain.PaymentRequest, error) {
	const q = `SELECT ` + paymentCols + ` FROM payment_requests WHERE booking_id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPaymentRequest(r.pool.QueryRow(ctx, q, bookingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *paymentRequestRepo) CountByBookingID(ctx context.Context, bookingID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM payment_requests WHERE booking_id=$1`, bookingID).Scan(&count)
	return count, err
}

func (r *paymentRequestRepo) MarkPaid(ctx context.Context, id, paymentID string, now time.Time) (bool, error) {
	const q = `UPDATE payment_requests SET status='paid', payment_id=$2, paid_at=$3
		WHERE id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, paymentID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRequestRepo) MarkExpired(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE payment_requests SET status='expired' WHERE id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRequestRepo) MarkCancelled(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	const q = `UPDATE payment_requests SET status='cancelled', cancelled_at=$2, cancellation_reason=$3
		WHERE id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, now, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRequestRepo) MarkRefundDue(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	const q = `UPDATE payment_requests SET status='refund_due', cancelled_at=$2, cancellation_reason=$3
		WHERE id=$1 AND status='paid'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, now, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRequestRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.PaymentRequest, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT ` + paymentCols + ` FROM payment_requests
		WHERE status='pending' AND expires_at < $1 ORDER BY expires_at LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.PaymentRequest
	for rows.Next() {
		p, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *p)
	}
	return requests, rows.Err()
}
