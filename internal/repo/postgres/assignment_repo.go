package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malabartours/bookings/internal/domain"
)

type AssignmentRepo interface {
	Create(ctx context.Context, a *domain.DriverAssignment) error
	GetByID(ctx context.Context, id string) (*domain.DriverAssignment, error)
	GetByBookingID(ctx context.Context, bookingID string) (*domain.DriverAssignment, error)
	ListByDriverID(ctx context.Context, driverID string, limit, offset int) ([]domain.DriverAssignment, error)
	// AdvanceStatus applies the assignment step as a conditional write keyed
	// on the prior status and the owning driver.
	AdvanceStatus(ctx context.Context, id, driverID string, from, to domain.AssignmentStatus, now time.Time) (bool, error)
}

type assignmentRepo struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) AssignmentRepo {
	return &assignmentRepo{pool: pool}
}

const assignmentCols = `id, booking_id, driver_id, vehicle_id, status,
pickup_location, drop_location, start_date_time, return_date_time, passenger_info,
created_at, updated_at`

func scanAssignment(row rowScanner) (*domain.DriverAssignment, error) {
	var (
		a             domain.DriverAssignment
		passengerInfo []byte
	)
	err := row.Scan(
		&a.ID, &a.BookingID, &a.DriverID, &a.VehicleID, &a.Status,
		&a.PickupLocation, &a.DropLocation, &a.StartDateTime, &a.ReturnDateTime, &passengerInfo,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(passengerInfo) > 0 {
		if err := json.Unmarshal(passengerInfo, &a.PassengerInfo); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func (r *assignmentRepo) Create(ctx context.Context, a *domain.DriverAssignment) error {
	const q = `INSERT INTO driver_assignments (
		id, booking_id, driver_id, vehicle_id, status,
		pickup_location, drop_location, start_date_time, return_date_time, passenger_info,
		created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	passengerInfo, err := json.Marshal(a.PassengerInfo)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err = r.pool.Exec(ctx, q,
		a.ID, a.BookingID, a.DriverID, a.VehicleID, a.Status,
		a.PickupLocation, a.DropLocation, a.StartDateTime, a.ReturnDateTime, passengerInfo,
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*domain.DriverAssignment, error) {
	const q = `SELECT ` + assignmentCols + ` FROM driver_assignments WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAssignment(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *assignmentRepo) GetByBookingID(ctx context.Context, bookingID string) (*domain.DriverAssignment, error) {
	const q = `SELECT ` + assignmentCols + ` FROM driver_assignments WHERE booking_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAssignment(r.pool.QueryRow(ctx, q, bookingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *assignmentRepo) ListByDriverID(ctx context.Context, driverID string, limit, offset int) ([]domain.DriverAssignment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + assignmentCols + ` FROM driver_assignments
		WHERE driver_id=$1 ORDER BY start_date_time LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, driverID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []domain.DriverAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func (r *assignmentRepo) AdvanceStatus(ctx context.Context, id, driverID string, from, to domain.AssignmentStatus, now time.Time) (bool, error) {
	const q = `UPDATE driver_assignments SET status=$4, updated_at=$5
		WHERE id=$1 AND driver_id=$2 AND status=$3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, driverID, from, to, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
