package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malabartours/bookings/internal/domain"
)

type VehicleRepo interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
	List(ctx context.Context, limit, offset int) ([]domain.Vehicle, error)
	// AddAvailabilityBlock inserts a block unless an existing block for the
	// vehicle overlaps it. Zero matched rows means overlap.
	AddAvailabilityBlock(ctx context.Context, vehicleID string, block domain.AvailabilityBlock) (bool, error)
}

type vehicleRepo struct {
	pool *pgxpool.Pool
}

func NewVehicleRepo(pool *pgxpool.Pool) VehicleRepo {
	return &vehicleRepo{pool: pool}
}

const vehicleCols = `id, type, capacity, luggage_capacity, ac, reg_no, status, assigned_driver_id, created_at, updated_at`

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID, &v.Type, &v.Capacity, &v.LuggageCapacity, &v.AC, &v.RegNo, &v.Status,
		&v.AssignedDriverID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error {
	const q = `INSERT INTO vehicles (
		id, type, capacity, luggage_capacity, ac, reg_no, status, assigned_driver_id, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		v.ID, v.Type, v.Capacity, v.LuggageCapacity, v.AC, v.RegNo, v.Status,
		v.AssignedDriverID, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

func (r *vehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	const q = `SELECT ` + vehicleCols + ` FROM vehicles WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	v, err := scanVehicle(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	blocks, err := r.listBlocks(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Availability = blocks
	return v, nil
}

func (r *vehicleRepo) listBlocks(ctx context.Context, vehicleID string) ([]domain.AvailabilityBlock, error) {
	const q = `SELECT id, start_date, end_date, reason, blocked_by, blocked_at
		FROM vehicle_availability WHERE vehicle_id=$1 ORDER BY start_date`

	rows, err := r.pool.Query(ctx, q, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []domain.AvailabilityBlock
	for rows.Next() {
		var b domain.AvailabilityBlock
		if err := rows.Scan(&b.ID, &b.StartDate, &b.EndDate, &b.Reason, &b.BlockedBy, &b.BlockedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (r *vehicleRepo) List(ctx context.Context, limit, offset int) ([]domain.Vehicle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + vehicleCols + ` FROM vehicles ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepo) AddAvailabilityBlock(ctx context.Context, vehicleID string, block domain.AvailabilityBlock) (bool, error) {
	// Guarded insert: overlap against existing blocks is decided by the
	// database in the same statement, so two concurrent block requests
	// cannot both land.
	const q = `INSERT INTO vehicle_availability (id, vehicle_id, start_date, end_date, reason, blocked_by, blocked_at)
	SELECT $1,$2,$3,$4,$5,$6,$7
	WHERE NOT EXISTS (
		SELECT 1 FROM vehicle_availability
		WHERE vehicle_id=$2 AND start_date <= $4 AND end_date >= $3
	)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q,
		block.ID, vehicleID, block.StartDate, block.EndDate, block.Reason, block.BlockedBy, block.BlockedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
