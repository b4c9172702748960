package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malabartours/bookings/internal/domain"
)

type PackageRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Package, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Package, error)
	ListActive(ctx context.Context, region string, limit, offset int) ([]domain.Package, error)
	IncrementBookingCount(ctx context.Context, id string) error
}

type packageRepo struct {
	pool *pgxpool.Pool
}

func NewPackageRepo(pool *pgxpool.Pool) PackageRepo {
	return &packageRepo{pool: pool}
}

const packageCols = `id, title, slug, short_desc, long_desc, itinerary, min_pax, max_pax,
base_price_per_pax, region, tags, featured, commission_override, is_active, booking_count,
created_at, updated_at`

func scanPackage(row rowScanner) (*domain.Package, error) {
	var (
		p         domain.Package
		itinerary []byte
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.ShortDesc, &p.LongDesc, &itinerary, &p.MinPax, &p.MaxPax,
		&p.BasePricePerPax, &p.Region, &p.Tags, &p.Featured, &p.CommissionOverride, &p.IsActive, &p.BookingCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(itinerary) > 0 {
		if err := json.Unmarshal(itinerary, &p.Itinerary); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *packageRepo) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	const q = `SELECT ` + packageCols + ` FROM packages WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPackage(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *packageRepo) GetBySlug(ctx context.Context, slug string) (*domain.Package, error) {
	const q = `SELECT ` + packageCols + ` FROM packages WHERE slug=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPackage(r.pool.QueryRow(ctx, q, slug))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *packageRepo) ListActive(ctx context.Context, region string, limit, offset int) ([]domain.Package, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + packageCols + ` FROM packages WHERE is_active=true`
	args := []any{}
	if region != "" {
		q += ` AND region=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, region, limit, offset)
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

	var packages []domain.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *p)
	}
	return packages, rows.Err()
}

func (r *packageRepo) IncrementBookingCount(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, `UPDATE packages SET booking_count = booking_count + 1, updated_at=now() WHERE id=$1`, id)
	return err
}
