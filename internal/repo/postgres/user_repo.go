package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malabartours/bookings/internal/domain"
)

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepo {
	return &userRepo{pool: pool}
}

const userCols = `id, name, email, phone, country, role, password_hash, is_active, last_login_at, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.Country, &u.Role, &u.PasswordHash,
		&u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	const q = `INSERT INTO users (id, name, email, phone, country, role, password_hash, is_active, created_at, updated_at)
		VALUES ($1,$2,lower($3),$4,$5,$6,$7,$8,$9,$10)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		u.ID, u.Name, u.Email, u.Phone, u.Country, u.Role, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at=$2, updated_at=$2 WHERE id=$1`, id, at)
	return err
}
