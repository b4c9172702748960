package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/repo/postgres"
	"github.com/malabartours/bookings/pkg/auth"
	"github.com/malabartours/bookings/pkg/config"
	"github.com/malabartours/bookings/pkg/logger"
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Country  string `json:"country,omitempty"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

type AuthService interface {
	Signup(ctx context.Context, req *SignupRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
}

type authService struct {
	users postgres.UserRepo
	cfg   *config.Config
	now   func() time.Time
}

func NewAuthService(users postgres.UserRepo, cfg *config.Config) AuthService {
	return &authService{users: users, cfg: cfg, now: time.Now}
}

func (s *authService) Signup(ctx context.Context, req *SignupRequest) (*AuthResult, error) {
	var errs []string
	if req.Name == "" {
		errs = append(errs, "name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		errs = append(errs, "email is invalid")
	}
	if len(req.Password) < 8 {
		errs = append(errs, "password must be at least 8 characters")
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationError(errs...)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewConflictError("an account with this email already exists")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		Country:      req.Country,
		Role:         domain.RoleUser,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, domain.NewAuthorizationError("invalid credentials")
	}

	ok, err := auth.VerifyPassword(req.Password, u.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewAuthorizationError("invalid credentials")
	}

	if err := s.users.TouchLogin(ctx, u.ID, s.now().UTC()); err != nil {
		logger.ErrorContext(ctx, "failed to record login time", "error", err, "user_id", u.ID)
	}

	return s.issue(u)
}

func (s *authService) issue(u *domain.User) (*AuthResult, error) {
	token, err := auth.NewAccessToken(u.ID, u.Email, string(u.Role), s.cfg.Auth.JWTSecret, s.cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, AccessToken: token}, nil
}
