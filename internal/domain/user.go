package domain

import "time"

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleDriver     Role = "driver"
)

type User struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	Country         string      `json:"country,omitempty"`
	Role            Role        `json:"role"`
	PasswordHash    string      `json:"-"`
	SavedPassengers []Passenger `json:"saved_passengers,omitempty"`
	IsActive        bool        `json:"is_active"`
	LastLoginAt     *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
