package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/platform/auth"
)

// User maps to the users table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Address      *string   `db:"address" json:"address,omitempty"`
	Roles        []string  `db:"roles" json:"roles"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) RoleSet() auth.RoleSet {
	return auth.ParseRoleSet(u.Roles)
}

// NewAccount is the input for creating a user with explicit roles.
type NewAccount struct {
	Email     string       `json:"email" validate:"required,email,max=255"`
	Password  string       `json:"password" validate:"required,min=6,max=100,hasdigit"`
	FirstName string       `json:"first_name" validate:"required,max=100"`
	LastName  string       `json:"last_name" validate:"required,max=100"`
	Address   string       `json:"address" validate:"max=500"`
	Roles     auth.RoleSet `json:"-"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=6,max=100,hasdigit"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Address   string `json:"address" validate:"max=500"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by login and registration.
type Session struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	RedirectTo string    `json:"redirect_to"`
	User       *User     `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
