package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/platform/auth"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddRole(ctx context.Context, id uuid.UUID, role auth.Role) error
	CountByRole(ctx context.Context, role auth.Role) (int, error)
}
