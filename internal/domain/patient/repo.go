package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	// GetOrCreate inserts p unless the user already has a profile and
	// returns the stored row either way.
	GetOrCreate(ctx context.Context, p *Patient) (*Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Count(ctx context.Context) (int, error)
}
