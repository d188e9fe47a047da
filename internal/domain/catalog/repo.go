package catalog

import (
	"context"

	"github.com/google/uuid"
)

type SpecialtyRepository interface {
	Create(ctx context.Context, s *Specialty) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error)
	GetByName(ctx context.Context, name string) (*Specialty, error)
	// List returns every specialty ordered by name, with doctor counts.
	List(ctx context.Context) ([]*Specialty, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	CountDoctors(ctx context.Context, id uuid.UUID) (int, error)
}
