package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateConsultation(ctx context.Context, id uuid.UUID, notes, prescription *string) error
	// ListUpcoming returns the owner's appointments dated on or after from,
	// earliest first.
	ListUpcoming(ctx context.Context, owner Actor, from time.Time) ([]*Appointment, error)
	// ListAll returns every appointment of the owner, latest first.
	ListAll(ctx context.Context, owner Actor) ([]*Appointment, error)
}
