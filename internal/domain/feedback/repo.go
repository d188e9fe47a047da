package feedback

import (
	"context"

	"github.com/google/uuid"
)

type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Feedback, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Feedback, error)
}
