package payment

import (
	"context"

	"github.com/google/uuid"
)

type PaymentRepository interface {
	GetCharge(ctx context.Context, appointmentID uuid.UUID) (*Charge, error)
	// LockCharge is GetCharge holding a row lock on the appointment until
	// the surrounding transaction ends.
	LockCharge(ctx context.Context, appointmentID uuid.UUID) (*Charge, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Payment, error)
	// Create inserts p unless the appointment already has a payment. It
	// reports whether a row was written.
	Create(ctx context.Context, p *Payment) (bool, error)
	// MarkAppointmentPaid links the payment and moves the appointment to
	// Confirmed.
	MarkAppointmentPaid(ctx context.Context, appointmentID, paymentID uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Payment, error)
}
