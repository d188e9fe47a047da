package feedback

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is a patient's rating of a completed appointment. At most one
// exists per appointment.
type Feedback struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Rating        int        `json:"rating"`
	Comments      *string    `json:"comments,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	DoctorName      string     `json:"doctor_name,omitempty"`
	AppointmentDate *time.Time `json:"appointment_date,omitempty"`
}

type SubmitRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comments string `json:"comments" validate:"max=2000"`
}
