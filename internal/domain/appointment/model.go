package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "Pending"
	StatusConfirmed   Status = "Confirmed"
	StatusCompleted   Status = "Completed"
	StatusCancelled   Status = "Cancelled"
	StatusRescheduled Status = "Rescheduled"
)

// doctorSettable lists the statuses a doctor may apply. There is no
// transition table: any of these can follow any current status.
var doctorSettable = map[Status]bool{
	StatusConfirmed:   true,
	StatusCompleted:   true,
	StatusCancelled:   true,
	StatusRescheduled: true,
}

// Terminal reports whether s normally ends the lifecycle. It is
// informational only.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// DateLayout is the wire format of appointment dates.
const DateLayout = "2006-01-02"

// Appointment maps to the appointments table. The name fields are joined
// in on reads.
type Appointment struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID          uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AppointmentDate   time.Time  `db:"appointment_date" json:"appointment_date"`
	TimeSlot          string     `db:"time_slot" json:"time_slot"`
	Status            Status     `db:"status" json:"status"`
	Reason            *string    `db:"reason" json:"reason,omitempty"`
	ConsultationNotes *string    `db:"consultation_notes" json:"consultation_notes,omitempty"`
	Prescription      *string    `db:"prescription" json:"prescription,omitempty"`
	PaymentID         *uuid.UUID `db:"payment_id" json:"payment_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`

	DoctorName    string `db:"-" json:"doctor_name"`
	SpecialtyName string `db:"-" json:"specialty_name"`
	PatientName   string `db:"-" json:"patient_name"`
	PatientEmail  string `db:"-" json:"-"`
}

// ActorKind says which side of an appointment a caller is on.
type ActorKind string

const (
	ActorPatient ActorKind = "patient"
	ActorDoctor  ActorKind = "doctor"
)

// Actor identifies a caller by profile id: Patient.ID or Doctor.ID, never
// the user id.
type Actor struct {
	Kind ActorKind
	ID   uuid.UUID
}

func PatientActor(id uuid.UUID) Actor { return Actor{Kind: ActorPatient, ID: id} }
func DoctorActor(id uuid.UUID) Actor  { return Actor{Kind: ActorDoctor, ID: id} }

// Owns reports whether a belongs to the actor.
func (ac Actor) Owns(a *Appointment) bool {
	switch ac.Kind {
	case ActorPatient:
		return a.PatientID == ac.ID
	case ActorDoctor:
		return a.DoctorID == ac.ID
	}
	return false
}

type BookRequest struct {
	Date     string `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	TimeSlot string `json:"time_slot" validate:"required,max=50"`
	Reason   string `json:"reason" validate:"max=1000"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Confirmed Completed Cancelled Rescheduled"`
}

type ConsultationRequest struct {
	Notes        string `json:"consultation_notes" validate:"max=5000"`
	Prescription string `json:"prescription" validate:"max=5000"`
}
