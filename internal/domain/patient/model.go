package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultAge is used for the date of birth of lazily created profiles.
const DefaultAge = 30

const dateLayout = "2006-01-02"

// Patient maps to the patients table. Name and email come from the user.
type Patient struct {
	ID               uuid.UUID `db:"id" json:"id"`
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	DateOfBirth      time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender           *string   `db:"gender" json:"gender,omitempty"`
	EmergencyContact *string   `db:"emergency_contact" json:"emergency_contact,omitempty"`
	MedicalHistory   *string   `db:"medical_history" json:"medical_history,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`

	FirstName string `db:"-" json:"first_name"`
	LastName  string `db:"-" json:"last_name"`
	Email     string `db:"-" json:"email"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ProfileRequest is the patient's own profile form.
type ProfileRequest struct {
	DateOfBirth      string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender           string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	EmergencyContact string `json:"emergency_contact" validate:"max=200"`
	MedicalHistory   string `json:"medical_history" validate:"max=5000"`
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
