package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// Specialty maps to the specialties table. DoctorCount is only filled by
// List.
type Specialty struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	DoctorCount int       `db:"-" json:"doctor_count"`
}

type SpecialtyRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// DefaultSpecialties seed an empty catalog.
var DefaultSpecialties = []SpecialtyRequest{
	{Name: "General Medicine", Description: "Primary care and common illnesses"},
	{Name: "Cardiology", Description: "Heart and blood vessel conditions"},
	{Name: "Dermatology", Description: "Skin, hair and nail conditions"},
	{Name: "Pediatrics", Description: "Medical care for infants and children"},
	{Name: "Orthopedics", Description: "Bones, joints and muscles"},
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
