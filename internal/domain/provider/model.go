package provider

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbook/medbook/internal/platform/apperr"
)

// MaxConsultationFee bounds Doctor.ConsultationFee.
var MaxConsultationFee = decimal.NewFromInt(100000)

// Doctor maps to the doctors table. The name, email and specialty fields
// are joined in on reads.
type Doctor struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	SpecialtyID     uuid.UUID       `db:"specialty_id" json:"specialty_id"`
	Qualifications  *string         `db:"qualifications" json:"qualifications,omitempty"`
	Bio             *string         `db:"bio" json:"bio,omitempty"`
	ConsultationFee decimal.Decimal `db:"consultation_fee" json:"consultation_fee"`
	Location        *string         `db:"location" json:"location,omitempty"`
	WorkingHours    *string         `db:"working_hours" json:"working_hours,omitempty"`
	IsAvailable     bool            `db:"is_available" json:"is_available"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`

	FirstName     string `db:"-" json:"first_name"`
	LastName      string `db:"-" json:"last_name"`
	Email         string `db:"-" json:"email"`
	SpecialtyName string `db:"-" json:"specialty_name"`
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// CreateDoctorRequest creates the doctor's user account and profile together.
type CreateDoctorRequest struct {
	Email           string          `json:"email" validate:"required,email,max=255"`
	Password        string          `json:"password" validate:"required,min=6,max=100,hasdigit"`
	FirstName       string          `json:"first_name" validate:"required,max=100"`
	LastName        string          `json:"last_name" validate:"required,max=100"`
	Address         string          `json:"address" validate:"max=500"`
	SpecialtyID     string          `json:"specialty_id" validate:"required,uuid"`
	Qualifications  string          `json:"qualifications" validate:"max=500"`
	Bio             string          `json:"bio" validate:"max=2000"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	Location        string          `json:"location" validate:"max=200"`
	WorkingHours    string          `json:"working_hours" validate:"max=200"`
	IsAvailable     *bool           `json:"is_available"`
}

// UpdateDoctorRequest is the admin edit form.
type UpdateDoctorRequest struct {
	FirstName       string          `json:"first_name" validate:"required,max=100"`
	LastName        string          `json:"last_name" validate:"required,max=100"`
	SpecialtyID     string          `json:"specialty_id" validate:"required,uuid"`
	Qualifications  string          `json:"qualifications" validate:"max=500"`
	Bio             string          `json:"bio" validate:"max=2000"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	Location        string          `json:"location" validate:"max=200"`
	WorkingHours    string          `json:"working_hours" validate:"max=200"`
	IsAvailable     *bool           `json:"is_available"`
}

// ProfileRequest is what doctors may change about themselves.
type ProfileRequest struct {
	Qualifications  string          `json:"qualifications" validate:"max=500"`
	Bio             string          `json:"bio" validate:"max=2000"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	Location        string          `json:"location" validate:"max=200"`
	WorkingHours    string          `json:"working_hours" validate:"max=200"`
	IsAvailable     *bool           `json:"is_available"`
}

// SearchCriteria filters available doctors by substring.
type SearchCriteria struct {
	Specialty string
	Location  string
}

// validateRequest runs the struct tags and the fee bounds together so the
// client gets every field error at once.
func validateRequest(req interface{}, fee decimal.Decimal) error {
	ve := &apperr.ValidationError{}
	if err := apperr.Validate(req); err != nil && !errors.As(err, &ve) {
		return err
	}
	if fee.IsNegative() || fee.GreaterThan(MaxConsultationFee) {
		ve.Add("consultation_fee", "must be between 0 and 100000")
	} else if !fee.Equal(fee.Round(2)) {
		ve.Add("consultation_fee", "must have at most 2 decimal places")
	}
	return ve.OrNil()
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
