package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/apperr"
)

type Service struct {
	patients PatientRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(patients PatientRepository, logger zerolog.Logger) *Service {
	return &Service{patients: patients, logger: logger, now: time.Now}
}

// GetOrCreate returns the user's patient profile, creating a blank one on
// first use.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	p, err = s.patients.GetOrCreate(ctx, &Patient{
		UserID:      userID,
		DateOfBirth: s.now().UTC().AddDate(-DefaultAge, 0, 0).Truncate(24 * time.Hour),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("user_id", userID.String()).Str("patient_id", p.ID.String()).Msg("patient profile ready")
	return p, nil
}

// EnsureProfile creates the profile for a freshly registered account.
func (s *Service) EnsureProfile(ctx context.Context, userID uuid.UUID) error {
	_, err := s.GetOrCreate(ctx, userID)
	return err
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// UpdateProfile applies the profile form. An empty date of birth keeps the
// stored one.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileRequest) (*Patient, error) {
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DateOfBirth != "" {
		dob, _ := time.Parse(dateLayout, req.DateOfBirth)
		if dob.After(s.now()) {
			return nil, apperr.Invalid("date_of_birth", "must not be in the future")
		}
		p.DateOfBirth = dob
	}
	p.Gender = optionalString(req.Gender)
	p.EmergencyContact = optionalString(req.EmergencyContact)
	p.MedicalHistory = optionalString(req.MedicalHistory)

	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.patients.Count(ctx)
}
