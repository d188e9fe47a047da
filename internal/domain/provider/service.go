package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/catalog"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/notification"
)

// AccountDirectory manages the user account behind each doctor.
type AccountDirectory interface {
	CreateAccount(ctx context.Context, acc identity.NewAccount) (*identity.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
	UpdateUser(ctx context.Context, u *identity.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type SpecialtyCatalog interface {
	GetSpecialty(ctx context.Context, id uuid.UUID) (*catalog.Specialty, error)
	ListSpecialties(ctx context.Context) ([]*catalog.Specialty, error)
}

type Notifier interface {
	Notify(ctx context.Context, templateID, recipient string, data map[string]string, attachments ...notification.Attachment)
}

type Service struct {
	doctors     DoctorRepository
	accounts    AccountDirectory
	specialties SpecialtyCatalog
	tx          db.TxRunner
	notifier    Notifier
	loginURL    string
	logger      zerolog.Logger
}

func NewService(doctors DoctorRepository, accounts AccountDirectory, specialties SpecialtyCatalog,
	tx db.TxRunner, notifier Notifier, loginURL string, logger zerolog.Logger) *Service {
	return &Service{
		doctors:     doctors,
		accounts:    accounts,
		specialties: specialties,
		tx:          tx,
		notifier:    notifier,
		loginURL:    loginURL,
		logger:      logger,
	}
}

func (s *Service) ListSpecialties(ctx context.Context) ([]*catalog.Specialty, error) {
	return s.specialties.ListSpecialties(ctx)
}

// resolveSpecialty turns an unknown specialty into a form error.
func (s *Service) resolveSpecialty(ctx context.Context, raw string) (*catalog.Specialty, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Invalid("specialty_id", "is invalid")
	}
	sp, err := s.specialties.GetSpecialty(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Invalid("specialty_id", "unknown specialty")
	}
	return sp, err
}

// CreateDoctor creates the user account (doctor role) and the doctor
// profile in a single transaction.
func (s *Service) CreateDoctor(ctx context.Context, req CreateDoctorRequest) (*Doctor, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req, req.ConsultationFee); err != nil {
		return nil, err
	}

	var d *Doctor
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		sp, err := s.resolveSpecialty(ctx, req.SpecialtyID)
		if err != nil {
			return err
		}
		user, err := s.accounts.CreateAccount(ctx, identity.NewAccount{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Address:   req.Address,
			Roles:     auth.NewRoleSet(auth.RoleDoctor),
		})
		if err != nil {
			return err
		}

		d = &Doctor{
			UserID:          user.ID,
			SpecialtyID:     sp.ID,
			Qualifications:  optionalString(req.Qualifications),
			Bio:             optionalString(req.Bio),
			ConsultationFee: req.ConsultationFee,
			Location:        optionalString(req.Location),
			WorkingHours:    optionalString(req.WorkingHours),
			IsAvailable:     boolOr(req.IsAvailable, true),
			FirstName:       user.FirstName,
			LastName:        user.LastName,
			Email:           user.Email,
			SpecialtyName:   sp.Name,
		}
		return s.doctors.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("doctor_id", d.ID.String()).Str("user_id", d.UserID.String()).Msg("doctor created")
	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.TemplateDoctorWelcome, d.Email, map[string]string{
			"doctor_name": d.FullName(),
			"login_link":  s.loginURL,
		})
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// GetByUserID returns the doctor profile of a signed-in doctor.
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// SearchDoctors lists available doctors whose specialty name and location
// contain the given substrings. Empty criteria match everything.
func (s *Service) SearchDoctors(ctx context.Context, criteria SearchCriteria) ([]*Doctor, error) {
	criteria.Specialty = strings.TrimSpace(criteria.Specialty)
	criteria.Location = strings.TrimSpace(criteria.Location)
	return s.doctors.Search(ctx, criteria)
}

// UpdateDoctor applies the admin edit form to the profile and the user's
// name in one transaction.
func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, req UpdateDoctorRequest) (*Doctor, error) {
	if err := validateRequest(req, req.ConsultationFee); err != nil {
		return nil, err
	}

	var d *Doctor
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if d, err = s.doctors.GetByID(ctx, id); err != nil {
			return err
		}
		sp, err := s.resolveSpecialty(ctx, req.SpecialtyID)
		if err != nil {
			return err
		}

		user, err := s.accounts.GetUser(ctx, d.UserID)
		if err != nil {
			return err
		}
		user.FirstName = req.FirstName
		user.LastName = req.LastName
		if err := s.accounts.UpdateUser(ctx, user); err != nil {
			return err
		}

		d.SpecialtyID = sp.ID
		d.SpecialtyName = sp.Name
		d.FirstName = user.FirstName
		d.LastName = user.LastName
		d.Qualifications = optionalString(req.Qualifications)
		d.Bio = optionalString(req.Bio)
		d.ConsultationFee = req.ConsultationFee
		d.Location = optionalString(req.Location)
		d.WorkingHours = optionalString(req.WorkingHours)
		d.IsAvailable = boolOr(req.IsAvailable, d.IsAvailable)
		return s.doctors.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateProfile lets a doctor edit their own profile. Specialty and name
// stay admin-managed.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileRequest) (*Doctor, error) {
	if err := validateRequest(req, req.ConsultationFee); err != nil {
		return nil, err
	}
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.Qualifications = optionalString(req.Qualifications)
	d.Bio = optionalString(req.Bio)
	d.ConsultationFee = req.ConsultationFee
	d.Location = optionalString(req.Location)
	d.WorkingHours = optionalString(req.WorkingHours)
	d.IsAvailable = boolOr(req.IsAvailable, d.IsAvailable)
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDoctor removes the profile and its user account. Doctors with any
// appointment history cannot be deleted.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.doctors.GetByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.doctors.CountAppointments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("doctor %s has %d appointment(s) and cannot be deleted", d.FullName(), n)
		}
		if err := s.doctors.Delete(ctx, id); err != nil {
			return err
		}
		return s.accounts.DeleteUser(ctx, d.UserID)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("doctor_id", id.String()).Msg("doctor deleted")
	return nil
}
