package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/apperr"
)

type Service struct {
	specialties SpecialtyRepository
	logger      zerolog.Logger
}

func NewService(specialties SpecialtyRepository, logger zerolog.Logger) *Service {
	return &Service{specialties: specialties, logger: logger}
}

func (s *Service) ListSpecialties(ctx context.Context) ([]*Specialty, error) {
	return s.specialties.List(ctx)
}

func (s *Service) GetSpecialty(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return s.specialties.GetByID(ctx, id)
}

func (s *Service) CreateSpecialty(ctx context.Context, req SpecialtyRequest) (*Specialty, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.specialties.GetByName(ctx, req.Name); err == nil {
		return nil, apperr.Conflict("specialty %q already exists", req.Name)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	sp := &Specialty{Name: req.Name, Description: optionalString(req.Description)}
	if err := s.specialties.Create(ctx, sp); err != nil {
		return nil, err
	}
	s.logger.Info().Str("specialty_id", sp.ID.String()).Str("name", sp.Name).Msg("specialty created")
	return sp, nil
}

// DeleteSpecialty refuses while any doctor still references the specialty.
func (s *Service) DeleteSpecialty(ctx context.Context, id uuid.UUID) error {
	sp, err := s.specialties.GetByID(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.specialties.CountDoctors(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("specialty %q still has %d doctor(s) assigned", sp.Name, n)
	}
	if err := s.specialties.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("specialty_id", id.String()).Msg("specialty deleted")
	return nil
}

// SeedDefaults fills an empty catalog. It returns how many rows were added.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.specialties.Count(ctx)
	if err != nil || n > 0 {
		return 0, err
	}
	added := 0
	for _, req := range DefaultSpecialties {
		if _, err := s.CreateSpecialty(ctx, req); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
