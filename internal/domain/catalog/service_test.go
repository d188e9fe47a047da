package catalog

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/apperr"
)

type mockSpecialtyRepo struct {
	items   map[uuid.UUID]*Specialty
	doctors map[uuid.UUID]int
}

func newMockSpecialtyRepo() *mockSpecialtyRepo {
	return &mockSpecialtyRepo{
		items:   make(map[uuid.UUID]*Specialty),
		doctors: make(map[uuid.UUID]int),
	}
}

func (m *mockSpecialtyRepo) Create(_ context.Context, s *Specialty) error {
	s.ID = uuid.New()
	m.items[s.ID] = s
	return nil
}

func (m *mockSpecialtyRepo) GetByID(_ context.Context, id uuid.UUID) (*Specialty, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("specialty")
	}
	return s, nil
}

func (m *mockSpecialtyRepo) GetByName(_ context.Context, name string) (*Specialty, error) {
	for _, s := range m.items {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, apperr.NotFound("specialty")
}

func (m *mockSpecialtyRepo) List(_ context.Context) ([]*Specialty, error) {
	var out []*Specialty
	for _, s := range m.items {
		cp := *s
		cp.DoctorCount = m.doctors[s.ID]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockSpecialtyRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("specialty")
	}
	delete(m.items, id)
	return nil
}

func (m *mockSpecialtyRepo) Count(_ context.Context) (int, error) {
	return len(m.items), nil
}

func (m *mockSpecialtyRepo) CountDoctors(_ context.Context, id uuid.UUID) (int, error) {
	return m.doctors[id], nil
}

func newTestService() (*Service, *mockSpecialtyRepo) {
	repo := newMockSpecialtyRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestCreateSpecialty(t *testing.T) {
	svc, _ := newTestService()
	sp, err := svc.CreateSpecialty(context.Background(), SpecialtyRequest{Name: "  Neurology ", Description: "Brain"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Name != "Neurology" {
		t.Errorf("expected trimmed name, got %q", sp.Name)
	}
	if sp.Description == nil || *sp.Description != "Brain" {
		t.Errorf("unexpected description %v", sp.Description)
	}
}

func TestCreateSpecialty_NameRequired(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateSpecialty(context.Background(), SpecialtyRequest{Name: "   "})
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateSpecialty_Duplicate(t *testing.T) {
	svc, _ := newTestService()
	svc.CreateSpecialty(context.Background(), SpecialtyRequest{Name: "Cardiology"})

	_, err := svc.CreateSpecialty(context.Background(), SpecialtyRequest{Name: "Cardiology"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestDeleteSpecialty_WithDoctorsIsRejected(t *testing.T) {
	svc, repo := newTestService()
	sp, _ := svc.CreateSpecialty(context.Background(), SpecialtyRequest{Name: "Cardiology"})
	repo.doctors[sp.ID] = 2

	err := svc.DeleteSpecialty(context.Background(), sp.ID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, ok := repo.items[sp.ID]; !ok {
		t.Error("specialty must survive a rejected delete")
	}
}

func TestDeleteSpecialty(t *testing.T) {
	svc, repo := newTestService()
	sp, _ := svc.CreateSpecialty(context.Background(), SpecialtyRequest{Name: "Dermatology"})

	if err := svc.DeleteSpecialty(context.Background(), sp.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.items) != 0 {
		t.Error("expected specialty to be deleted")
	}
}

func TestDeleteSpecialty_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.DeleteSpecialty(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSeedDefaults(t *testing.T) {
	svc, repo := newTestService()

	added, err := svc.SeedDefaults(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != len(DefaultSpecialties) || len(repo.items) != 5 {
		t.Fatalf("expected 5 specialties, got %d (%d stored)", added, len(repo.items))
	}

	added, err = svc.SeedDefaults(context.Background())
	if err != nil || added != 0 {
		t.Errorf("expected seeding a non-empty catalog to be a no-op, got %d, %v", added, err)
	}
}
