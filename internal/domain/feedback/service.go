package feedback

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/platform/apperr"
)

// AppointmentLookup loads an appointment on behalf of its owner.
type AppointmentLookup interface {
	Get(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error)
}

// Form is what the feedback page shows for one appointment.
type Form struct {
	Appointment *appointment.Appointment `json:"appointment"`
	Feedback    *Feedback                `json:"feedback,omitempty"`
	CanSubmit   bool                     `json:"can_submit"`
}

type Service struct {
	feedback     FeedbackRepository
	appointments AppointmentLookup
	logger       zerolog.Logger
}

func NewService(feedback FeedbackRepository, appointments AppointmentLookup, logger zerolog.Logger) *Service {
	return &Service{feedback: feedback, appointments: appointments, logger: logger}
}

func (s *Service) existing(ctx context.Context, appointmentID uuid.UUID) (*Feedback, error) {
	f, err := s.feedback.GetByAppointment(ctx, appointmentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return f, err
}

// Form loads the appointment and any feedback already left for it.
func (s *Service) Form(ctx context.Context, patientID, appointmentID uuid.UUID) (*Form, error) {
	a, err := s.appointments.Get(ctx, appointment.PatientActor(patientID), appointmentID)
	if err != nil {
		return nil, err
	}
	f, err := s.existing(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return &Form{
		Appointment: a,
		Feedback:    f,
		CanSubmit:   f == nil && a.Status == appointment.StatusCompleted,
	}, nil
}

// Submit records the patient's rating for one of their Completed
// appointments. A second submission is a Conflict and leaves the first
// untouched.
func (s *Service) Submit(ctx context.Context, patientID, appointmentID uuid.UUID, req SubmitRequest) (*Feedback, error) {
	req.Comments = strings.TrimSpace(req.Comments)
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}

	a, err := s.appointments.Get(ctx, appointment.PatientActor(patientID), appointmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != appointment.StatusCompleted {
		return nil, apperr.Conflict("feedback can only be left for completed appointments")
	}

	prior, err := s.existing(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return nil, apperr.Conflict("feedback already submitted for this appointment")
	}

	f := &Feedback{
		PatientID:     patientID,
		DoctorID:      a.DoctorID,
		AppointmentID: &a.ID,
		Rating:        req.Rating,
		DoctorName:    a.DoctorName,
	}
	if req.Comments != "" {
		f.Comments = &req.Comments
	}
	if err := s.feedback.Create(ctx, f); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("feedback already submitted for this appointment")
		}
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Int("rating", f.Rating).
		Msg("feedback recorded")
	return f, nil
}

// ListMine returns the patient's feedback, newest first.
func (s *Service) ListMine(ctx context.Context, patientID uuid.UUID) ([]*Feedback, error) {
	items, err := s.feedback.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Feedback{}
	}
	return items, nil
}
