package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/patient"
	"github.com/medbook/medbook/internal/domain/provider"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/notification"
	"github.com/medbook/medbook/internal/platform/telemetry"
)

type DoctorLookup interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*provider.Doctor, error)
}

type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Notifier interface {
	Notify(ctx context.Context, templateID, recipient string, data map[string]string, attachments ...notification.Attachment)
}

type Service struct {
	appointments AppointmentRepository
	doctors      DoctorLookup
	patients     PatientLookup
	notifier     Notifier
	metrics      *telemetry.Metrics
	baseURL      string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewService wires the engine. baseURL prefixes the payment link sent in
// booking emails.
func NewService(appointments AppointmentRepository, doctors DoctorLookup, patients PatientLookup,
	notifier Notifier, metrics *telemetry.Metrics, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		notifier:     notifier,
		metrics:      metrics,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger,
		now:          time.Now,
	}
}

// PaymentPath is the patient route that starts checkout for an appointment.
func PaymentPath(id uuid.UUID) string {
	return "/patient/payment/" + id.String()
}

// Book creates a Pending appointment. Slots are free text and never
// checked for clashes.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, req BookRequest) (*Appointment, error) {
	req.TimeSlot = strings.TrimSpace(req.TimeSlot)
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}
	date, _ := time.Parse(DateLayout, req.Date)

	doc, err := s.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:       p.ID,
		DoctorID:        doc.ID,
		AppointmentDate: date,
		TimeSlot:        req.TimeSlot,
		Status:          StatusPending,
		Reason:          optionalString(req.Reason),
		DoctorName:      doc.FullName(),
		SpecialtyName:   doc.SpecialtyName,
		PatientName:     p.FullName(),
		PatientEmail:    p.Email,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}

	s.metrics.RecordBooking()
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("patient_id", a.PatientID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Msg("appointment booked")

	data := mailData(a)
	data["payment_link"] = s.baseURL + PaymentPath(a.ID)
	s.notify(ctx, notification.TemplateBookingCreated, a.PatientEmail, data)
	return a, nil
}

// Get returns an appointment the actor owns. Someone else's appointment is
// reported as not found.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(a) {
		return nil, apperr.NotFound("appointment")
	}
	return a, nil
}

// SetStatus applies status on behalf of actor. Doctors may set any status
// other than Pending. Patients may only cancel.
func (s *Service) SetStatus(ctx context.Context, actor Actor, id uuid.UUID, status Status) (*Appointment, error) {
	switch actor.Kind {
	case ActorDoctor:
		if !doctorSettable[status] {
			return nil, apperr.Invalid("status", "must be one of: Confirmed Completed Cancelled Rescheduled")
		}
	case ActorPatient:
		if status != StatusCancelled {
			return nil, apperr.Forbidden("patients may only cancel appointments")
		}
	default:
		return nil, apperr.Forbidden("unknown actor")
	}

	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.appointments.UpdateStatus(ctx, a.ID, status); err != nil {
		return nil, err
	}
	previous := a.Status
	a.Status = status

	s.metrics.RecordStatusChange(string(status), string(actor.Kind))
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("from", string(previous)).
		Str("to", string(status)).
		Str("actor", string(actor.Kind)).
		Msg("appointment status changed")

	if actor.Kind == ActorDoctor {
		data := mailData(a)
		data["status"] = string(status)
		s.notify(ctx, notification.TemplateStatusChanged, a.PatientEmail, data)
	}
	return a, nil
}

// RecordConsultation stores the doctor's notes and prescription. The
// appointment does not have to be Completed.
func (s *Service) RecordConsultation(ctx context.Context, doctorID, id uuid.UUID, req ConsultationRequest) (*Appointment, error) {
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, DoctorActor(doctorID), id)
	if err != nil {
		return nil, err
	}
	a.ConsultationNotes = optionalString(req.Notes)
	a.Prescription = optionalString(req.Prescription)
	if err := s.appointments.UpdateConsultation(ctx, a.ID, a.ConsultationNotes, a.Prescription); err != nil {
		return nil, err
	}
	return a, nil
}

// today is the start of the current UTC day.
func (s *Service) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

func (s *Service) ListUpcoming(ctx context.Context, owner Actor) ([]*Appointment, error) {
	return s.appointments.ListUpcoming(ctx, owner, s.today())
}

func (s *Service) ListAll(ctx context.Context, owner Actor) ([]*Appointment, error) {
	return s.appointments.ListAll(ctx, owner)
}

func (s *Service) notify(ctx context.Context, templateID, to string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, templateID, to, data)
}

func mailData(a *Appointment) map[string]string {
	return map[string]string{
		"patient_name": a.PatientName,
		"doctor_name":  a.DoctorName,
		"date":         a.AppointmentDate.Format(DateLayout),
		"time_slot":    a.TimeSlot,
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
