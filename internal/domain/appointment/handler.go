package appointment

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/domain/patient"
	"github.com/medbook/medbook/internal/domain/provider"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

// PatientResolver maps the signed-in user to a patient profile.
type PatientResolver interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*patient.Patient, error)
}

// DoctorResolver maps the signed-in user to a doctor profile.
type DoctorResolver interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*provider.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*provider.Doctor, error)
}

type Handler struct {
	svc      *Service
	patients PatientResolver
	doctors  DoctorResolver
}

func NewHandler(svc *Service, patients PatientResolver, doctors DoctorResolver) *Handler {
	return &Handler{svc: svc, patients: patients, doctors: doctors}
}

func (h *Handler) RegisterRoutes(patientGroup, doctorGroup *echo.Group) {
	p := patientGroup.Group("", auth.RequireRole(auth.RolePatient))
	p.GET("", h.PatientDashboard)
	p.GET("/book/:doctorId", h.BookForm)
	p.POST("/book/:doctorId", h.Book)
	p.GET("/appointments", h.PatientAppointments)
	p.POST("/appointments/:id/cancel", h.Cancel)

	d := doctorGroup.Group("", auth.RequireRole(auth.RoleDoctor))
	d.GET("", h.DoctorDashboard)
	d.GET("/appointments", h.DoctorAppointments)
	d.POST("/appointments/:id/status", h.SetStatus)
	d.GET("/appointments/:id/notes", h.NotesForm)
	d.POST("/appointments/:id/notes", h.RecordConsultation)
}

func (h *Handler) currentPatient(c echo.Context) (*patient.Patient, error) {
	ctx := c.Request().Context()
	uid, err := auth.UserUUIDFromContext(ctx)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return h.patients.GetOrCreate(ctx, uid)
}

func (h *Handler) currentDoctor(c echo.Context) (*provider.Doctor, error) {
	ctx := c.Request().Context()
	uid, err := auth.UserUUIDFromContext(ctx)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return h.doctors.GetByUserID(ctx, uid)
}

func listOrEmpty(items []*Appointment) []*Appointment {
	if items == nil {
		return []*Appointment{}
	}
	return items
}

func (h *Handler) PatientDashboard(c echo.Context) error {
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	upcoming, err := h.svc.ListUpcoming(c.Request().Context(), PatientActor(p.ID))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient":  p,
		"upcoming": listOrEmpty(upcoming),
	})
}

func (h *Handler) PatientAppointments(c echo.Context) error {
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	items, err := h.svc.ListAll(c.Request().Context(), PatientActor(p.ID))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, listOrEmpty(items))
}

func (h *Handler) BookForm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.doctors.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"doctor": d})
}

// Book creates the appointment and points the client at the payment page.
func (h *Handler) Book(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	a, err := h.svc.Book(c.Request().Context(), p.ID, doctorID, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"appointment": a,
		"redirect_to": PaymentPath(a.ID),
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	a, err := h.svc.SetStatus(c.Request().Context(), PatientActor(p.ID), id, StatusCancelled)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DoctorDashboard(c echo.Context) error {
	d, err := h.currentDoctor(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	upcoming, err := h.svc.ListUpcoming(c.Request().Context(), DoctorActor(d.ID))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor":   d,
		"upcoming": listOrEmpty(upcoming),
	})
}

func (h *Handler) DoctorAppointments(c echo.Context) error {
	d, err := h.currentDoctor(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	items, err := h.svc.ListAll(c.Request().Context(), DoctorActor(d.ID))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, listOrEmpty(items))
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := apperr.Validate(req); err != nil {
		return apperr.Respond(c, err)
	}
	d, err := h.currentDoctor(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	a, err := h.svc.SetStatus(c.Request().Context(), DoctorActor(d.ID), id, Status(req.Status))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) NotesForm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.currentDoctor(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	a, err := h.svc.Get(c.Request().Context(), DoctorActor(d.ID), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) RecordConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req ConsultationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.currentDoctor(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	a, err := h.svc.RecordConsultation(c.Request().Context(), d.ID, id, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
