package feedback

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/domain/patient"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

type PatientResolver interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*patient.Patient, error)
}

type Handler struct {
	svc      *Service
	patients PatientResolver
}

func NewHandler(svc *Service, patients PatientResolver) *Handler {
	return &Handler{svc: svc, patients: patients}
}

func (h *Handler) RegisterRoutes(patientGroup *echo.Group) {
	g := patientGroup.Group("", auth.RequireRole(auth.RolePatient))
	g.GET("/appointments/:id/feedback", h.Form)
	g.POST("/appointments/:id/feedback", h.Submit)
	g.GET("/feedback", h.List)
}

func (h *Handler) currentPatient(c echo.Context) (*patient.Patient, error) {
	ctx := c.Request().Context()
	uid, err := auth.UserUUIDFromContext(ctx)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return h.patients.GetOrCreate(ctx, uid)
}

func (h *Handler) Form(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	form, err := h.svc.Form(c.Request().Context(), p.ID, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) Submit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	f, err := h.svc.Submit(c.Request().Context(), p.ID, id, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"feedback":    f,
		"redirect_to": "/patient/feedback",
	})
}

func (h *Handler) List(c echo.Context) error {
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	items, err := h.svc.ListMine(c.Request().Context(), p.ID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
