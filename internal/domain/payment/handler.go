package payment

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
	svc      *Reconciler
	patients PatientResolver
}

func NewHandler(svc *Reconciler, patients PatientResolver) *Handler {
	return &Handler{svc: svc, patients: patients}
}

func (h *Handler) RegisterRoutes(patientGroup *echo.Group) {
	g := patientGroup.Group("", auth.RequireRole(auth.RolePatient))
	g.GET("/payment/:appointmentId", h.PaymentPage)
	g.POST("/payment/:appointmentId/checkout", h.Checkout)
	g.GET("/payment/:appointmentId/success", h.Success)
	g.GET("/payment/:appointmentId/cancel", h.Cancel)
	g.GET("/payments", h.History)
	g.GET("/payments/:id/receipt", h.Receipt)
}

func (h *Handler) currentPatient(c echo.Context) (*patient.Patient, error) {
	ctx := c.Request().Context()
	uid, err := auth.UserUUIDFromContext(ctx)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return h.patients.GetOrCreate(ctx, uid)
}

// target parses :appointmentId and resolves the caller's patient profile.
func (h *Handler) target(c echo.Context) (*patient.Patient, uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.currentPatient(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return p, id, nil
}

func (h *Handler) PaymentPage(c echo.Context) error {
	p, id, err := h.target(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	page, err := h.svc.PaymentPage(c.Request().Context(), p.ID, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) Checkout(c echo.Context) error {
	p, id, err := h.target(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	session, err := h.svc.InitiateCheckout(c.Request().Context(), p.ID, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// Success is the gateway's return URL. Razorpay appends
// razorpay_payment_id, the sandbox appends reference.
func (h *Handler) Success(c echo.Context) error {
	p, id, err := h.target(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	ref := c.QueryParam("razorpay_payment_id")
	if ref == "" {
		ref = c.QueryParam("reference")
	}
	payment, err := h.svc.ConfirmPayment(c.Request().Context(), p.ID, id, ref)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"payment":     payment,
		"redirect_to": "/patient/appointments",
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	p, id, err := h.target(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	page, err := h.svc.CancelCheckout(c.Request().Context(), p.ID, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) History(c echo.Context) error {
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	history, err := h.svc.History(c.Request().Context(), p.ID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) Receipt(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.currentPatient(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	payment, pdf, err := h.svc.Receipt(c.Request().Context(), p.ID, p.FullName(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+ReceiptFilename(payment)+`"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
