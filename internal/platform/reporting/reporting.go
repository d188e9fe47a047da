package reporting

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

// Definition describes one admin report.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// Reports lists the reports the admin surface serves.
var Reports = []Definition{
	{
		ID:          "appointments",
		Name:        "Appointments",
		Description: "Every appointment with patient, doctor and payment, plus counts by status and specialty",
		Path:        "/admin/reports/appointments",
	},
	{
		ID:          "payments",
		Name:        "Payments",
		Description: "Every payment with patient and doctor, plus completed revenue overall and by specialty",
		Path:        "/admin/reports/payments",
	},
	{
		ID:          "patients",
		Name:        "Patients",
		Description: "Per-patient appointment counts and total spent",
		Path:        "/admin/reports/patients",
	},
}

// FindReport looks up a report definition by ID.
func FindReport(id string) *Definition {
	for i := range Reports {
		if Reports[i].ID == id {
			return &Reports[i]
		}
	}
	return nil
}

type Overview struct {
	Counts       Counts          `json:"counts"`
	ByStatus     []StatusCount   `json:"by_status"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	BySpecialty  []SpecialtyStat `json:"by_specialty"`
	Reports      []Definition    `json:"reports"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// AppointmentReport lists every appointment, latest date first, next to
// the status and specialty breakdowns.
type AppointmentReport struct {
	Total        int               `json:"total"`
	Appointments []AppointmentFact `json:"appointments"`
	ByStatus     []StatusCount     `json:"by_status"`
	BySpecialty  []SpecialtyStat   `json:"by_specialty"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

// PaymentReport lists every payment, latest first.
type PaymentReport struct {
	Total        int             `json:"total"`
	Payments     []PaymentFact   `json:"payments"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	BySpecialty  []SpecialtyStat `json:"by_specialty"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

type PatientReport struct {
	Patients    []PatientStat `json:"patients"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Handler serves the admin dashboard and reports.
type Handler struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewHandler(store Store, logger zerolog.Logger) *Handler {
	return &Handler{store: store, logger: logger, now: time.Now}
}

// RegisterRoutes mounts the dashboard and reports on the admin group.
func (h *Handler) RegisterRoutes(admin *echo.Group) {
	g := admin.Group("", auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.Dashboard)
	g.GET("/reports", h.Index)
	g.GET("/reports/appointments", h.Appointments)
	g.GET("/reports/payments", h.Payments)
	g.GET("/reports/patients", h.Patients)
}

func (h *Handler) Dashboard(c echo.Context) error {
	counts, err := h.store.Counts(c.Request().Context())
	if err != nil {
		return h.fail(c, "dashboard", err)
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *Handler) Index(c echo.Context) error {
	ctx := c.Request().Context()
	counts, err := h.store.Counts(ctx)
	if err != nil {
		return h.fail(c, "overview", err)
	}
	appts, err := h.store.Appointments(ctx)
	if err != nil {
		return h.fail(c, "overview", err)
	}
	payments, err := h.store.Payments(ctx)
	if err != nil {
		return h.fail(c, "overview", err)
	}

	return c.JSON(http.StatusOK, Overview{
		Counts:       counts,
		ByStatus:     CountByStatus(appts),
		TotalRevenue: TotalRevenue(payments),
		BySpecialty:  BySpecialty(appts, payments),
		Reports:      Reports,
		GeneratedAt:  h.now().UTC(),
	})
}

func (h *Handler) Appointments(c echo.Context) error {
	ctx := c.Request().Context()
	appts, err := h.store.Appointments(ctx)
	if err != nil {
		return h.fail(c, "appointments", err)
	}
	payments, err := h.store.Payments(ctx)
	if err != nil {
		return h.fail(c, "appointments", err)
	}
	return c.JSON(http.StatusOK, AppointmentReport{
		Total:        len(appts),
		Appointments: NewestAppointments(appts),
		ByStatus:     CountByStatus(appts),
		BySpecialty:  BySpecialty(appts, payments),
		GeneratedAt:  h.now().UTC(),
	})
}

func (h *Handler) Payments(c echo.Context) error {
	payments, err := h.store.Payments(c.Request().Context())
	if err != nil {
		return h.fail(c, "payments", err)
	}
	return c.JSON(http.StatusOK, PaymentReport{
		Total:        len(payments),
		Payments:     NewestPayments(payments),
		TotalRevenue: TotalRevenue(payments),
		BySpecialty:  BySpecialty(nil, payments),
		GeneratedAt:  h.now().UTC(),
	})
}

func (h *Handler) Patients(c echo.Context) error {
	ctx := c.Request().Context()
	patients, err := h.store.Patients(ctx)
	if err != nil {
		return h.fail(c, "patients", err)
	}
	appts, err := h.store.Appointments(ctx)
	if err != nil {
		return h.fail(c, "patients", err)
	}
	payments, err := h.store.Payments(ctx)
	if err != nil {
		return h.fail(c, "patients", err)
	}
	return c.JSON(http.StatusOK, PatientReport{
		Patients:    PerPatient(patients, appts, payments),
		GeneratedAt: h.now().UTC(),
	})
}

func (h *Handler) fail(c echo.Context, report string, err error) error {
	h.logger.Error().Err(err).Str("report", report).Msg("report query failed")
	return apperr.Respond(c, err)
}
