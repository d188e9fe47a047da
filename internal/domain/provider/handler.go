package provider

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts doctor management for admins, the doctor's own
// profile and the patient-facing search.
func (h *Handler) RegisterRoutes(admin, doctor, patient *echo.Group) {
	a := admin.Group("/doctors", auth.RequireRole(auth.RoleAdmin))
	a.GET("", h.ListDoctors)
	a.GET("/add", h.NewDoctorForm)
	a.POST("/add", h.CreateDoctor)
	a.GET("/:id/edit", h.EditDoctorForm)
	a.POST("/:id/edit", h.UpdateDoctor)
	a.POST("/:id/delete", h.DeleteDoctor)

	d := doctor.Group("/profile", auth.RequireRole(auth.RoleDoctor))
	d.GET("", h.GetProfile)
	d.POST("", h.UpdateProfile)

	p := patient.Group("", auth.RequireRole(auth.RolePatient))
	p.GET("/search", h.SearchDoctors)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if items == nil {
		items = []*Doctor{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c))
}

func (h *Handler) NewDoctorForm(c echo.Context) error {
	specialties, err := h.svc.ListSpecialties(c.Request().Context())
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"specialties": specialties})
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var req CreateDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) EditDoctorForm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	d, err := h.svc.GetDoctor(ctx, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	specialties, err := h.svc.ListSpecialties(ctx)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor":      d,
		"specialties": specialties,
	})
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), id, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	uid, err := auth.UserUUIDFromContext(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	d, err := h.svc.GetByUserID(ctx, uid)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	uid, err := auth.UserUUIDFromContext(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.UpdateProfile(ctx, uid, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) SearchDoctors(c echo.Context) error {
	criteria := SearchCriteria{
		Specialty: c.QueryParam("specialty"),
		Location:  c.QueryParam("location"),
	}
	items, err := h.svc.SearchDoctors(c.Request().Context(), criteria)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if items == nil {
		items = []*Doctor{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"specialty": criteria.Specialty,
		"location":  criteria.Location,
		"doctors":   items,
	})
}
