package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts specialty management on the admin group.
func (h *Handler) RegisterRoutes(admin *echo.Group) {
	g := admin.Group("/specialties", auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.ListSpecialties)
	g.POST("/add", h.CreateSpecialty)
	g.POST("/:id/delete", h.DeleteSpecialty)
}

func (h *Handler) ListSpecialties(c echo.Context) error {
	items, err := h.svc.ListSpecialties(c.Request().Context())
	if err != nil {
		return apperr.Respond(c, err)
	}
	if items == nil {
		items = []*Specialty{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateSpecialty(c echo.Context) error {
	var req SpecialtyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sp, err := h.svc.CreateSpecialty(c.Request().Context(), req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *Handler) DeleteSpecialty(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSpecialty(c.Request().Context(), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
