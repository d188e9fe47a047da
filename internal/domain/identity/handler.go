package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

type Handler struct {
	svc           *Service
	secureCookies bool
}

func NewHandler(svc *Service, secureCookies bool) *Handler {
	return &Handler{svc: svc, secureCookies: secureCookies}
}

// RegisterRoutes mounts the account surface. Register and login are open to
// anonymous callers.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/access-denied", h.AccessDenied)

	authed := g.Group("", auth.RequireAuth())
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	session, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	auth.SetSessionCookie(c, session.Token, session.ExpiresAt, h.secureCookies)
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	session, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	auth.SetSessionCookie(c, session.Token, session.ExpiresAt, h.secureCookies)
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Logout(ctx, auth.ClaimsFromContext(ctx)); err != nil {
		return apperr.Respond(c, err)
	}
	auth.ClearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"redirect_to": auth.LoginPath})
}

func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	uid, err := auth.UserUUIDFromContext(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	u, err := h.svc.GetUser(ctx, uid)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":      u,
		"dashboard": u.RoleSet().DashboardPath(),
	})
}

// AccessDenied is where failed role checks point clients.
func (h *Handler) AccessDenied(c echo.Context) error {
	resp := map[string]string{"message": "You do not have permission to view this page."}
	ctx := c.Request().Context()
	if auth.UserIDFromContext(ctx) != "" {
		resp["dashboard"] = auth.RolesFromContext(ctx).DashboardPath()
	} else {
		resp["login"] = auth.LoginPath
	}
	return c.JSON(http.StatusOK, resp)
}
