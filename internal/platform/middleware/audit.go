package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/telemetry"
)

// AuditEntry describes one state-changing request on a role surface.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Surface    string
	Action     string // create, update, delete
	Method     string
	Path       string
	IPAddress  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// AuditMetrics counts audit entries in the Prometheus telemetry by surface,
// action and status code.
func AuditMetrics(m *telemetry.Metrics) AuditRecorder {
	return AuditRecorderFunc(func(entry AuditEntry) error {
		m.RecordAuditEvent(entry.Surface, entry.Action, entry.StatusCode)
		return nil
	})
}

var auditedSurfaces = []string{"/admin", "/doctor", "/patient", "/account"}

// Audit logs every non-read request under the account and role surfaces
// once the handler has run, so the entry carries the final status.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			surface := auditSurface(req.URL.Path)
			if surface == "" || isReadMethod(req.Method) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Surface:    surface,
				Action:     httpMethodToAction(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				StatusCode: responseStatus(c, err),
				Timestamp:  time.Now().UTC(),
			}

			ctx := c.Request().Context()
			entry.UserID = auth.UserIDFromContext(ctx)
			entry.UserRoles = auth.RolesFromContext(ctx).Strings()
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("surface", entry.Surface).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("write")

			return err
		}
	}
}

// auditSurface returns the role surface a path belongs to, or "".
func auditSurface(path string) string {
	for _, s := range auditedSurfaces {
		if path == s || strings.HasPrefix(path, s+"/") {
			return strings.TrimPrefix(s, "/")
		}
	}
	return ""
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "other"
	}
}
