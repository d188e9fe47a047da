package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	ClaimsKey    contextKey = "session_claims"
)

// SessionCookieName carries the session token for browser clients.
const SessionCookieName = "medbook_session"

type SessionConfig struct {
	Issuer      *TokenIssuer
	Revocations RevocationStore
	Logger      zerolog.Logger
}

// SessionMiddleware resolves the caller from a bearer token or the session
// cookie. Requests without a valid session continue anonymously; role
// checks happen in RequireRole.
func SessionMiddleware(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := tokenFromRequest(c.Request())
			if tokenStr == "" {
				return next(c)
			}

			claims, err := cfg.Issuer.Parse(tokenStr)
			if err != nil {
				cfg.Logger.Debug().Err(err).Msg("ignoring invalid session token")
				ClearSessionCookie(c)
				return next(c)
			}

			ctx := c.Request().Context()
			if cfg.Revocations != nil {
				revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID)
				if err != nil {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable").SetInternal(err)
				}
				if revoked {
					ClearSessionCookie(c)
					return next(c)
				}
			}

			c.Set("user_id", claims.Subject)
			c.SetRequest(c.Request().WithContext(WithSession(ctx, claims)))
			return next(c)
		}
	}
}

func tokenFromRequest(req *http.Request) string {
	if h := req.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := req.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// WithSession stores the authenticated caller on ctx.
func WithSession(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, UserRolesKey, claims.Roles)
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return ctx
}

// SetSessionCookie writes the token as an HttpOnly cookie.
func SetSessionCookie(c echo.Context, token string, expires time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// UserUUIDFromContext parses the caller's id.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, error) {
	uid := UserIDFromContext(ctx)
	if uid == "" {
		return uuid.Nil, fmt.Errorf("no authenticated user")
	}
	return uuid.Parse(uid)
}

func RolesFromContext(ctx context.Context) RoleSet {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return ParseRoleSet(roles)
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}
