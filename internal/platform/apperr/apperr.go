// Package apperr defines the error kinds shared by every domain package and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

// AccessDeniedPath is where clients are sent when a role check fails.
const AccessDeniedPath = "/account/access-denied"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// kindError carries a user-facing message while matching one of the
// sentinel kinds through errors.Is.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string        { return e.msg }
func (e *kindError) Is(target error) bool { return target == e.kind }

// NotFound reports an unknown id, or an id the caller does not own.
func NotFound(what string) error {
	return &kindError{kind: ErrNotFound, msg: what + " not found"}
}

// Conflict reports a duplicate or a write blocked by dependent rows.
func Conflict(format string, args ...interface{}) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// Forbidden reports a missing role.
func Forbidden(msg string) error {
	return &kindError{kind: ErrForbidden, msg: msg}
}

// FieldError is a single inline form error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects form errors. It is rendered as a normal response
// so clients can show the messages next to their inputs.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// OrNil returns nil when no field errors were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid is shorthand for a single-field ValidationError.
func Invalid(field, message string) error {
	return (&ValidationError{}).Add(field, message)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// FromDB translates driver errors into the taxonomy. what names the entity
// for NotFound messages.
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Conflict("%s already exists", what)
		case pgForeignKeyViolation:
			return Conflict("%s is still referenced", what)
		}
	}
	return err
}

// Respond writes err to the client according to its kind. Unclassified
// errors become a 500 whose cause is kept as the internal error for logging.
func Respond(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusOK, ve)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"message": err.Error()})
	case errors.Is(err, ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]string{
			"message":     err.Error(),
			"redirect_to": AccessDeniedPath,
		})
	case errors.Is(err, ErrConflict):
		return c.JSON(http.StatusConflict, map[string]string{"message": err.Error()})
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
