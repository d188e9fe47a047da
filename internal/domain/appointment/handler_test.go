package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/medbook/internal/domain/provider"
	"github.com/medbook/medbook/internal/platform/auth"
)

func withSession(userID uuid.UUID, roles ...auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := &auth.Claims{Roles: auth.NewRoleSet(roles...).Strings()}
			claims.Subject = userID.String()
			c.SetRequest(c.Request().WithContext(auth.WithSession(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// countingDoctors records whether the handler reached the doctor lookup.
type countingDoctors struct {
	DoctorResolver
	calls int
}

func (c *countingDoctors) GetByUserID(ctx context.Context, userID uuid.UUID) (*provider.Doctor, error) {
	c.calls++
	return c.DoctorResolver.GetByUserID(ctx, userID)
}

func newRouter(f *fixture, userID uuid.UUID, roles ...auth.Role) (*echo.Echo, *countingDoctors) {
	doctors := &countingDoctors{DoctorResolver: f.dir}
	h := NewHandler(f.svc, f.dir, doctors)
	e := echo.New()
	e.Use(withSession(userID, roles...))
	h.RegisterRoutes(e.Group("/patient"), e.Group("/doctor"))
	return e, doctors
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_BookAndList(t *testing.T) {
	f := newFixture(t)
	e, _ := newRouter(f, f.patient.UserID, auth.RolePatient)

	rec := serve(e, http.MethodPost, "/patient/book/"+f.doctor.ID.String(),
		`{"appointment_date":"2025-06-01","time_slot":"10:00","reason":"checkup"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var booked struct {
		Appointment Appointment `json:"appointment"`
		RedirectTo  string      `json:"redirect_to"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booked))
	assert.Equal(t, StatusPending, booked.Appointment.Status)
	assert.Equal(t, "/patient/payment/"+booked.Appointment.ID.String(), booked.RedirectTo)

	rec = serve(e, http.MethodGet, "/patient/appointments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)

	rec = serve(e, http.MethodGet, "/patient", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"upcoming":[{`)
}

func TestHandler_Book_InlineErrors(t *testing.T) {
	f := newFixture(t)
	e, _ := newRouter(f, f.patient.UserID, auth.RolePatient)

	rec := serve(e, http.MethodPost, "/patient/book/"+f.doctor.ID.String(), `{"time_slot":"10:00"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"appointment_date"`)
	assert.Empty(t, f.repo.items)
}

func TestHandler_Book_UnknownDoctor(t *testing.T) {
	f := newFixture(t)
	e, _ := newRouter(f, f.patient.UserID, auth.RolePatient)

	rec := serve(e, http.MethodPost, "/patient/book/"+uuid.NewString(), `{"appointment_date":"2025-06-01","time_slot":"10:00"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Cancel(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2025-06-01")
	e, _ := newRouter(f, f.patient.UserID, auth.RolePatient)

	rec := serve(e, http.MethodPost, "/patient/appointments/"+a.ID.String()+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, StatusCancelled, f.repo.items[a.ID].Status)
}

func TestHandler_PatientRejectedFromDoctorSurface(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2025-06-01")
	e, doctors := newRouter(f, f.patient.UserID, auth.RolePatient)

	rec := serve(e, http.MethodPost, "/doctor/appointments/"+a.ID.String()+"/status", `{"status":"Completed"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.AccessDeniedPath)
	assert.Zero(t, doctors.calls)
	assert.Equal(t, StatusPending, f.repo.items[a.ID].Status)
}

func TestHandler_DoctorSetStatus(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2025-06-01")
	e, _ := newRouter(f, f.doctor.UserID, auth.RoleDoctor)

	rec := serve(e, http.MethodPost, "/doctor/appointments/"+a.ID.String()+"/status", `{"status":"Completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, StatusCompleted, f.repo.items[a.ID].Status)

	rec = serve(e, http.MethodPost, "/doctor/appointments/"+a.ID.String()+"/status", `{"status":"Pending"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors"`)
	assert.Equal(t, StatusCompleted, f.repo.items[a.ID].Status)
}

func TestHandler_DoctorNotes(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2025-06-01")
	e, _ := newRouter(f, f.doctor.UserID, auth.RoleDoctor)

	rec := serve(e, http.MethodPost, "/doctor/appointments/"+a.ID.String()+"/notes",
		`{"consultation_notes":"stable","prescription":"aspirin"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(e, http.MethodGet, "/doctor/appointments/"+a.ID.String()+"/notes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"prescription":"aspirin"`)
}

func TestHandler_DoctorDashboard_NoProfile(t *testing.T) {
	f := newFixture(t)
	e, _ := newRouter(f, uuid.New(), auth.RoleDoctor)

	rec := serve(e, http.MethodGet, "/doctor", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, f.dir, f.dir)
	e := echo.New()
	h.RegisterRoutes(e.Group("/patient"), e.Group("/doctor"))

	rec := serve(e, http.MethodGet, "/patient/appointments", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
