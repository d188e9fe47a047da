package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *testDeps, *echo.Echo) {
	svc, deps := newTestService(t)
	return NewHandler(svc), deps, echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func asUser(req *http.Request, userID uuid.UUID, roles ...auth.Role) *http.Request {
	claims := &auth.Claims{Roles: auth.NewRoleSet(roles...).Strings()}
	claims.Subject = userID.String()
	return req.WithContext(auth.WithSession(req.Context(), claims))
}

func TestHandler_CreateDoctor(t *testing.T) {
	h, deps, e := newTestHandler(t)
	sp := deps.catalog.add("Cardiology")

	body := `{"email":"house@medbook.test","password":"vicodin1","first_name":"Gregory","last_name":"House",` +
		`"specialty_id":"` + sp.ID.String() + `","consultation_fee":"500.00"}`
	rec := httptest.NewRecorder()
	if err := h.CreateDoctor(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var d Doctor
	json.Unmarshal(rec.Body.Bytes(), &d)
	if d.SpecialtyName != "Cardiology" || d.ConsultationFee.String() != "500" {
		t.Errorf("unexpected doctor %+v", d)
	}
}

func TestHandler_CreateDoctor_InlineErrors(t *testing.T) {
	h, _, e := newTestHandler(t)

	rec := httptest.NewRecorder()
	if err := h.CreateDoctor(e.NewContext(jsonRequest(http.MethodPost, `{"email":"bad"}`), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"errors"`) {
		t.Errorf("expected inline form errors, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ListDoctors(t *testing.T) {
	h, deps, e := newTestHandler(t)
	sp := deps.catalog.add("Cardiology")
	h.svc.CreateDoctor(context.Background(), validDoctor(sp.ID))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/admin/doctors?limit=10", nil), rec)
	if err := h.ListDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Total int      `json:"total"`
		Data  []Doctor `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Errorf("unexpected response %s", rec.Body.String())
	}
}

func TestHandler_EditDoctorForm(t *testing.T) {
	h, deps, e := newTestHandler(t)
	sp := deps.catalog.add("Cardiology")
	d, _ := h.svc.CreateDoctor(context.Background(), validDoctor(sp.ID))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())
	if err := h.EditDoctorForm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"specialties"`) {
		t.Errorf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_DeleteDoctor_InvalidID(t *testing.T) {
	h, _, e := newTestHandler(t)

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	err := h.DeleteDoctor(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_DeleteDoctor_Conflict(t *testing.T) {
	h, deps, e := newTestHandler(t)
	sp := deps.catalog.add("Cardiology")
	d, _ := h.svc.CreateDoctor(context.Background(), validDoctor(sp.ID))
	deps.doctors.appointments[d.ID] = 1

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())
	if err := h.DeleteDoctor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestHandler_Profile(t *testing.T) {
	h, deps, e := newTestHandler(t)
	sp := deps.catalog.add("Cardiology")
	d, _ := h.svc.CreateDoctor(context.Background(), validDoctor(sp.ID))

	req := asUser(jsonRequest(http.MethodPost, `{"bio":"Diagnostics","consultation_fee":800,"is_available":false}`),
		d.UserID, auth.RoleDoctor)
	rec := httptest.NewRecorder()
	if err := h.UpdateProfile(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = asUser(httptest.NewRequest(http.MethodGet, "/", nil), d.UserID, auth.RoleDoctor)
	rec = httptest.NewRecorder()
	if err := h.GetProfile(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Doctor
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.IsAvailable || got.Bio == nil || *got.Bio != "Diagnostics" {
		t.Errorf("unexpected profile %+v", got)
	}
}

func TestHandler_Profile_NotADoctor(t *testing.T) {
	h, _, e := newTestHandler(t)

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New(), auth.RoleDoctor)
	rec := httptest.NewRecorder()
	if err := h.GetProfile(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_SearchDoctors(t *testing.T) {
	h, deps, e := newTestHandler(t)
	sp := deps.catalog.add("Cardiology")
	h.svc.CreateDoctor(context.Background(), validDoctor(sp.ID))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/patient/search?specialty=Cardio&location=Prince", nil), rec)
	if err := h.SearchDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Doctors []Doctor `json:"doctors"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Doctors) != 1 {
		t.Errorf("expected 1 doctor, got %s", rec.Body.String())
	}
}
