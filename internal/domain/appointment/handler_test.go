package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/pkg/pagination"
)

func newTestHandler() (*Handler, *echo.Echo, *Service) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e, svc
}

func TestHandler_Create(t *testing.T) {
	h, e, _ := newTestHandler()

	body := `{"patient_id":"` + uuid.NewString() + `","doctor_id":"` + uuid.NewString() + `",
		"appointment_date":"2026-09-01T10:00:00Z","appointment_type":"CONSULTATION"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var appt Appointment
	json.Unmarshal(rec.Body.Bytes(), &appt)
	if appt.Status != StatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", appt.Status)
	}
	if appt.DurationMinutes != DefaultDuration {
		t.Errorf("expected default duration, got %d", appt.DurationMinutes)
	}
}

func TestHandler_Create_DoubleBooking(t *testing.T) {
	h, e, svc := newTestHandler()
	doctor := uuid.New()
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if _, err := svc.Create(context.Background(), bookingInput(doctor, at)); err != nil {
		t.Fatal(err)
	}

	body := `{"patient_id":"` + uuid.NewString() + `","doctor_id":"` + doctor.String() + `",
		"appointment_date":"2026-09-01T10:10:00Z","appointment_type":"CONSULTATION"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Create(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_List_Paginates(t *testing.T) {
	h, e, svc := newTestHandler()
	doctor := uuid.New()
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		svc.Create(context.Background(), bookingInput(doctor, base.Add(time.Duration(i)*time.Hour)))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?doctor_id="+doctor.String()+"&limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp pagination.Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if !resp.HasMore {
		t.Error("expected has_more true")
	}
}

func TestHandler_List_BadFilter(t *testing.T) {
	h, e, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?doctor_id=nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.List(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	h, e, svc := newTestHandler()
	appt, _ := svc.Create(context.Background(), bookingInput(uuid.New(), time.Now()))

	body := `{"status":"CONFIRMED"}`
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(appt.ID.String())

	if err := h.UpdateStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var updated Appointment
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Status != StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", updated.Status)
	}
}

func TestHandler_Cancel_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.Cancel(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
