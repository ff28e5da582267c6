package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNew_RegistersWithoutPanic(t *testing.T) {
	m := New(func() int { return 3 })
	m.Admissions.WithLabelValues("cardiology").Inc()
	m.QueueUpdates.WithLabelValues("cardiology").Add(2)
	m.OptimizerRuns.Inc()
	m.OptimizerDuration.Observe(0.02)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New(func() int { return 1 })
	m.Admissions.WithLabelValues("cardiology").Inc()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := m.Handler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "queue_admissions_total") {
		t.Error("expected queue_admissions_total in exposition")
	}
	if !strings.Contains(body, "realtime_connected_clients 1") {
		t.Error("expected connected clients gauge in exposition")
	}
}
