package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHealthHandler(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		h := healthHandler(map[string]HealthFunc{
			"redis": func(context.Context) error { return nil },
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("failing dependency", func(t *testing.T) {
		h := healthHandler(map[string]HealthFunc{
			"postgres": func(context.Context) error { return errors.New("conn refused") },
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "postgres unhealthy") {
			t.Errorf("body = %q", rec.Body.String())
		}
	})
}

func TestNewCycle(t *testing.T) {
	reg := NewRegistry()
	c := NewCycle(reg)

	c.Cycles.WithLabelValues("compare", "ok").Inc()
	c.Faults.WithLabelValues("missing_runner").Add(2)

	if got := testutil.ToFloat64(c.Cycles.WithLabelValues("compare", "ok")); got != 1 {
		t.Errorf("cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Faults.WithLabelValues("missing_runner")); got != 2 {
		t.Errorf("faults = %v, want 2", got)
	}
}
