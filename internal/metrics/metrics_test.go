package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/x", 200, time.Millisecond)
		m.EventsServed(3)
		m.ICSFetchFailed("vet")
		m.CaptureDone(nil)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRequest("/api/appointments", 200, 5*time.Millisecond)
	m.ObserveRequest("/api/appointments", 200, 5*time.Millisecond)
	m.ObserveRequest("/api/appointments", 400, time.Millisecond)
	m.EventsServed(4)
	m.ICSFetchFailed("vet")
	m.CaptureDone(errors.New("no chrome"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `apptcal_http_requests_total{code="200",route="/api/appointments"} 2`)
	assert.Contains(t, body, `apptcal_http_requests_total{code="400",route="/api/appointments"} 1`)
	assert.Contains(t, body, "apptcal_calendar_events_served_total 4")
	assert.Contains(t, body, `apptcal_ics_fetch_failures_total{source="vet"} 1`)
	assert.Contains(t, body, `apptcal_preview_captures_total{result="error"} 1`)
}
