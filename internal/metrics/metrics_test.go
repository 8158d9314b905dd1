package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BookingResult(ResultConfirmed)
		m.AvailabilityServed("ok", 3)
		m.ObserveUpstream("calendar.query_busy", time.Now(), nil)
		m.Notification(errors.New("x"))
		m.Compensation()
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.BookingResult(ResultConfirmed)
	m.BookingResult(ResultConfirmed)
	m.BookingResult("LOCAL_CONFLICT")
	m.Compensation()
	m.Notification(nil)
	m.Notification(errors.New("smtp down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues(ResultConfirmed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookings.WithLabelValues("LOCAL_CONFLICT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.AvailabilityServed("ok", 4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "meetsched_availability_requests_total")
	assert.Contains(t, rec.Body.String(), "meetsched_availability_slots_bucket")
}
