// Package metrics exposes Prometheus collectors for booking and availability
// traffic and the calls made to external collaborators.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meetsched"

// Result label values for booking outcomes besides the error kinds.
const (
	ResultConfirmed = "confirmed"
	ResultCancelled = "cancelled"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	bookings        *prometheus.CounterVec
	availability    *prometheus.CounterVec
	slotsOffered    prometheus.Histogram
	upstreamLatency *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
	compensations   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by outcome.",
		}, []string{"result"}),
		availability: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_requests_total",
			Help:      "Availability queries by outcome.",
		}, []string{"result"}),
		slotsOffered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_slots",
			Help:      "Number of slots returned per availability query.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Latency of calls to the calendar, store and notifier.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications handed to the dispatcher by outcome.",
		}, []string{"status"}),
		compensations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_compensations_total",
			Help:      "Calendar events cancelled because the booking could not be persisted.",
		}),
	}
	reg.MustRegister(m.bookings, m.availability, m.slotsOffered, m.upstreamLatency, m.notifications, m.compensations)
	return m
}

func (m *Metrics) BookingResult(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}

func (m *Metrics) AvailabilityServed(result string, slots int) {
	if m == nil {
		return
	}
	m.availability.WithLabelValues(result).Inc()
	if result == "ok" {
		m.slotsOffered.Observe(float64(slots))
	}
}

// ObserveUpstream records the latency of one external call started at start.
func (m *Metrics) ObserveUpstream(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.upstreamLatency.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) Compensation() {
	if m == nil {
		return
	}
	m.compensations.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve runs a dedicated /metrics listener until ctx is cancelled.
func Serve(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
