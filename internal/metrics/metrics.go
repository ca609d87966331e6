// Package metrics exposes prometheus counters for the control surface.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tOgg1/anyrun/internal/models"
)

// Metrics holds all prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Supervisor API
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Poller
	PollsTotal       *prometheus.CounterVec
	SnapshotRevision prometheus.Gauge
	Apps             *prometheus.GaugeVec

	// Dispatcher
	DispatchTotal  *prometheus.CounterVec
	PendingActions prometheus.Gauge

	// Notifications
	NotificationsTotal *prometheus.CounterVec
}

// New creates a metrics collector with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anyrun_supervisor_requests_total",
				Help: "Supervisor API requests by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anyrun_supervisor_request_duration_seconds",
				Help:    "Supervisor API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anyrun_polls_total",
				Help: "Poll ticks by outcome",
			},
			[]string{"outcome"},
		),
		SnapshotRevision: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "anyrun_snapshot_revision",
				Help: "Revision of the last published app snapshot",
			},
		),
		Apps: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "anyrun_apps",
				Help: "Managed applications by status in the last snapshot",
			},
			[]string{"status"},
		),
		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anyrun_dispatch_total",
				Help: "Lifecycle commands by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		PendingActions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "anyrun_pending_actions",
				Help: "Commands awaiting confirmation by a poll",
			},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anyrun_notifications_total",
				Help: "User notifications by level",
			},
			[]string{"level"},
		),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ObserveRequest records one supervisor API call.
func (m *Metrics) ObserveRequest(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(op, Outcome(err)).Inc()
	m.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObservePoll records a poll tick. views is ignored on failure.
func (m *Metrics) ObservePoll(err error, revision int64, views []models.AppView) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(Outcome(err)).Inc()
	if err != nil {
		return
	}
	m.SnapshotRevision.Set(float64(revision))
	counts := map[models.Status]int{
		models.StatusRunning: 0,
		models.StatusStopped: 0,
		models.StatusUnknown: 0,
	}
	for _, v := range views {
		counts[v.Status]++
	}
	for status, n := range counts {
		m.Apps.WithLabelValues(string(status)).Set(float64(n))
	}
}

// ObserveDispatch records a lifecycle command result.
func (m *Metrics) ObserveDispatch(kind models.ActionKind, err error) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(string(kind), Outcome(err)).Inc()
}

// SetPending records the number of unconfirmed commands.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingActions.Set(float64(n))
}

// ObserveNotification counts a published notification.
func (m *Metrics) ObserveNotification(level models.NotificationLevel) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(string(level)).Inc()
}

// Outcome labels an error by its kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if kind := models.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
