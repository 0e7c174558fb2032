package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds ferry's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	uploads        *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	checks         *prometheus.CounterVec
	downloads      *prometheus.CounterVec
	jobs           *prometheus.GaugeVec
}

// NewMetrics builds the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ferry",
				Name:      "uploads_total",
				Help:      "CSV uploads submitted to the processing service.",
			},
			[]string{"result"},
		),
		uploadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "ferry",
				Name:      "upload_duration_seconds",
				Help:      "Upload request latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ferry",
				Name:      "checks_total",
				Help:      "Job status checks by mode.",
			},
			[]string{"mode", "result"},
		),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ferry",
				Name:      "downloads_total",
				Help:      "Processed artifacts downloaded.",
			},
			[]string{"result"},
		),
		jobs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ferry",
				Name:      "jobs",
				Help:      "Jobs in the session by status.",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(m.uploads, m.uploadDuration, m.checks, m.downloads, m.jobs)
	return m
}

// Registry exposes the underlying registry for tests and handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveUpload records one upload attempt that took d.
func (m *Metrics) ObserveUpload(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result(err)).Inc()
	m.uploadDuration.Observe(d.Seconds())
}

// ObserveCheck records one status check.
func (m *Metrics) ObserveCheck(mode string, err error) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(mode, result(err)).Inc()
}

// ObserveDownload records one artifact download.
func (m *Metrics) ObserveDownload(err error) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(result(err)).Inc()
}

// SetJobCounts replaces the per-status job gauge.
func (m *Metrics) SetJobCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.jobs.Reset()
	for status, n := range counts {
		m.jobs.WithLabelValues(status).Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on bind until ctx is cancelled. An empty bind is a no-op.
func (m *Metrics) Serve(ctx context.Context, bind string, logger *slog.Logger) error {
	bind = strings.TrimSpace(bind)
	if m == nil || bind == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return nil
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
