// Package metrics exposes Prometheus counters for session issuance and
// refresh token reclamation. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authkeeper"

type Metrics struct {
	registry        *prometheus.Registry
	sessionsIssued  *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	tokensReclaimed prometheus.Counter
	sweepFailures   prometheus.Counter
}

// New registers all collectors, plus the Go and process collectors, on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Token pairs issued, by operation.",
		}, []string{"op"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentication_failures_total",
			Help:      "Rejected credentials or refresh tokens, by operation.",
		}, []string{"op"}),
		tokensReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_tokens_reclaimed_total",
			Help:      "Expired refresh tokens removed by the reclaimer.",
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclaimer_sweep_failures_total",
			Help:      "Reclaimer sweeps that returned an error.",
		}),
	}

	m.registry.MustRegister(
		m.sessionsIssued,
		m.authFailures,
		m.tokensReclaimed,
		m.sweepFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) SessionIssued(op string) {
	if m == nil {
		return
	}
	m.sessionsIssued.WithLabelValues(op).Inc()
}

func (m *Metrics) AuthFailed(op string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) TokensReclaimed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensReclaimed.Add(float64(n))
}

func (m *Metrics) SweepFailed() {
	if m == nil {
		return
	}
	m.sweepFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Starting metrics server", "address", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
