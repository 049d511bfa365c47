// Package metrics holds the self-monitoring Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai4ops_mcp_tool_invocations_total",
			Help: "Total number of tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai4ops_mcp_backend_call_duration_seconds",
			Help:    "Query backend call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report", "backend", "status"},
	)

	ResultRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai4ops_mcp_result_rows",
			Help:    "Number of rows returned per report",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"report"},
	)
)

// ObserveBackendCall records one backend round trip.
func ObserveBackendCall(report, backend string, ok bool, d time.Duration) {
	status := "success"
	if !ok {
		status = "error"
	}
	BackendCallDuration.WithLabelValues(report, backend, status).Observe(d.Seconds())
}

// ObserveToolInvocation records a finished tool call. outcome is "success",
// "error" or "invalid".
func ObserveToolInvocation(tool, outcome string, rows int) {
	ToolInvocationsTotal.WithLabelValues(tool, outcome).Inc()
	if outcome == "success" {
		ResultRows.WithLabelValues(tool).Observe(float64(rows))
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
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
