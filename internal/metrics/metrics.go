// Package metrics records tool-call counters and latencies for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tool call outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // domain outcome such as insufficient stock
	OutcomeInvalid  = "invalid"  // malformed arguments
	OutcomeError    = "error"
)

// Recorder holds the tool-call metrics on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates and registers the metrics
func NewRecorder() *Recorder {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicecart",
		Subsystem: "mcp",
		Name:      "tool_calls_total",
		Help:      "Total number of tool calls by tool and outcome.",
	}, []string{"tool", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voicecart",
		Subsystem: "mcp",
		Name:      "tool_call_duration_seconds",
		Help:      "Tool call latency in seconds.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"tool"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(calls, duration)
	return &Recorder{registry: registry, calls: calls, duration: duration}
}

// ObserveToolCall records one finished call
func (r *Recorder) ObserveToolCall(tool, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calls.WithLabelValues(tool, outcome).Inc()
	r.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Handler exposes the metrics in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
