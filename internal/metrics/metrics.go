// Package metrics exposes pipeline and emergency counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Recorder holds drishti's collectors on a private registry. A nil Recorder
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	stageFailures  *prometheus.CounterVec
	duration       prometheus.Histogram
	hazards        *prometheus.CounterVec
	speechFallback prometheus.Counter
	emergencyTicks *prometheus.CounterVec
}

// New registers every drishti collector on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drishti",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drishti",
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Terminal pipeline failures by stage.",
		}, []string{"stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drishti",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end pipeline run duration.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21},
		}),
		hazards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drishti",
			Name:      "hazards_detected_total",
			Help:      "Hazards reported to the user by keyword.",
		}, []string{"keyword"}),
		speechFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drishti",
			Name:      "speech_fallbacks_total",
			Help:      "Announcements spoken by the local fallback synthesizer.",
		}),
		emergencyTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drishti",
			Name:      "emergency_ticks_total",
			Help:      "Emergency monitoring ticks by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		r.runs,
		r.stageFailures,
		r.duration,
		r.hazards,
		r.speechFallback,
		r.emergencyTicks,
	)
	return r
}

// Registry exposes the underlying registry for handlers and tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRun records one finished pipeline run. stage is empty on success.
func (r *Recorder) ObserveRun(stage string, elapsed time.Duration) {
	if r == nil {
		return
	}
	if stage == "" {
		r.runs.WithLabelValues(OutcomeOK).Inc()
	} else {
		r.runs.WithLabelValues(OutcomeFailed).Inc()
		r.stageFailures.WithLabelValues(stage).Inc()
	}
	r.duration.Observe(elapsed.Seconds())
}

// ObserveHazards counts each reported hazard keyword.
func (r *Recorder) ObserveHazards(keywords []string) {
	if r == nil {
		return
	}
	for _, keyword := range keywords {
		r.hazards.WithLabelValues(keyword).Inc()
	}
}

// ObserveSpeechFallback counts one fallback announcement.
func (r *Recorder) ObserveSpeechFallback() {
	if r == nil {
		return
	}
	r.speechFallback.Inc()
}

// ObserveEmergencyTick counts one monitoring tick.
func (r *Recorder) ObserveEmergencyTick(failed bool) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeFailed
	}
	r.emergencyTicks.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return r.serveListener(ctx, listener, logger)
}

func (r *Recorder) serveListener(ctx context.Context, listener net.Listener, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("metrics endpoint listening", "addr", listener.Addr().String())
	}
	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
