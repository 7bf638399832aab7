package service

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	generationRuns     *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	entriesGenerated   prometheus.Counter
	conflictsDetected  prometheus.Counter
	optimizerFailures  *prometheus.CounterVec
	solverGenerations  prometheus.Histogram
	jobTransitions     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	generationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generation_runs_total",
		Help: "Generation runs by method and outcome",
	}, []string{"method", "outcome"})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Wall-clock duration of generation runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"method"})

	entriesGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_entries_generated_total",
		Help: "Timetable entries committed by generation runs",
	})

	conflictsDetected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_conflicts_detected_total",
		Help: "Conflicts recorded while committing generated timetables",
	})

	optimizerFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_remote_optimizer_failures_total",
		Help: "Remote optimiser calls abandoned, by reason",
	}, []string{"reason"})

	solverGenerations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_solver_generations",
		Help:    "Generations run by the genetic solver before stopping",
		Buckets: prometheus.ExponentialBuckets(10, 2, 8),
	})

	jobTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generation_jobs_total",
		Help: "Generation job status transitions",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, generationRuns, generationDuration, entriesGenerated,
		conflictsDetected, optimizerFailures, solverGenerations, jobTransitions, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		generationRuns:     generationRuns,
		generationDuration: generationDuration,
		entriesGenerated:   entriesGenerated,
		conflictsDetected:  conflictsDetected,
		optimizerFailures:  optimizerFailures,
		solverGenerations:  solverGenerations,
		jobTransitions:     jobTransitions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveGeneration records the outcome of one generation run.
func (m *MetricsService) ObserveGeneration(method models.GenerationMethod, success bool, duration time.Duration, entries, conflicts int) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	label := string(method)
	if label == "" {
		label = "none"
	}
	m.generationRuns.WithLabelValues(label, outcome).Inc()
	m.generationDuration.WithLabelValues(label).Observe(duration.Seconds())
	if success {
		m.entriesGenerated.Add(float64(entries))
		m.conflictsDetected.Add(float64(conflicts))
	}
}

// ObserveSolver records how long the genetic search ran.
func (m *MetricsService) ObserveSolver(generations int) {
	if m == nil {
		return
	}
	m.solverGenerations.Observe(float64(generations))
}

// ObserveJob counts a job status transition.
func (m *MetricsService) ObserveJob(status models.GenerationStatus) {
	if m == nil {
		return
	}
	m.jobTransitions.WithLabelValues(string(status)).Inc()
}

// OptimizerFailed counts abandoned remote optimiser calls.
func (m *MetricsService) OptimizerFailed(_ context.Context, failure models.OptimizerFailure) {
	if m == nil {
		return
	}
	m.optimizerFailures.WithLabelValues(string(failure.Reason)).Inc()
}
