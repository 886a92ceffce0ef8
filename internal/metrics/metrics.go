// Package metrics exposes Prometheus collectors for the task pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "podcastforge"

// Collectors groups the pipeline's metrics. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	registry *prometheus.Registry

	tasksSubmitted    *prometheus.CounterVec
	tasksFinished     *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	tasksInFlight     prometheus.Gauge
	highlights        *prometheus.CounterVec
	fastPath          *prometheus.CounterVec
	modelAttempts     *prometheus.CounterVec
	storedObjectBytes *prometheus.HistogramVec
}

// New registers the pipeline collectors on a fresh registry that also carries
// the Go and process collectors.
func New(namespace string) *Collectors {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = defaultNamespace
	}
	c := &Collectors{registry: prometheus.NewRegistry()}

	c.tasksSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_submitted_total",
		Help:      "Tasks accepted for processing by input type.",
	}, []string{"input_type"})
	c.tasksFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_finished_total",
		Help:      "Tasks that reached a terminal state by input type, status and error kind.",
	}, []string{"input_type", "status", "error_kind"})
	c.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall time spent in each pipeline stage.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})
	c.tasksInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_in_flight",
		Help:      "Tasks currently being processed.",
	})
	c.highlights = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "highlights_total",
		Help:      "Highlight generation outcomes by target duration.",
	}, []string{"target", "status"})
	c.fastPath = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fast_path_total",
		Help:      "Video fast-path analysis outcomes.",
	}, []string{"outcome"})
	c.modelAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_attempts_total",
		Help:      "Chat completion attempts by model and outcome.",
	}, []string{"model", "outcome"})
	c.storedObjectBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stored_object_bytes",
		Help:      "Size of uploaded audio objects.",
		Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
	}, []string{"kind"})

	c.registry.MustRegister(
		c.tasksSubmitted,
		c.tasksFinished,
		c.stageDuration,
		c.tasksInFlight,
		c.highlights,
		c.fastPath,
		c.modelAttempts,
		c.storedObjectBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// TaskSubmitted counts an accepted submission.
func (c *Collectors) TaskSubmitted(inputType string) {
	if c == nil {
		return
	}
	c.tasksSubmitted.WithLabelValues(inputType).Inc()
}

// TaskStarted marks a task as in flight.
func (c *Collectors) TaskStarted() {
	if c == nil {
		return
	}
	c.tasksInFlight.Inc()
}

// TaskFinished records a terminal state. errorKind is empty for completions.
func (c *Collectors) TaskFinished(inputType, status, errorKind string) {
	if c == nil {
		return
	}
	c.tasksInFlight.Dec()
	c.tasksFinished.WithLabelValues(inputType, status, errorKind).Inc()
}

// ObserveStage records the time spent in stage.
func (c *Collectors) ObserveStage(stage string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Highlight records one highlight outcome ("created" or "skipped").
func (c *Collectors) Highlight(target int, status string) {
	if c == nil {
		return
	}
	c.highlights.WithLabelValues(strconv.Itoa(target), status).Inc()
}

// FastPath records a fast-path outcome ("accepted", "rejected", "error", "disabled").
func (c *Collectors) FastPath(outcome string) {
	if c == nil {
		return
	}
	c.fastPath.WithLabelValues(outcome).Inc()
}

// ModelAttempt records one chat completion attempt.
func (c *Collectors) ModelAttempt(model, outcome string) {
	if c == nil {
		return
	}
	c.modelAttempts.WithLabelValues(model, outcome).Inc()
}

// StoredObject records the size of an uploaded object of the given kind.
func (c *Collectors) StoredObject(kind string, bytes int) {
	if c == nil {
		return
	}
	c.storedObjectBytes.WithLabelValues(kind).Observe(float64(bytes))
}
