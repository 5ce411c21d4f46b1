package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics registers and records all service metrics: the generic
// HTTP surface plus the question-answering pipeline.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	asksTotal           *prometheus.CounterVec
	refusalsTotal       *prometheus.CounterVec
	retrievedCandidates *prometheus.HistogramVec
	askDuration         *prometheus.HistogramVec
	refreshTotal        *prometheus.CounterVec
	refreshDuration     prometheus.Histogram
	rerankFallbackTotal prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memberqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "memberqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	asksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "qa",
			Name:      "asks_total",
			Help:      "Total answered questions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	refusalsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "qa",
			Name:      "refusals_total",
			Help:      "Total gatekeeper refusals by reason.",
		},
		[]string{"service", "reason"},
	)
	retrievedCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memberqa",
			Subsystem: "qa",
			Name:      "retrieved_candidates",
			Help:      "Distribution of retrieved candidates per question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memberqa",
			Subsystem: "qa",
			Name:      "ask_duration_seconds",
			Help:      "End-to-end question handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	refreshTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "corpus",
			Name:      "refresh_total",
			Help:      "Total corpus refresh attempts by status.",
		},
		[]string{"service", "status"},
	)
	refreshDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "memberqa",
			Subsystem: "corpus",
			Name:      "refresh_duration_seconds",
			Help:      "Corpus fetch-and-rebuild duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rerankFallbackTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "qa",
			Name:      "rerank_fallback_total",
			Help:      "Total searches served in fused order because reranking was unavailable or failed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		asksTotal,
		refusalsTotal,
		retrievedCandidates,
		askDuration,
		refreshTotal,
		refreshDuration,
		rerankFallbackTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		service:             service,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		asksTotal:           asksTotal,
		refusalsTotal:       refusalsTotal,
		retrievedCandidates: retrievedCandidates,
		askDuration:         askDuration,
		refreshTotal:        refreshTotal,
		refreshDuration:     refreshDuration,
		rerankFallbackTotal: rerankFallbackTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordAsk tracks one handled question. Outcome is answered, refused or
// error; reason is set only for refusals.
func (m *HTTPServerMetrics) RecordAsk(service, outcome, reason string, candidates int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.asksTotal.WithLabelValues(service, outcome).Inc()
	m.retrievedCandidates.WithLabelValues(service).Observe(float64(candidates))
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())
	if reason != "" {
		m.refusalsTotal.WithLabelValues(service, reason).Inc()
	}
}

// ObserveRefresh implements the corpus refresh observer.
func (m *HTTPServerMetrics) ObserveRefresh(err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.refreshTotal.WithLabelValues(m.service, status).Inc()
	m.refreshDuration.Observe(took.Seconds())
}

func (m *HTTPServerMetrics) RecordRerankFallback() {
	m.rerankFallbackTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
