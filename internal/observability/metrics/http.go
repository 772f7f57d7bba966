package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	extractTotal    *prometheus.CounterVec
	extractDuration *prometheus.HistogramVec
	resolvedFields  *prometheus.HistogramVec
	fieldTotal      *prometheus.CounterVec
	warningTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invext",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invext",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "invext",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	extractTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invext",
			Subsystem: "extract",
			Name:      "records_total",
			Help:      "Total records produced per endpoint.",
		},
		[]string{"service", "endpoint"},
	)
	extractDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invext",
			Subsystem: "extract",
			Name:      "duration_seconds",
			Help:      "Engine run duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"service", "endpoint"},
	)
	resolvedFields := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invext",
			Subsystem: "extract",
			Name:      "resolved_fields",
			Help:      "Distribution of resolved fields per record.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		[]string{"service", "endpoint"},
	)
	fieldTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invext",
			Subsystem: "extract",
			Name:      "fields_resolved_total",
			Help:      "Total resolved occurrences per field kind.",
		},
		[]string{"service", "field"},
	)
	warningTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invext",
			Subsystem: "extract",
			Name:      "warnings_total",
			Help:      "Total record warnings by kind.",
		},
		[]string{"service", "kind"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		extractTotal,
		extractDuration,
		resolvedFields,
		fieldTotal,
		warningTotal,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		extractTotal:    extractTotal,
		extractDuration: extractDuration,
		resolvedFields:  resolvedFields,
		fieldTotal:      fieldTotal,
		warningTotal:    warningTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps extraction IDs out of the path label.
func normalizePath(path string) string {
	if rest, ok := strings.CutPrefix(path, "/v1/extractions/"); ok && rest != "" {
		if strings.HasSuffix(rest, "/record") {
			return "/v1/extractions/{extraction_id}/record"
		}
		return "/v1/extractions/{extraction_id}"
	}
	return path
}

// RecordExtraction tracks one produced record: how long the engine ran, how
// many fields it resolved, and which field kinds were present.
func (m *HTTPServerMetrics) RecordExtraction(service, endpoint string, resolvedKinds []string, warningKinds []string, duration time.Duration) {
	m.extractTotal.WithLabelValues(service, endpoint).Inc()
	m.extractDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	m.resolvedFields.WithLabelValues(service, endpoint).Observe(float64(len(resolvedKinds)))

	for _, field := range resolvedKinds {
		m.fieldTotal.WithLabelValues(service, field).Inc()
	}
	for _, kind := range warningKinds {
		m.warningTotal.WithLabelValues(service, kind).Inc()
	}
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
