package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anatolykoptev/go-phototag"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	analyses         *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	analysisTags     prometheus.Histogram
	uploads          *prometheus.CounterVec
	panics           *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phototag_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phototag_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phototag_analyses_total",
				Help: "Photo analyses by outcome (ok, degraded, fallback)",
			},
			[]string{"status"},
		),
		analysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "phototag_analysis_duration_seconds",
			Help:    "Photo intelligence pipeline duration",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
		analysisTags: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "phototag_analysis_tags",
			Help:    "Number of tags produced per analysis",
			Buckets: prometheus.LinearBuckets(0, 3, 6),
		}),
		uploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phototag_uploads_total",
				Help: "Uploads by the classification tier that produced the tags",
			},
			[]string{"tier"},
		),
		panics: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phototag_panics_total",
				Help: "Recovered panics inside the analysis pipeline",
			},
			[]string{"step"},
		),
	}
}

// ObserveAnalysis is wired into phototag.Config.OnAnalysis.
func (m *Metrics) ObserveAnalysis(ev phototag.AnalysisEvent) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(string(ev.Status)).Inc()
	m.analysisDuration.Observe(ev.Duration.Seconds())
	m.analysisTags.Observe(float64(ev.Tags))
}

// ObservePanic is wired into phototag.Config.OnPanic.
func (m *Metrics) ObservePanic(tag string, _ any) {
	if m == nil {
		return
	}
	m.panics.WithLabelValues(tag).Inc()
}

func (m *Metrics) observeUpload(tier string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(tier).Inc()
}

// Middleware records request count and latency by route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
