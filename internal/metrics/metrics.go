package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsections",
			Name:      "pages_rendered_total",
			Help:      "Total page image renders by format and result",
		},
		[]string{"format", "result"},
	)

	renderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsections",
			Name:      "render_duration_seconds",
			Help:      "Duration of page rendering by format",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	textExtractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsections",
			Name:      "text_extractions_total",
			Help:      "Total page text extractions by result",
		},
		[]string{"result"},
	)

	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsections",
			Name:      "cache_operations_total",
			Help:      "Render cache lookups by kind (image, text) and outcome (hit, miss, error)",
		},
		[]string{"kind", "outcome"},
	)

	exportJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsections",
			Name:      "export_jobs_total",
			Help:      "Section export jobs by result (success, failed, cancelled)",
		},
		[]string{"result"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docsections",
			Name:      "queue_depth",
			Help:      "Export queue depth gauges for stream, delayed and dlq",
		},
		[]string{"type"},
	)

	sectionsServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docsections",
			Name:      "sections_served_total",
			Help:      "Total section resolutions served",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(pagesRendered, renderLatency, textExtractions, cacheOps, exportJobs, queueDepth, sectionsServed)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveRender(format, result string, dur time.Duration) {
	pagesRendered.WithLabelValues(format, result).Inc()
	renderLatency.WithLabelValues(format).Observe(dur.Seconds())
}

func IncExtraction(result string) { textExtractions.WithLabelValues(result).Inc() }

func IncCache(kind, outcome string) { cacheOps.WithLabelValues(kind, outcome).Inc() }

func IncExport(result string) { exportJobs.WithLabelValues(result).Inc() }

func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }

func IncSectionServed() { sectionsServed.Inc() }
