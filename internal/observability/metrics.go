package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for both
// pipeline processes. Each binary touches only its own subset; registering
// the full set keeps dashboards uniform.
type Metrics struct {
	// Producer side.
	ForecastRequests *prometheus.CounterVec // labels: source={live,fallback}
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
	PublishDuration  prometheus.Histogram
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint={geocoding,forecast}

	// Consumer side.
	MessagesConsumed prometheus.Counter
	DecodeErrors     prometheus.Counter
	RecordsPersisted prometheus.Counter
	PersistErrors    prometheus.Counter
	ConsumerRunning  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ForecastRequests,
		m.RecordsPublished,
		m.PublishErrors,
		m.PublishDuration,
		m.UpstreamDuration,
		m.MessagesConsumed,
		m.DecodeErrors,
		m.RecordsPersisted,
		m.PersistErrors,
		m.ConsumerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "forecast_requests_total",
			Help:      "Forecast fetches by batch source (live or fallback).",
		}, []string{"source"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "records_published_total",
			Help:      "Total weather records written to the stream topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "publish_errors_total",
			Help:      "Total failed stream sends.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_pipeline",
			Name:      "publish_duration_seconds",
			Help:      "Duration of publishing one request's batch of records.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_pipeline",
			Name:      "upstream_request_duration_seconds",
			Help:      "Open-Meteo API request duration by endpoint.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the stream topic.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "decode_errors_total",
			Help:      "Total malformed messages dropped by the consumer.",
		}),
		RecordsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "records_persisted_total",
			Help:      "Total records upserted into storage.",
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "persist_errors_total",
			Help:      "Total storage write failures (messages still committed).",
		}),
		ConsumerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_pipeline",
			Name:      "consumer_running",
			Help:      "1 when the consumer loop is active, 0 when shut down.",
		}),
	}
}
