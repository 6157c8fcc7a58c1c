package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rohit/sheetconv/internal/sniff"
)

// Collector holds all Prometheus metrics
type Collector struct {
	// Conversion metrics
	ConversionsTotal    *prometheus.CounterVec
	ConversionsActive   prometheus.Gauge
	ConversionDuration  *prometheus.HistogramVec
	RowsConvertedTotal  prometheus.Counter
	RowsSkippedTotal    prometheus.Counter
	DelimitersDetected  *prometheus.CounterVec
	ConversionQueueSize prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversions_total",
				Help: "Total number of file conversions by outcome",
			},
			[]string{"status", "error_code"},
		),
		ConversionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "conversions_active",
				Help: "Number of conversions currently running",
			},
		),
		ConversionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conversion_duration_seconds",
				Help:    "Duration of file conversions in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"status"},
		),
		RowsConvertedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rows_converted_total",
				Help: "Total number of rows written to workbooks",
			},
		),
		RowsSkippedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rows_skipped_total",
				Help: "Total number of malformed rows dropped during conversion",
			},
		),
		DelimitersDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delimiters_detected_total",
				Help: "Delimiters inferred from file samples",
			},
			[]string{"delimiter"},
		),
		ConversionQueueSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "conversion_queue_size",
				Help: "Number of conversion jobs waiting for a worker",
			},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"method", "path"},
		),
	}
}

// RecordConversionStarted records when a conversion starts
func (c *Collector) RecordConversionStarted() {
	c.ConversionsActive.Inc()
}

// RecordConversionCompleted records a finished conversion. errorCode is
// empty on success.
func (c *Collector) RecordConversionCompleted(errorCode string, rows, skipped int, duration float64) {
	status := "success"
	if errorCode != "" {
		status = "error"
	}
	c.ConversionsActive.Dec()
	c.ConversionsTotal.WithLabelValues(status, errorCode).Inc()
	c.ConversionDuration.WithLabelValues(status).Observe(duration)
	c.RowsConvertedTotal.Add(float64(rows))
	c.RowsSkippedTotal.Add(float64(skipped))
}

// RecordDelimiter records a delimiter inferred from a sample
func (c *Collector) RecordDelimiter(delim rune) {
	c.DelimitersDetected.WithLabelValues(sniff.Name(delim)).Inc()
}

// SetQueueSize sets the number of queued conversion jobs
func (c *Collector) SetQueueSize(n int) {
	c.ConversionQueueSize.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request
func (c *Collector) RecordHTTPRequest(method, path, status string, duration float64) {
	c.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}
