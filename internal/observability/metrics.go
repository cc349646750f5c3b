package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the imagery
// pipeline.
type Metrics struct {
	Requests        *prometheus.CounterVec // labels: outcome={success,error}
	RequestDuration prometheus.Histogram

	// Fetch metrics.
	FetchDuration prometheus.Histogram
	DownloadBytes prometheus.Histogram

	// Decode and cache metrics.
	DecodeStrategy *prometheus.CounterVec // labels: strategy={strict,heuristic}
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vissr",
			Name:      "requests_total",
			Help:      "Imagery generation requests by outcome.",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vissr",
			Name:      "request_duration_seconds",
			Help:      "End-to-end duration of one fetch-decode-render pipeline run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vissr",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of the FTP download and unpack step.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DownloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vissr",
			Name:      "download_bytes",
			Help:      "Size of the downloaded hourly archive in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1<<16, 4, 8),
		}),
		DecodeStrategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vissr",
			Name:      "decode_strategy_total",
			Help:      "Successful decodes by strategy.",
		}, []string{"strategy"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vissr",
			Name:      "cache_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.FetchDuration,
		m.DownloadBytes,
		m.DecodeStrategy,
		m.CacheLookups,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Requests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "vissr", Name: "requests_total"}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "vissr", Name: "request_duration_seconds"}),
		FetchDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "vissr", Name: "fetch_duration_seconds"}),
		DownloadBytes:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "vissr", Name: "download_bytes"}),
		DecodeStrategy:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "vissr", Name: "decode_strategy_total"}, []string{"strategy"}),
		CacheLookups:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "vissr", Name: "cache_total"}, []string{"result"}),
	}
}
