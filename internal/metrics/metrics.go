// Package metrics provides Prometheus collectors for the news service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsnearme"

var (
	// RequestsTotal counts news requests by location source and outcome kind.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_requests_total",
			Help:      "Total number of news requests",
		},
		[]string{"source", "outcome"},
	)

	// ItemsGenerated counts news items that survived parsing.
	ItemsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_items_generated_total",
			Help:      "Total number of news items returned to callers",
		},
	)

	// EntriesSkipped counts model entries dropped during parsing.
	EntriesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_entries_skipped_total",
			Help:      "Total number of malformed entries skipped in model replies",
		},
	)

	// ParseFailures counts replies with no decodable news array.
	ParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_parse_failures_total",
			Help:      "Total number of model replies that could not be decoded",
		},
	)

	// GenerationDuration measures the generative model round-trip.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of generative model calls in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// UpstreamErrors counts failed outbound calls.
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Total number of failed outbound calls",
		},
		[]string{"upstream"},
	)

	// GeoCacheLookups counts geolocation cache hits and misses.
	GeoCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_cache_lookups_total",
			Help:      "Geolocation cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordParse records the outcome of parsing one model reply.
func RecordParse(items, skipped int, malformed bool) {
	ItemsGenerated.Add(float64(items))
	EntriesSkipped.Add(float64(skipped))
	if malformed {
		ParseFailures.Inc()
	}
}
