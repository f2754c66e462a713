// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors exported by the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mkbridge_store_entries",
		Help: "Entries physically present in each TTL store (stale entries included until swept)",
	}, []string{"store"})

	storeEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mkbridge_store_evictions_total",
		Help: "Entries removed by the periodic sweep",
	}, []string{"store"})

	storeLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mkbridge_store_lookups_total",
		Help: "Store reads by result; expired entries count as misses",
	}, []string{"store", "result"}) // result=hit|miss

	streamLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mkbridge_stream_lookups_total",
		Help: "Stream lookups observed by integration mode",
	}, []string{"mode", "type"}) // mode=zeroconf|wrapper

	identifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mkbridge_identify_total",
		Help: "Identify queries by outcome",
	}, []string{"outcome"}) // outcome=found|found_resume|not_found

	resumeReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mkbridge_resume_reports_total",
		Help: "Resume reports by outcome",
	}, []string{"outcome"}) // outcome=saved|cleared|rejected

	metadataLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mkbridge_metadata_lookups_total",
		Help: "Metadata resolutions by outcome",
	}, []string{"outcome"}) // outcome=hit|fetched|fallback

	upstreamFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mkbridge_upstream_fetches_total",
		Help: "Wrapper-mode upstream stream fetches by outcome",
	}, []string{"outcome"}) // outcome=success|bad_status|error|invalid_base|circuit_open

	upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mkbridge_upstream_fetch_duration_seconds",
		Help:    "Latency of upstream stream fetches",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
	})

	catalogItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mkbridge_catalog_items",
		Help: "Items returned by the last continue-watching catalog request per type",
	}, []string{"type"})

	breakerCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mkbridge_circuit_breakers",
		Help: "Live circuit breakers per guarded component in each state (closed|half-open|open)",
	}, []string{"component", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mkbridge_circuit_breaker_trips_total",
		Help: "Transitions of a circuit breaker into the open state",
	}, []string{"component", "reason"}) // reason=threshold_exceeded|half_open_failure
)

// SetStoreSize records the physical size of a store.
func SetStoreSize(store string, n int) {
	storeSize.WithLabelValues(store).Set(float64(n))
}

// AddStoreEvictions adds swept entries to the eviction counter.
func AddStoreEvictions(store string, n int) {
	if n > 0 {
		storeEvictions.WithLabelValues(store).Add(float64(n))
	}
}

// RecordStoreLookup counts a store read as a hit or a miss.
func RecordStoreLookup(store string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	storeLookups.WithLabelValues(store, result).Inc()
}

// typeLabel keeps caller-supplied content types from growing label cardinality.
func typeLabel(contentType string) string {
	switch contentType {
	case "movie", "series":
		return contentType
	default:
		return "other"
	}
}

// RecordStreamLookup counts a stream lookup for mode and content type.
func RecordStreamLookup(mode, contentType string) {
	streamLookups.WithLabelValues(mode, typeLabel(contentType)).Inc()
}

// RecordIdentify counts an identify query outcome.
func RecordIdentify(outcome string) {
	identifyTotal.WithLabelValues(outcome).Inc()
}

// RecordResumeReport counts a resume report outcome.
func RecordResumeReport(outcome string) {
	resumeReports.WithLabelValues(outcome).Inc()
}

// RecordMetadataLookup counts a metadata resolution outcome.
func RecordMetadataLookup(outcome string) {
	metadataLookups.WithLabelValues(outcome).Inc()
}

// RecordUpstreamFetch counts an upstream fetch outcome and its latency.
func RecordUpstreamFetch(outcome string, seconds float64) {
	upstreamFetches.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		upstreamDuration.Observe(seconds)
	}
}

// SetCatalogItems records the size of the last catalog response for a type.
func SetCatalogItems(contentType string, n int) {
	catalogItems.WithLabelValues(typeLabel(contentType)).Set(float64(n))
}

// MoveCircuitBreaker moves one breaker of component between states. An empty
// from registers a new breaker; an empty to releases one.
func MoveCircuitBreaker(component, from, to string) {
	if from == to {
		return
	}
	if from != "" {
		breakerCount.WithLabelValues(component, from).Dec()
	}
	if to != "" {
		breakerCount.WithLabelValues(component, to).Inc()
	}
}

// RecordCircuitBreakerTrip counts a breaker opening.
func RecordCircuitBreakerTrip(component, reason string) {
	breakerTrips.WithLabelValues(component, reason).Inc()
}
