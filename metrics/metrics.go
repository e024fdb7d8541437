// Package metrics exposes Prometheus counters for the engine:
//   - dealdesk_valuations_total{grade}: valuations by resulting grade
//   - dealdesk_valuation_errors_total: failed valuations
//   - dealdesk_valuation_cache_hits_total: valuations served from cache
//   - dealdesk_deals_opened_total: negotiations started
//   - dealdesk_deal_outcomes_total{outcome}: terminal outcomes
//   - dealdesk_negotiation_steps_total{decision}: steps by decision
//   - dealdesk_negotiation_conflicts_total: CAS conflicts detected
//
// Registered in init() and served at /metrics by main.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Valuations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_valuations_total",
			Help: "Valuations computed, by resulting grade",
		},
		[]string{"grade"},
	)

	ValuationErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealdesk_valuation_errors_total",
			Help: "Valuations that failed",
		},
	)

	ValuationCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealdesk_valuation_cache_hits_total",
			Help: "Valuations served from the in-memory cache",
		},
	)

	DealsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealdesk_deals_opened_total",
			Help: "Negotiations started",
		},
	)

	DealOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_deal_outcomes_total",
			Help: "Terminal deal outcomes",
		},
		[]string{"outcome"},
	)

	NegotiationSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_negotiation_steps_total",
			Help: "Negotiation steps, by decision",
		},
		[]string{"decision"},
	)

	NegotiationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealdesk_negotiation_conflicts_total",
			Help: "Concurrent-write conflicts detected on negotiation state",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Valuations,
		ValuationErrors,
		ValuationCacheHits,
		DealsOpened,
		DealOutcomes,
		NegotiationSteps,
		NegotiationConflicts,
	)
}
