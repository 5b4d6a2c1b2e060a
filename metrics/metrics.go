// Package metrics exposes Prometheus counters for the similarity engine and
// the ingestion gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesTotal counts similarity queries by strategy ("native",
	// "bruteforce") and kind ("topk", "best_per_creator").
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glowmatch",
		Subsystem: "search",
		Name:      "queries_total",
		Help:      "Number of similarity queries served, by strategy and kind.",
	}, []string{"strategy", "kind"})

	// NativeFallbacksTotal counts per-call fallbacks from the native index
	// strategy to the brute-force scan. A non-zero rate means the index is
	// stale, missing, or erroring.
	NativeFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "glowmatch",
		Subsystem: "search",
		Name:      "native_fallbacks_total",
		Help:      "Number of native-index queries that fell back to the brute-force scan.",
	})

	// IngestedItemsTotal counts ingestion gate outcomes: "added",
	// "skipped" (relevance predicate), "rejected" (validation).
	IngestedItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glowmatch",
		Subsystem: "ingest",
		Name:      "items_total",
		Help:      "Number of ingested items, by outcome.",
	}, []string{"outcome"})
)
