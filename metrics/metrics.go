// Package metrics registers engine counters and meters on a
// go-ethereum metrics registry. Everything here is process-local;
// the daemon exposes the registry over its debug endpoint.
package metrics

import (
	ethmetrics "github.com/ethereum/go-ethereum/metrics"
)

// Registry holds all tile-engine metrics.
var Registry = ethmetrics.NewRegistry()

var (
	// FetchesIssued counts upstream tile requests actually started.
	FetchesIssued = ethmetrics.NewRegisteredCounter("fetch/issued", Registry)

	// FetchDedupHits counts submissions absorbed by an in-flight fetch.
	FetchDedupHits = ethmetrics.NewRegisteredCounter("fetch/dedup", Registry)

	// FetchNotFound counts upstream 404s (empty tiles, not errors).
	FetchNotFound = ethmetrics.NewRegisteredCounter("fetch/notfound", Registry)

	// FetchErrors counts per-tile fetch failures (isolated, non-fatal).
	FetchErrors = ethmetrics.NewRegisteredCounter("fetch/errors", Registry)

	// StaleDiscards counts settled results dropped because their
	// generation no longer matched the live one.
	StaleDiscards = ethmetrics.NewRegisteredCounter("engine/stale", Registry)

	// Evictions counts cache entries dropped by visibility retention.
	Evictions = ethmetrics.NewRegisteredCounter("engine/evictions", Registry)

	// Commits counts merge-and-commit calls to the renderer.
	Commits = ethmetrics.NewRegisteredCounter("engine/commits", Registry)

	// DegradedTransitions counts entries into degraded mode.
	DegradedTransitions = ethmetrics.NewRegisteredCounter("engine/degraded", Registry)

	// FetchMeter tracks upstream request rate.
	FetchMeter = ethmetrics.NewRegisteredMeter("fetch/meter", Registry)
)

func init() {
	// Won't record without this global setting.
	ethmetrics.Enabled = true
}
