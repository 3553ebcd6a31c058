// Package cache fans the cached model out to every storage backend and races
// them on restore. It is structured into small files by concern:
//
//   - store.go: Store and StoreEverywhere (first success wins, losers keep running).
//   - restore.go: Restorer and RestoreAny (first success by completion order).
//   - errors.go: AggregateError returned when every backend fails a store.
//   - events.go: EventPublisher and the in-memory publisher used by tests.
//   - metrics.go: Prometheus counters and histograms per backend.
//
// Neither orchestrator cancels the adapters that lose a race. Adapter failures
// never escape the orchestrator except as part of an AggregateError.
package cache
