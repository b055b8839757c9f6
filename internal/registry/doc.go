// Package registry owns the set of embedding models served by the process.
// It is structured into small files by concern:
//
//   - registry.go: Registry type, registration, lookup.
//   - load.go: the one-time load pass and load policies.
//   - handle.go, admission.go: per-model serialization and queueing.
//   - status.go: availability snapshots.
//   - artifacts.go: artifact path resolution and directory scanning.
//   - metrics.go: Prometheus collectors for loading and admission.
//
// Registration happens before LoadAll; after the load pass the registry is
// read-mostly and safe for concurrent lookups.
package registry
