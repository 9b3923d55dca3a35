// Package observability provides structured logging, Prometheus metrics,
// health checks, panic recovery, and graceful shutdown for the view
// tracking service.
//
// The Logger doubles as the operational log required by the passive
// tracking path: persistence failures there are logged and discarded,
// never surfaced to the request that triggered them.
package observability
