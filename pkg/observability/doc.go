// Package observability bundles the operational surface of the service:
// structured lifecycle logging, Prometheus metrics, health checking against
// Postgres and Redis, OpenTelemetry trace export, and coordinated graceful
// shutdown.
package observability
