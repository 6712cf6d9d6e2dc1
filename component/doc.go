// Package component manages the lifecycle of long-lived voxkit services:
// the HTTP server, the model registry, the Kafka telemetry producer and the
// OTLP exporters.
//
// Components start in registration order and stop in reverse. Their health
// is folded into one observability.ServiceHealth for the /health endpoint.
package component
