// Package server hosts the voxkit HTTP API on Gin behind an h2c handler,
// so HTTP/1.1 and cleartext HTTP/2 clients share one port.
//
// Middleware (server/middleware) covers panic recovery, request IDs,
// CORS, upload size limits, per-client rate limiting and request logging.
// Operational endpoints (server/endpoint) are /health, /livez, /readyz,
// /version and the Prometheus /metrics scrape.
package server
