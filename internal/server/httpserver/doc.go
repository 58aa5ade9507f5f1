// Package httpserver provides the admin HTTP server of respd-server.
//
// Endpoints:
//
//   - GET /health: liveness
//   - GET /ready: readiness, 503 until the Redis listener is up
//   - GET /version: build information
//   - GET /metrics: Prometheus exposition
//
// Every route passes through the Recover, RequestID and AccessLog
// middlewares.
package httpserver
