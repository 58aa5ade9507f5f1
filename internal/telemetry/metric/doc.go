// Package metric provides Prometheus metrics for respd.
//
// Registry owns a private prometheus.Registry with the command, connection
// and worker pool metrics. It implements dispatch.Recorder so the
// dispatcher can report every command outcome, and exposes the /metrics
// handler served by the admin HTTP server.
//
// All metric names share the "respd" namespace.
package metric
