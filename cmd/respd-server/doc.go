// Package main provides the entry point for respd-server.
//
// The server speaks the Redis serialization protocol on a TCP listener
// (and optionally a TLS listener) and serves a string keyspace backed by
// an in-memory or Badger store. An optional admin HTTP listener exposes
// health, readiness, version and Prometheus metrics.
//
// Usage:
//
//	respd-server [flags]
//	respd-server --config /etc/respd/respd.yaml
//	respd-server -p 6380 -b 1 --workers 64
//
// Configuration is layered: defaults, then the YAML file, then RESPD_*
// environment variables, then command line flags. Changing log.level in
// the configuration file takes effect without a restart.
package main
