// Package tlsroots provides the TLS material of the RESP listener and
// respd-cli.
//
//   - roots.go: CA pools and the server/client tls.Config builders
//   - watcher.go: certificate hot reload via fsnotify
//
// The server serves its certificate through Watcher.GetCertificate, so a
// renewed certificate written over the configured files is picked up by
// new connections without a restart.
package tlsroots
