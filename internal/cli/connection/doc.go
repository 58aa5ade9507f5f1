// Package connection provides the RESP client used by respd-cli.
//
// A Client holds one TCP (or TLS) connection, sends each command as a
// multi-bulk request and blocks for the reply. The connection is dialed
// lazily and re-dialed after a network error.
package connection
