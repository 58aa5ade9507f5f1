// Package service implements command semantics on top of the storage layer.
//
// Keyspace owns the behaviour of the string and generic key commands:
// option parsing for SET, integer and float arithmetic, expiry units and
// the TTL sentinels. It returns plain Go values and *domain.OperationError
// failures; framing them as RESP replies is left to the command catalog.
package service
