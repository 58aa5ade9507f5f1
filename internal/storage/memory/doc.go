// Package memory provides the in-process keyspace engine.
//
// Entries live in a cmap.Map sharded by key. Expired keys are removed
// lazily when touched and by a periodic sweep, so memory held by keys that
// are never read again is reclaimed within one sweep interval.
package memory
