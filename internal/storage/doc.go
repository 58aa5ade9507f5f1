// Package storage defines the keyspace storage contract and its engines.
//
// Store is a flat byte-string keyspace with per-key expiry. Two engines
// implement it:
//
//   - memory.Store: sharded in-process maps with lazy and periodic expiry
//   - BadgerStore: an embedded Badger v3 database using native TTLs
//
// Keys and values are opaque byte strings. Match implements the Redis glob
// syntax used by KEYS.
package storage
