// Package cmap provides a generic concurrent map split into independently
// locked shards.
//
// Keys are spread over shards with a seeded murmur3 hash. Besides plain
// Get/Set/Delete the map offers Compute, an atomic read-modify-write on a
// single key, which the in-memory keyspace builds its commands on.
//
//	m := cmap.New[string, int]()
//	m.Set("a", 1)
//	m.Compute("a", func(v int, ok bool) (int, bool) { return v + 1, true })
package cmap
