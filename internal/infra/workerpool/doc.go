// Package workerpool provides a fixed-size pool of goroutines executing
// submitted tasks from a bounded queue.
//
// The pool is shared by every client connection; per-connection ordering
// is layered on top by the Redis server's serial queues.
package workerpool
