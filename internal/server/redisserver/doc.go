// Package redisserver serves the RESP protocol over TCP and TLS.
//
// Each accepted connection gets a read loop feeding a resp.Decoder and a
// serial task queue. Decoded commands are queued in arrival order and run
// on the shared workerpool.Pool, at most one at a time per connection, so
// replies always leave in request order while different connections run in
// parallel.
//
// The read loop stops reading once MaxPending commands are waiting for a
// reply, which bounds per-connection memory under pipelining.
package redisserver
