package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("storage: store closed")
)

// TTL sentinels, matching the Redis TTL replies.
const (
	// NoExpiry is returned by TTL for a key without an expiry.
	NoExpiry time.Duration = -1
	// NoKey is returned by TTL for a missing key.
	NoKey time.Duration = -2
)

// SetMode selects the existence condition of a Set.
type SetMode uint8

const (
	// SetAlways writes unconditionally.
	SetAlways SetMode = iota
	// SetIfAbsent writes only when the key does not exist (NX).
	SetIfAbsent
	// SetIfPresent writes only when the key exists (XX).
	SetIfPresent
)

// SetOptions controls a Set.
type SetOptions struct {
	// TTL is the time to live; zero means no expiry.
	TTL time.Duration
	// KeepTTL retains the existing expiry of the key.
	KeepTTL bool
	Mode    SetMode
}

// SetResult reports the outcome of a Set.
type SetResult struct {
	// Applied is false when the Mode condition was not met.
	Applied bool
	// Old is the previous value, valid when HadOld is true.
	Old    []byte
	HadOld bool
}

// UpdateFunc computes a new value from the current one. Returning an error
// aborts the update and leaves the key untouched.
type UpdateFunc func(old []byte, exists bool) ([]byte, error)

// Store is a byte-string keyspace with per-key expiry. Implementations are
// safe for concurrent use. Returned values must not be modified.
type Store interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key []byte) ([]byte, bool, error)

	// Set writes key according to opts.
	Set(ctx context.Context, key, value []byte, opts SetOptions) (SetResult, error)

	// Update atomically replaces the value of key with fn's result. The
	// key's expiry is kept; a new key is created without expiry.
	Update(ctx context.Context, key []byte, fn UpdateFunc) ([]byte, error)

	// Delete removes keys and returns how many existed.
	Delete(ctx context.Context, keys ...[]byte) (int, error)

	// Exists returns how many of keys exist, counting repeats.
	Exists(ctx context.Context, keys ...[]byte) (int, error)

	// Expire sets the time to live of an existing key. A non-positive ttl
	// deletes the key. It reports whether the key existed.
	Expire(ctx context.Context, key []byte, ttl time.Duration) (bool, error)

	// Persist removes the expiry of key. It reports whether an expiry was
	// removed.
	Persist(ctx context.Context, key []byte) (bool, error)

	// TTL returns the remaining time to live, NoExpiry or NoKey.
	TTL(ctx context.Context, key []byte) (time.Duration, error)

	// Keys returns the keys matching a glob pattern.
	Keys(ctx context.Context, pattern []byte) ([][]byte, error)

	// Len returns the number of live keys.
	Len(ctx context.Context) (int, error)

	// Flush removes every key.
	Flush(ctx context.Context) error

	Close() error
}
