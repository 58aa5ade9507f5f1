package memory

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/respd-go/internal/storage"
	"github.com/yndnr/respd-go/pkg/cmap"
)

// DefaultExpireInterval is the period of the active expiry sweep.
const DefaultExpireInterval = 100 * time.Millisecond

type entry struct {
	value []byte
	// expireAt is a unix nanosecond deadline, zero for no expiry.
	expireAt int64
}

func (e entry) expired(now int64) bool {
	return e.expireAt != 0 && now >= e.expireAt
}

// Store is an in-memory storage.Store.
type Store struct {
	data     *cmap.Map[string, entry]
	now      func() time.Time
	interval time.Duration
	logger   *slog.Logger

	expiredTotal atomic.Uint64
	closed       atomic.Bool
	closeOnce    sync.Once
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// Option configures the Store.
type Option func(*Store)

// WithExpireInterval sets the active expiry period. Zero disables the sweep.
func WithExpireInterval(d time.Duration) Option {
	return func(s *Store) {
		s.interval = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithShards sets the number of map shards (a power of two).
func WithShards(n int) Option {
	return func(s *Store) {
		s.data = cmap.NewWithShards[string, entry](n)
	}
}

// New creates a store and starts its expiry sweep.
func New(opts ...Option) *Store {
	s := &Store{
		data:     cmap.New[string, entry](),
		now:      time.Now,
		interval: DefaultExpireInterval,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval > 0 {
		go s.expireLoop()
	} else {
		close(s.doneCh)
	}
	return s
}

func (s *Store) check() error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) nowNano() int64 {
	return s.now().UnixNano()
}

// live returns the entry for key if it exists and has not expired. An
// expired entry is removed on the way.
func (s *Store) live(key string, now int64) (entry, bool) {
	e, ok := s.data.Get(key)
	if !ok {
		return entry{}, false
	}
	if !e.expired(now) {
		return e, true
	}
	s.data.Compute(key, func(cur entry, exists bool) (entry, bool) {
		if exists && cur.expired(now) {
			s.expiredTotal.Add(1)
			return entry{}, false
		}
		return cur, exists
	})
	return entry{}, false
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	if err := s.check(); err != nil {
		return nil, false, err
	}
	e, ok := s.live(string(key), s.nowNano())
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(e.value), true, nil
}

// Set implements storage.Store.
func (s *Store) Set(_ context.Context, key, value []byte, opts storage.SetOptions) (storage.SetResult, error) {
	if err := s.check(); err != nil {
		return storage.SetResult{}, err
	}
	now := s.nowNano()
	value = bytes.Clone(value)
	if value == nil {
		value = []byte{}
	}

	var res storage.SetResult
	s.data.Compute(string(key), func(cur entry, exists bool) (entry, bool) {
		exists = exists && !cur.expired(now)
		if exists {
			res.Old, res.HadOld = cur.value, true
		}
		switch opts.Mode {
		case storage.SetIfAbsent:
			if exists {
				return cur, true
			}
		case storage.SetIfPresent:
			if !exists {
				return cur, false
			}
		}

		next := entry{value: value}
		switch {
		case opts.TTL > 0:
			next.expireAt = now + int64(opts.TTL)
		case opts.KeepTTL && exists:
			next.expireAt = cur.expireAt
		}
		res.Applied = true
		return next, true
	})
	return res, nil
}

// Update implements storage.Store.
func (s *Store) Update(_ context.Context, key []byte, fn storage.UpdateFunc) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	now := s.nowNano()

	var (
		out   []byte
		fnErr error
	)
	s.data.Compute(string(key), func(cur entry, exists bool) (entry, bool) {
		if exists && cur.expired(now) {
			cur, exists = entry{}, false
		}
		value, err := fn(cur.value, exists)
		if err != nil {
			fnErr = err
			return cur, exists
		}
		out = value
		return entry{value: value, expireAt: cur.expireAt}, true
	})
	if fnErr != nil {
		return nil, fnErr
	}
	return out, nil
}

// Delete implements storage.Store.
func (s *Store) Delete(_ context.Context, keys ...[]byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	now := s.nowNano()
	n := 0
	for _, key := range keys {
		e, ok := s.data.Pop(string(key))
		if ok && !e.expired(now) {
			n++
		}
	}
	return n, nil
}

// Exists implements storage.Store.
func (s *Store) Exists(_ context.Context, keys ...[]byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	now := s.nowNano()
	n := 0
	for _, key := range keys {
		if _, ok := s.live(string(key), now); ok {
			n++
		}
	}
	return n, nil
}

// Expire implements storage.Store.
func (s *Store) Expire(_ context.Context, key []byte, ttl time.Duration) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	now := s.nowNano()
	existed := false
	s.data.Compute(string(key), func(cur entry, exists bool) (entry, bool) {
		if !exists || cur.expired(now) {
			return cur, false
		}
		existed = true
		if ttl <= 0 {
			return cur, false
		}
		cur.expireAt = now + int64(ttl)
		return cur, true
	})
	return existed, nil
}

// Persist implements storage.Store.
func (s *Store) Persist(_ context.Context, key []byte) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	now := s.nowNano()
	removed := false
	s.data.Compute(string(key), func(cur entry, exists bool) (entry, bool) {
		if !exists || cur.expired(now) {
			return cur, false
		}
		if cur.expireAt != 0 {
			cur.expireAt = 0
			removed = true
		}
		return cur, true
	})
	return removed, nil
}

// TTL implements storage.Store.
func (s *Store) TTL(_ context.Context, key []byte) (time.Duration, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	now := s.nowNano()
	e, ok := s.live(string(key), now)
	switch {
	case !ok:
		return storage.NoKey, nil
	case e.expireAt == 0:
		return storage.NoExpiry, nil
	default:
		return time.Duration(e.expireAt - now), nil
	}
}

// Keys implements storage.Store. Results are sorted.
func (s *Store) Keys(_ context.Context, pattern []byte) ([][]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	now := s.nowNano()
	var keys [][]byte
	s.data.Range(func(k string, e entry) bool {
		if !e.expired(now) && storage.Match(pattern, []byte(k)) {
			keys = append(keys, []byte(k))
		}
		return true
	})
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	return keys, nil
}

// Len implements storage.Store.
func (s *Store) Len(_ context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	now := s.nowNano()
	n := 0
	s.data.Range(func(_ string, e entry) bool {
		if !e.expired(now) {
			n++
		}
		return true
	})
	return n, nil
}

// Flush implements storage.Store.
func (s *Store) Flush(_ context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	s.data.Clear()
	return nil
}

// Close stops the expiry sweep and drops all data.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		<-s.doneCh
		s.data.Clear()
	})
	return nil
}

// ExpiredTotal returns the number of keys removed because they expired.
func (s *Store) ExpiredTotal() uint64 {
	return s.expiredTotal.Load()
}

// PurgeExpired removes every expired key and returns how many were removed.
func (s *Store) PurgeExpired() int {
	now := s.nowNano()
	n := s.data.DeleteIf(func(_ string, e entry) bool {
		return e.expired(now)
	})
	s.expiredTotal.Add(uint64(n))
	return n
}

func (s *Store) expireLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.PurgeExpired(); n > 0 {
				s.logger.Debug("expired keys purged", "count", n)
			}
		case <-s.stopCh:
			return
		}
	}
}

var _ storage.Store = (*Store)(nil)
