package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// maxTxnRetries bounds retries of a read-modify-write transaction that hit
// a Badger write conflict.
const maxTxnRetries = 16

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory (no files are written).
	InMemory bool

	// GCInterval is the interval between value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the discard ratio that triggers a value log rewrite.
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// SyncWrites enables fsync after each write.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		CacheSize:   64 << 20,
	}
}

// BadgerStore implements Store on top of Badger v3.
//
// Expiry uses Badger's native TTL, which has one second resolution: expiry
// times are rounded up to the next whole second.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger
	now    func() time.Time

	lastGCTime atomic.Int64
	gcRuns     atomic.Uint64
	closed     atomic.Bool
	closeOnce  sync.Once

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens a Badger database and starts its GC loop.
func NewBadgerStore(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	logger.Info("badger store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

func (s *BadgerStore) check() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	if err := s.check(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set implements Store.
func (s *BadgerStore) Set(_ context.Context, key, value []byte, opts SetOptions) (SetResult, error) {
	if err := s.check(); err != nil {
		return SetResult{}, err
	}
	var res SetResult
	err := s.update(func(txn *badger.Txn) error {
		res = SetResult{}
		item, err := txn.Get(key)
		exists := err == nil
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		var expiresAt uint64
		if exists {
			if res.Old, err = item.ValueCopy(nil); err != nil {
				return err
			}
			res.HadOld = true
			expiresAt = item.ExpiresAt()
		}

		switch opts.Mode {
		case SetIfAbsent:
			if exists {
				return nil
			}
		case SetIfPresent:
			if !exists {
				return nil
			}
		}

		e := badger.NewEntry(key, value)
		switch {
		case opts.TTL > 0:
			e.ExpiresAt = s.expiresAt(opts.TTL)
		case opts.KeepTTL && exists:
			e.ExpiresAt = expiresAt
		}
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		res.Applied = true
		return nil
	})
	return res, err
}

// Update implements Store.
func (s *BadgerStore) Update(_ context.Context, key []byte, fn UpdateFunc) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.update(func(txn *badger.Txn) error {
		var (
			old       []byte
			exists    bool
			expiresAt uint64
		)
		item, err := txn.Get(key)
		switch {
		case err == nil:
			exists = true
			expiresAt = item.ExpiresAt()
			if old, err = item.ValueCopy(nil); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		value, err := fn(old, exists)
		if err != nil {
			return err
		}
		e := badger.NewEntry(key, value)
		e.ExpiresAt = expiresAt
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		out = value
		return nil
	})
	return out, err
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, keys ...[]byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	var n int
	err := s.update(func(txn *badger.Txn) error {
		n = 0
		for _, key := range keys {
			_, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// Exists implements Store.
func (s *BadgerStore) Exists(_ context.Context, keys ...[]byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			_, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// Expire implements Store.
func (s *BadgerStore) Expire(_ context.Context, key []byte, ttl time.Duration) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	var existed bool
	err := s.update(func(txn *badger.Txn) error {
		existed = false
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		if ttl <= 0 {
			return txn.Delete(key)
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		e := badger.NewEntry(key, value)
		e.ExpiresAt = s.expiresAt(ttl)
		return txn.SetEntry(e)
	})
	return existed, err
}

// Persist implements Store.
func (s *BadgerStore) Persist(_ context.Context, key []byte) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	var removed bool
	err := s.update(func(txn *badger.Txn) error {
		removed = false
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if item.ExpiresAt() == 0 {
			return nil
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		removed = true
		return txn.Set(key, value)
	})
	return removed, err
}

// TTL implements Store.
func (s *BadgerStore) TTL(_ context.Context, key []byte) (time.Duration, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	ttl := NoKey
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exp := item.ExpiresAt()
		if exp == 0 {
			ttl = NoExpiry
			return nil
		}
		ttl = time.Unix(int64(exp), 0).Sub(s.now())
		if ttl < 0 {
			ttl = 0
		}
		return nil
	})
	return ttl, err
}

// Keys implements Store. The literal prefix of the pattern bounds the scan.
func (s *BadgerStore) Keys(_ context.Context, pattern []byte) ([][]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = literalPrefix(pattern)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if Match(pattern, key) {
				keys = append(keys, bytes.Clone(key))
			}
		}
		return nil
	})
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	return keys, err
}

// Len implements Store.
func (s *BadgerStore) Len(_ context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Flush implements Store.
func (s *BadgerStore) Flush(_ context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.db.DropAll()
}

// GC runs value log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) GC() error {
	if s.cfg.InMemory {
		return nil
	}
	start := time.Now()
	runs := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}
	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(uint64(runs))
	s.logger.Debug("badger gc completed", "rewrites", runs, "elapsed", time.Since(start))
	return nil
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		<-s.doneCh
		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
			return
		}
		s.logger.Info("badger store closed")
	})
	return err
}

// RegisterMetrics exposes Badger size and GC statistics.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	size := func(pick func(lsm, vlog int64) int64) func() float64 {
		return func() float64 {
			if s.closed.Load() {
				return 0
			}
			lsm, vlog := s.db.Size()
			return float64(pick(lsm, vlog))
		}
	}
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "respd",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes.",
		}, size(func(lsm, _ int64) int64 { return lsm })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "respd",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes.",
		}, size(func(_, vlog int64) int64 { return vlog })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "respd",
			Subsystem: "badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last value log GC.",
		}, func() float64 { return float64(s.lastGCTime.Load()) / 1000 }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "respd",
			Subsystem: "badger",
			Name:      "gc_rewrites_total",
			Help:      "Value log files rewritten by GC.",
		}, func() float64 { return float64(s.gcRuns.Load()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// expiresAt converts a ttl into Badger's unix-seconds expiry, rounding up.
func (s *BadgerStore) expiresAt(ttl time.Duration) uint64 {
	at := s.now().Add(ttl)
	secs := at.Unix()
	if at.Nanosecond() > 0 {
		secs++
	}
	return uint64(secs)
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.GC(); err != nil {
				s.logger.Error("badger gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

var _ Store = (*BadgerStore)(nil)
