package redisserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/respd-go/internal/dispatch"
	"github.com/yndnr/respd-go/internal/infra/workerpool"
	"github.com/yndnr/respd-go/internal/protocol/resp"
	"github.com/yndnr/respd-go/pkg/cmap"
)

// DefaultMaxPending is the per-connection cap on unanswered commands.
const DefaultMaxPending = 1024

// Config holds the Redis server configuration.
type Config struct {
	// Address is the plain TCP listen address. Empty disables it.
	Address string
	// TLSAddress is the TLS listen address. Empty disables it.
	TLSAddress string
	// TLSConfig is required when TLSAddress is set.
	TLSConfig *tls.Config
	// UnixSocket is a Unix domain socket path. Empty disables it. A stale
	// socket file left by a previous run is removed.
	UnixSocket string
	// UnixSocketPerm is applied to the socket file when non-zero.
	UnixSocketPerm os.FileMode

	// ReadTimeout bounds the wait for the rest of a partially received
	// request. Zero disables it.
	ReadTimeout time.Duration
	// WriteTimeout bounds each write to the client.
	WriteTimeout time.Duration
	// IdleTimeout closes connections that send nothing between requests.
	// Zero disables it.
	IdleTimeout time.Duration

	// MaxPending caps decoded but unanswered commands per connection.
	MaxPending int

	// CommandDelay is slept before every command not named in DelayExempt.
	// PING and COMMAND are always exempt.
	CommandDelay time.Duration
	DelayExempt  []string

	// RateLimit is the commands per second allowed per client IP; zero
	// disables limiting. RateBurst defaults to RateLimit.
	RateLimit int
	RateBurst int

	// ReusePort sets SO_REUSEPORT on the listeners (linux only).
	ReusePort bool

	// Limits bounds request decoding.
	Limits resp.Limits
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      "127.0.0.1:6379",
		WriteTimeout: 10 * time.Second,
		MaxPending:   DefaultMaxPending,
		DelayExempt:  []string{"ping", "command"},
		Limits:       resp.DefaultLimits(),
	}
}

// Observer is notified of connection level events. Implementations must be
// safe for concurrent use.
type Observer interface {
	ConnOpened()
	ConnClosed()
	ProtocolError()
	Throttled()
	RateLimit()
}

type nopObserver struct{}

func (nopObserver) ConnOpened()    {}
func (nopObserver) ConnClosed()    {}
func (nopObserver) ProtocolError() {}
func (nopObserver) Throttled()     {}
func (nopObserver) RateLimit()     {}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the connection event observer.
func WithObserver(o Observer) Option {
	return func(s *Server) {
		if o != nil {
			s.observer = o
		}
	}
}

// Server represents the Redis protocol server.
type Server struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	pool       *workerpool.Pool
	logger     *slog.Logger
	observer   Observer
	throttle   *throttle
	limiters   *limiterSet

	mu      sync.Mutex
	plainLn net.Listener
	tlsLn   net.Listener
	unixLn  net.Listener

	conns   *cmap.Map[string, *conn]
	baseCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a new Redis protocol server. Commands are dispatched by d
// and executed on pool, which the caller starts and stops.
func New(cfg *Config, d *dispatch.Dispatcher, pool *workerpool.Pool, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:        *cfg,
		dispatcher: d,
		pool:       pool,
		logger:     slog.Default(),
		observer:   nopObserver{},
		conns:      cmap.New[string, *conn](),
		done:       make(chan struct{}),
	}
	if s.cfg.MaxPending <= 0 {
		s.cfg.MaxPending = DefaultMaxPending
	}
	for _, opt := range opts {
		opt(s)
	}
	s.throttle = newThrottle(s.cfg.CommandDelay, s.cfg.DelayExempt)
	s.limiters = newLimiterSet(s.cfg.RateLimit, s.cfg.RateBurst)
	return s
}

// Start binds the configured listeners and serves them in the background.
// Listen errors are returned before any connection is accepted.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Address == "" && s.cfg.TLSAddress == "" && s.cfg.UnixSocket == "" {
		s.logger.Info("redis server disabled (no listen address)")
		return nil
	}
	if s.cfg.TLSAddress != "" && s.cfg.TLSConfig == nil {
		return errors.New("redisserver: TLS address set without TLS config")
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("redisserver: already started")
	}

	lc := net.ListenConfig{Control: listenControl(s.cfg.ReusePort)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Address != "" {
		ln, err := lc.Listen(ctx, "tcp", s.cfg.Address)
		if err != nil {
			s.running.Store(false)
			return err
		}
		s.plainLn = ln
	}
	if s.cfg.TLSAddress != "" {
		ln, err := lc.Listen(ctx, "tcp", s.cfg.TLSAddress)
		if err != nil {
			s.closeListeners()
			s.running.Store(false)
			return err
		}
		s.tlsLn = tls.NewListener(ln, s.cfg.TLSConfig)
	}
	if s.cfg.UnixSocket != "" {
		ln, err := s.listenUnix(ctx)
		if err != nil {
			s.closeListeners()
			s.running.Store(false)
			return err
		}
		s.unixLn = ln
	}

	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	if s.plainLn != nil {
		s.logger.Info("redis server listening", "address", s.plainLn.Addr().String())
		s.serve(s.plainLn)
	}
	if s.tlsLn != nil {
		s.logger.Info("redis TLS server listening", "address", s.tlsLn.Addr().String())
		s.serve(s.tlsLn)
	}
	if s.unixLn != nil {
		s.logger.Info("redis unix socket listening", "path", s.cfg.UnixSocket)
		s.serve(s.unixLn)
	}
	return nil
}

func (s *Server) listenUnix(ctx context.Context) (net.Listener, error) {
	path := s.cfg.UnixSocket
	if fi, err := os.Lstat(path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("redisserver: %s exists and is not a socket", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	if s.cfg.UnixSocketPerm != 0 {
		if err := os.Chmod(path, s.cfg.UnixSocketPerm); err != nil {
			ln.Close()
			return nil, err
		}
	}
	return ln, nil
}

// closeListeners closes every bound listener. Callers hold s.mu.
func (s *Server) closeListeners() error {
	var firstErr error
	for _, ln := range []net.Listener{s.plainLn, s.tlsLn, s.unixLn} {
		if ln == nil {
			continue
		}
		if err := ln.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) serve(ln net.Listener) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ln); err != nil {
			s.logger.Error("redis accept loop stopped", "address", ln.Addr().String(), "error", err)
		}
	}()
}

// Addr returns the plain listener address, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plainLn == nil {
		return nil
	}
	return s.plainLn.Addr()
}

// TLSAddr returns the TLS listener address, or nil.
func (s *Server) TLSAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tlsLn == nil {
		return nil
	}
	return s.tlsLn.Addr()
}

// ConnCount returns the number of open client connections.
func (s *Server) ConnCount() int {
	return s.conns.Count()
}

// Shutdown stops accepting, closes every client connection and waits for
// their goroutines or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	close(s.done)

	s.mu.Lock()
	firstErr := s.closeListeners()
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("redis server stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ln net.Listener) error {
	var backoff time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.logger.Warn("accept error, retrying", "error", err, "delay", backoff)
				select {
				case <-time.After(backoff):
					continue
				case <-s.done:
					return nil
				}
			}
			return err
		}
		backoff = 0

		c := newConn(s, nc)
		s.conns.Set(c.id, c)
		s.observer.ConnOpened()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.forget(c)
			c.serve()
		}()
	}
}

func (s *Server) forget(c *conn) {
	s.conns.Delete(c.id)
	s.limiters.release(c.ip)
	s.observer.ConnClosed()
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}
