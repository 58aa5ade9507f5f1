package redisserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/respd-go/internal/protocol/resp"
	"github.com/yndnr/respd-go/internal/telemetry/logger"
)

const (
	readBufferSize = 16 * 1024
	// flushThreshold is the reply buffer size; a full buffer is written
	// out without waiting for the queue to empty.
	flushThreshold = 64 * 1024
)

var errRateLimited = resp.Errorf("rate limit exceeded")

// conn is one client connection.
type conn struct {
	id     string
	srv    *Server
	nc     net.Conn
	ip     string
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	dec     *resp.Decoder
	enc     *resp.Encoder
	queue   *serialQueue
	limiter *rate.Limiter

	// slots holds one token per decoded but unanswered command.
	slots chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(s *Server, nc net.Conn) *conn {
	id := ulid.Make().String()
	remote := nc.RemoteAddr().String()
	ip, _, err := net.SplitHostPort(remote)
	if err != nil {
		ip = remote
	}

	c := &conn{
		id:    id,
		srv:   s,
		nc:    nc,
		ip:    ip,
		log:   s.logger.With("conn_id", id, "remote", remote),
		dec:   resp.NewDecoder(resp.WithLimits(s.cfg.Limits)),
		slots: make(chan struct{}, s.cfg.MaxPending),
		done:  make(chan struct{}),
	}
	c.enc = resp.NewEncoderSize(deadlineWriter{nc: nc, timeout: s.cfg.WriteTimeout}, flushThreshold)
	c.queue = newSerialQueue(s.pool, c.flush)
	c.limiter = s.limiters.acquire(ip)

	ctx := logger.WithConnID(logger.WithLogger(s.baseCtx, s.logger), id)
	c.ctx, c.cancel = context.WithCancel(ctx)
	context.AfterFunc(c.ctx, c.close)
	return c
}

// serve runs the read loop and decides how the connection ends: peer EOF
// and protocol errors let queued commands finish first, any other read
// error closes at once.
func (c *conn) serve() {
	defer c.close()
	c.log.Debug("connection accepted")

	err := c.readLoop()
	if c.closed.Load() {
		return
	}

	var pe *protocolError
	switch {
	case errors.Is(err, io.EOF):
		c.finish(nil)
	case errors.As(err, &pe):
		c.finish(resp.Errorf("Protocol error: " + pe.detail))
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			c.log.Debug("connection timed out")
		} else {
			c.log.Debug("connection read error", "error", err)
		}
		return
	}

	select {
	case <-c.done:
	case <-c.ctx.Done():
	}
}

func (c *conn) readLoop() error {
	buf := make([]byte, readBufferSize)
	for {
		if err := c.setReadDeadline(); err != nil {
			return err
		}
		n, err := c.nc.Read(buf)
		if n > 0 {
			c.dec.Feed(buf[:n])
			if derr := c.decode(); derr != nil {
				return derr
			}
		}
		if err != nil {
			return err
		}
	}
}

// setReadDeadline applies the read timeout while a request is partially
// received and the idle timeout between requests.
func (c *conn) setReadDeadline() error {
	timeout := c.srv.cfg.IdleTimeout
	if c.dec.Pending() {
		timeout = c.srv.cfg.ReadTimeout
	}
	if timeout <= 0 {
		return c.nc.SetReadDeadline(time.Time{})
	}
	return c.nc.SetReadDeadline(time.Now().Add(timeout))
}

// decode queues every complete request in the decoder buffer.
func (c *conn) decode() error {
	for {
		cmd, err := c.dec.Next()
		if err != nil {
			c.srv.observer.ProtocolError()
			c.log.Warn("protocol error", "error", err, "buffered", c.dec.Buffered())
			return &protocolError{detail: protocolDetail(err)}
		}
		if cmd == nil {
			return nil
		}
		if err := c.enqueue(cmd); err != nil {
			return err
		}
	}
}

// enqueue blocks while MaxPending commands are waiting for their reply.
func (c *conn) enqueue(cmd *resp.Command) error {
	select {
	case c.slots <- struct{}{}:
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
	limited := c.limiter != nil && !c.limiter.Allow()
	c.queue.push(c.ctx, func() { c.execute(cmd, limited) })
	return nil
}

func (c *conn) execute(cmd *resp.Command, limited bool) {
	defer func() { <-c.slots }()
	if c.closed.Load() {
		return
	}

	if c.log.Enabled(c.ctx, slog.LevelDebug) {
		c.log.Debug("command received", "args", logger.RedactArgs(cmd.Args))
	}

	var (
		reply     resp.Reply
		closeConn bool
	)
	if limited {
		c.srv.observer.RateLimit()
		reply = errRateLimited
		if cmd.Inline {
			reply = resp.ToInline(reply)
		}
	} else {
		if c.srv.throttle.applies(cmd.Name()) {
			c.srv.observer.Throttled()
			c.srv.throttle.wait(c.ctx, c.srv.done)
		}
		res := c.srv.dispatcher.Dispatch(c.ctx, cmd)
		reply, closeConn = res.Reply, res.Close
	}

	if c.closed.Load() {
		return
	}
	if err := c.enc.Encode(reply); err != nil {
		c.writeFailed(err)
		return
	}
	if closeConn {
		c.flush()
		c.close()
	}
}

// finish queues the final task of a connection: it writes last, if any,
// flushes and closes once every command queued before it has replied.
func (c *conn) finish(last resp.Reply) {
	c.queue.push(c.ctx, func() {
		if c.closed.Load() {
			return
		}
		if last != nil {
			if err := c.enc.Encode(last); err != nil {
				c.writeFailed(err)
				return
			}
		}
		c.flush()
		c.close()
	})
}

func (c *conn) flush() {
	if c.closed.Load() || c.enc.Buffered() == 0 {
		return
	}
	if err := c.enc.Flush(); err != nil {
		c.writeFailed(err)
	}
}

func (c *conn) writeFailed(err error) {
	if !c.closed.Load() {
		c.log.Debug("connection write error", "error", err)
	}
	c.close()
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		c.nc.Close()
		close(c.done)
		c.log.Debug("connection closed")
	})
}

type protocolError struct {
	detail string
}

func (e *protocolError) Error() string {
	return "protocol error: " + e.detail
}

// protocolDetail strips the sentinel prefix from a decoder error.
func protocolDetail(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{resp.ErrProtocol, resp.ErrLimitExceeded} {
		if errors.Is(err, sentinel) {
			return strings.TrimPrefix(msg, sentinel.Error()+": ")
		}
	}
	return msg
}

// deadlineWriter applies the write timeout to every write.
type deadlineWriter struct {
	nc      net.Conn
	timeout time.Duration
}

func (w deadlineWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		if err := w.nc.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return 0, err
		}
	}
	return w.nc.Write(p)
}
