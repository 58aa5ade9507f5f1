package connection

import (
	"bufio"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/yndnr/respd-go/internal/protocol/resp"
)

// DefaultTimeout bounds dialing and each request when no timeout is set.
const DefaultTimeout = 5 * time.Second

// Options configures a Client.
type Options struct {
	// Timeout bounds dialing and each round trip. Zero uses DefaultTimeout,
	// a negative value disables it.
	Timeout time.Duration

	// TLS enables TLS with the given configuration when non-nil.
	TLS *tls.Config
}

// Client is a blocking RESP client. It is not safe for concurrent use.
type Client struct {
	addr string
	opts Options

	conn net.Conn
	rd   *bufio.Reader
	wr   *bufio.Writer
}

// NewClient creates a client for addr (host:port). No connection is made
// until the first command or Connect.
func NewClient(addr string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{addr: addr, opts: opts}
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Connect dials the server if not already connected.
func (c *Client) Connect() error {
	if c.conn != nil {
		return nil
	}

	dialer := &net.Dialer{}
	if c.opts.Timeout > 0 {
		dialer.Timeout = c.opts.Timeout
	}

	var (
		conn net.Conn
		err  error
	)
	if c.opts.TLS != nil {
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, c.opts.TLS)
	} else {
		conn, err = dialer.Dial("tcp", c.addr)
	}
	if err != nil {
		return err
	}

	c.conn = conn
	c.rd = bufio.NewReader(conn)
	c.wr = bufio.NewWriter(conn)
	return nil
}

// Close closes the connection. Closing an unconnected client is a no-op.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.rd, c.wr = nil, nil, nil
	return err
}

// Do sends one command and returns its reply. An error reply from the
// server is returned as a *resp.ErrorReply, not as an error. Network and
// protocol errors drop the connection so the next call re-dials.
func (c *Client) Do(args ...string) (resp.Reply, error) {
	if len(args) == 0 {
		return nil, errors.New("connection: empty command")
	}
	if err := c.Connect(); err != nil {
		return nil, err
	}

	if c.opts.Timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.opts.Timeout)); err != nil {
			c.Close()
			return nil, err
		}
	}

	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	if err := resp.WriteCommand(c.wr, raw...); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.wr.Flush(); err != nil {
		c.Close()
		return nil, err
	}

	reply, err := resp.ReadReply(c.rd)
	if err != nil {
		c.Close()
		return nil, err
	}
	return reply, nil
}
