package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Protocol limits to prevent DoS attacks.
const (
	// DefaultMaxArgs limits the number of elements in a multi-bulk request.
	DefaultMaxArgs = 1024 * 1024

	// DefaultMaxBulkLen limits the size of a single bulk argument (512MB, as Redis).
	DefaultMaxBulkLen = 512 * 1024 * 1024

	// DefaultMaxInlineLen limits the length of an inline request line (64KB).
	DefaultMaxInlineLen = 64 * 1024

	// maxHeaderLen bounds "*<n>" and "$<n>" lines.
	maxHeaderLen = 32

	// compactThreshold is the consumed prefix size above which Feed shifts
	// unread bytes to the front of the buffer.
	compactThreshold = 4096
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Limits bounds what a Decoder accepts from a peer.
type Limits struct {
	MaxArgs      int
	MaxBulkLen   int
	MaxInlineLen int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxArgs:      DefaultMaxArgs,
		MaxBulkLen:   DefaultMaxBulkLen,
		MaxInlineLen: DefaultMaxInlineLen,
	}
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLimits overrides the decoder limits. Zero fields keep their defaults.
func WithLimits(l Limits) DecoderOption {
	return func(d *Decoder) {
		if l.MaxArgs > 0 {
			d.limits.MaxArgs = l.MaxArgs
		}
		if l.MaxBulkLen > 0 {
			d.limits.MaxBulkLen = l.MaxBulkLen
		}
		if l.MaxInlineLen > 0 {
			d.limits.MaxInlineLen = l.MaxInlineLen
		}
	}
}

type decodeState uint8

const (
	// stateCount expects the start of a new request.
	stateCount decodeState = iota
	// stateArgLen expects a "$<len>" header for args[index].
	stateArgLen
	// stateArgBody expects bulkLen bytes plus CRLF for args[index].
	stateArgBody
)

func (s decodeState) String() string {
	switch s {
	case stateCount:
		return "count"
	case stateArgLen:
		return "arg-len"
	case stateArgBody:
		return "arg-body"
	default:
		return "unknown"
	}
}

// Decoder incrementally decodes client requests.
//
// Bytes are appended with Feed and requests are pulled with Next. A
// multi-bulk request is checkpointed after every complete argument, so a
// request split across many reads never re-parses arguments it has already
// consumed. A Decoder is owned by a single connection and is not safe for
// concurrent use.
//
// After Next returns an error the decoder is poisoned: every further call
// returns the same error until Reset.
type Decoder struct {
	buf []byte
	pos int

	state   decodeState
	args    [][]byte
	want    int
	index   int
	bulkLen int

	limits Limits
	err    error
}

// NewDecoder creates a decoder with default limits.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{limits: DefaultLimits()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends p to the decoder buffer. p may be reused by the caller after
// Feed returns.
func (d *Decoder) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	if d.pos == len(d.buf) {
		d.buf = d.buf[:0]
		d.pos = 0
	} else if d.pos > compactThreshold && d.pos > len(d.buf)/2 {
		n := copy(d.buf, d.buf[d.pos:])
		d.buf = d.buf[:n]
		d.pos = 0
	}
	d.buf = append(d.buf, p...)
}

// Next decodes the next complete request.
//
// It returns (nil, nil) when the buffered bytes do not yet hold a complete
// request; the partial state is kept and decoding resumes on the next call.
func (d *Decoder) Next() (*Command, error) {
	if d.err != nil {
		return nil, d.err
	}
	cmd, err := d.decode()
	if err != nil {
		d.err = err
		d.args = nil
		return nil, err
	}
	return cmd, nil
}

// Pending reports whether the decoder holds unconsumed bytes or a partially
// decoded request.
func (d *Decoder) Pending() bool {
	return d.pos < len(d.buf) || d.state != stateCount
}

// Buffered returns the number of unconsumed bytes.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.pos
}

// Err returns the sticky decode error, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Reset discards buffered bytes, partial state and any sticky error.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.pos = 0
	d.resetState()
	d.err = nil
}

func (d *Decoder) resetState() {
	d.state = stateCount
	d.args = nil
	d.want = 0
	d.index = 0
	d.bulkLen = 0
}

func (d *Decoder) decode() (*Command, error) {
	for {
		switch d.state {
		case stateCount:
			if d.pos >= len(d.buf) {
				return nil, nil
			}
			if d.buf[d.pos] != '*' {
				return d.decodeInline()
			}
			line, ok, err := d.readLine(maxHeaderLen)
			if err != nil || !ok {
				return nil, err
			}
			n, err := parseLength(line[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: invalid multibulk length", ErrProtocol)
			}
			if n < 0 {
				return nil, fmt.Errorf("%w: invalid multibulk length %d", ErrProtocol, n)
			}
			if n > d.limits.MaxArgs {
				return nil, fmt.Errorf("%w: multibulk length %d exceeds limit %d", ErrLimitExceeded, n, d.limits.MaxArgs)
			}
			if n == 0 {
				return &Command{Args: [][]byte{}}, nil
			}
			d.args = make([][]byte, 0, min(n, 64))
			d.want = n
			d.index = 0
			d.state = stateArgLen

		case stateArgLen:
			if d.pos >= len(d.buf) {
				return nil, nil
			}
			if c := d.buf[d.pos]; c != '$' {
				return nil, fmt.Errorf("%w: expected '$', got %q", ErrProtocol, c)
			}
			line, ok, err := d.readLine(maxHeaderLen)
			if err != nil || !ok {
				return nil, err
			}
			n, err := parseLength(line[1:])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
			}
			if n > d.limits.MaxBulkLen {
				return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, d.limits.MaxBulkLen)
			}
			d.bulkLen = n
			d.state = stateArgBody

		case stateArgBody:
			if len(d.buf)-d.pos < d.bulkLen+2 {
				return nil, nil
			}
			end := d.pos + d.bulkLen
			if d.buf[end] != '\r' || d.buf[end+1] != '\n' {
				return nil, fmt.Errorf("%w: bulk argument %d does not end in CRLF", ErrProtocol, d.index)
			}
			d.args = append(d.args, bytes.Clone(d.buf[d.pos:end]))
			d.pos = end + 2
			d.index++
			if d.index == d.want {
				cmd := &Command{Args: d.args}
				d.resetState()
				return cmd, nil
			}
			d.state = stateArgLen

		default:
			return nil, fmt.Errorf("%w: decoder in state %s", ErrProtocol, d.state)
		}
	}
}

// decodeInline consumes one whole CRLF terminated line as a single argument.
// Nothing is consumed until the terminator is buffered.
func (d *Decoder) decodeInline() (*Command, error) {
	line, ok, err := d.readLine(d.limits.MaxInlineLen)
	if err != nil || !ok {
		return nil, err
	}
	return &Command{Args: [][]byte{bytes.Clone(line)}, Inline: true}, nil
}

// readLine returns the bytes before the next CRLF and advances past it.
// ok is false when the terminator is not buffered yet.
func (d *Decoder) readLine(maxLen int) (line []byte, ok bool, err error) {
	rest := d.buf[d.pos:]
	i := bytes.IndexByte(rest, '\r')
	if i < 0 {
		if len(rest) > maxLen {
			return nil, false, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
		}
		return nil, false, nil
	}
	if i > maxLen {
		return nil, false, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
	}
	if i+1 >= len(rest) {
		return nil, false, nil
	}
	if rest[i+1] != '\n' {
		return nil, false, fmt.Errorf("%w: expected LF after CR", ErrProtocol)
	}
	d.pos += i + 2
	return rest[:i], true, nil
}

// parseLength parses a signed decimal length that must fit in an int.
func parseLength(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseInt(string(b), 10, strconv.IntSize)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
