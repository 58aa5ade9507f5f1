package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// maxReplyDepth bounds nested arrays in ReadReply.
const maxReplyDepth = 32

// ReadReply reads one reply from r. It blocks until the reply is complete.
func ReadReply(r *bufio.Reader) (Reply, error) {
	return readReply(r, 0)
}

func readReply(r *bufio.Reader, depth int) (Reply, error) {
	if depth > maxReplyDepth {
		return nil, fmt.Errorf("%w: reply nested too deeply", ErrProtocol)
	}
	line, err := readLine(r, DefaultMaxInlineLen)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return &InlineReply{}, nil
	}

	switch line[0] {
	case '+':
		return &StatusReply{Status: string(line[1:])}, nil
	case '-':
		return &ErrorReply{Message: string(line[1:])}, nil
	case ':':
		n, err := strconv.ParseInt(string(line[1:]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid integer reply", ErrProtocol)
		}
		return &IntegerReply{Value: n}, nil
	case '$':
		n, err := parseLength(line[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
		}
		if n < 0 {
			return &BulkReply{}, nil
		}
		if n > DefaultMaxBulkLen {
			return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, DefaultMaxBulkLen)
		}
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		if !bytes.HasSuffix(buf, []byte("\r\n")) {
			return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}
		return &BulkReply{Data: buf[:n]}, nil
	case '*':
		n, err := parseLength(line[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid array length", ErrProtocol)
		}
		if n < 0 {
			return &MultiBulkReply{}, nil
		}
		if n > DefaultMaxArgs {
			return nil, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, DefaultMaxArgs)
		}
		items := make([]Reply, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			item, err := readReply(r, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &MultiBulkReply{Items: items}, nil
	default:
		return &InlineReply{Data: line}, nil
	}
}

func readLine(r *bufio.Reader, maxLen int) ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLen {
				return nil, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
			}
			continue
		}
		return nil, err
	}

	if len(buf) > maxLen+2 {
		return nil, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
	}
	if len(buf) < 2 || !bytes.HasSuffix(buf, []byte("\r\n")) {
		return nil, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return buf[:len(buf)-2], nil
}
