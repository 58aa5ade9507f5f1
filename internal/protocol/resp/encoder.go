package resp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// DefaultWriteBufferSize is the encoder's output buffer size.
const DefaultWriteBufferSize = 16 * 1024

// Encoder renders replies onto a buffered writer. It is not safe for
// concurrent use; the connection pipeline serializes access.
type Encoder struct {
	bw *bufio.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderSize(w, DefaultWriteBufferSize)
}

// NewEncoderSize creates an encoder whose buffer holds size bytes. The
// buffer is written through to w whenever it fills.
func NewEncoderSize(w io.Writer, size int) *Encoder {
	return &Encoder{bw: bufio.NewWriterSize(w, size)}
}

// Encode writes r to the buffer without flushing.
func (e *Encoder) Encode(r Reply) error {
	return encode(e.bw, r)
}

// Flush writes any buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	return e.bw.Flush()
}

// Buffered returns the number of bytes waiting to be flushed.
func (e *Encoder) Buffered() int {
	return e.bw.Buffered()
}

func encode(w *bufio.Writer, r Reply) error {
	switch v := r.(type) {
	case *StatusReply:
		return WriteSimpleString(w, singleLine(v.Status))
	case *ErrorReply:
		return WriteError(w, singleLine(v.Message))
	case *IntegerReply:
		return WriteInteger(w, v.Value)
	case *BulkReply:
		return WriteBulk(w, v.Data)
	case *MultiBulkReply:
		if v.Items == nil {
			return WriteNullArray(w)
		}
		if err := WriteArrayHeader(w, len(v.Items)); err != nil {
			return err
		}
		for _, item := range v.Items {
			if err := encode(w, item); err != nil {
				return err
			}
		}
		return nil
	case *InlineReply:
		if v.Data == nil {
			return WriteInline(w, nil)
		}
		return WriteInline(w, singleLineBytes(v.Data))
	case nil:
		return WriteNullBulk(w)
	default:
		return fmt.Errorf("resp: cannot encode %T", r)
	}
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return lineBreaks.Replace(s)
}

func singleLineBytes(b []byte) []byte {
	if !bytes.ContainsAny(b, "\r\n") {
		return b
	}
	out := bytes.Clone(b)
	for i, c := range out {
		if c == '\r' || c == '\n' {
			out[i] = ' '
		}
	}
	return out
}
