package output

import (
	"fmt"
	"io"

	"github.com/yndnr/respd-go/internal/protocol/resp"
)

// Format represents the output format.
type Format string

const (
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. The empty string selects raw.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatRaw:
		return FormatRaw, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want raw, json or yaml)", s)
	}
}

// Formatter writes one reply.
type Formatter interface {
	Format(w io.Writer, reply resp.Reply) error
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &RawFormatter{}
	}
}

// RawFormatter writes replies the way redis-cli does.
type RawFormatter struct{}

// Format writes the text rendering of reply followed by a newline.
func (f *RawFormatter) Format(w io.Writer, reply resp.Reply) error {
	_, err := fmt.Fprintln(w, resp.Text(reply))
	return err
}

// ErrorValue is the structured form of an error reply.
type ErrorValue struct {
	Error string `json:"error" yaml:"error"`
}

// Value converts a reply to plain Go values: strings, int64, nil, slices
// and ErrorValue.
func Value(reply resp.Reply) any {
	switch v := reply.(type) {
	case *resp.StatusReply:
		return v.Status
	case *resp.ErrorReply:
		return ErrorValue{Error: v.Message}
	case *resp.IntegerReply:
		return v.Value
	case *resp.BulkReply:
		if v.Data == nil {
			return nil
		}
		return string(v.Data)
	case *resp.InlineReply:
		return string(v.Data)
	case *resp.MultiBulkReply:
		if v.Items == nil {
			return nil
		}
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = Value(item)
		}
		return items
	default:
		return nil
	}
}
