package resp

import (
	"strconv"
	"strings"
)

// Reply is a value that can be rendered onto the wire.
//
// The set of implementations is closed: StatusReply, ErrorReply,
// IntegerReply, BulkReply, MultiBulkReply and InlineReply.
type Reply interface {
	reply()
}

// StatusReply renders as "+<Status>\r\n".
type StatusReply struct {
	Status string
}

// ErrorReply renders as "-<Message>\r\n". Message normally carries an
// upper-case prefix such as "ERR" or "WRONGTYPE".
type ErrorReply struct {
	Message string
}

// IntegerReply renders as ":<Value>\r\n".
type IntegerReply struct {
	Value int64
}

// BulkReply renders as "$<len>\r\n<Data>\r\n". A nil Data is the null bulk
// string "$-1\r\n".
type BulkReply struct {
	Data []byte
}

// MultiBulkReply renders as "*<n>\r\n" followed by each item. A nil Items is
// the null array "*-1\r\n".
type MultiBulkReply struct {
	Items []Reply
}

// InlineReply is a reply in the legacy single-line form used to answer
// inline requests. A nil Data renders as a bare CRLF.
type InlineReply struct {
	Data []byte
}

func (*StatusReply) reply()    {}
func (*ErrorReply) reply()     {}
func (*IntegerReply) reply()   {}
func (*BulkReply) reply()      {}
func (*MultiBulkReply) reply() {}
func (*InlineReply) reply()    {}

// Well-known replies. Quit is compared by identity: returning it from a
// handler writes "+OK" and closes the connection once flushed.
var (
	OK             = &StatusReply{Status: "OK"}
	Pong           = &StatusReply{Status: "PONG"}
	Quit           = &StatusReply{Status: "OK"}
	NullBulk       = &BulkReply{}
	NullArray      = &MultiBulkReply{}
	NotImplemented = &ErrorReply{Message: "ERR Not yet implemented"}
)

// Status returns a status reply.
func Status(s string) *StatusReply {
	return &StatusReply{Status: s}
}

// Error returns an error reply with the given message.
func Error(msg string) *ErrorReply {
	return &ErrorReply{Message: msg}
}

// Errorf returns an error reply prefixed with "ERR ".
func Errorf(msg string) *ErrorReply {
	return &ErrorReply{Message: "ERR " + msg}
}

// Integer returns an integer reply.
func Integer(n int64) *IntegerReply {
	return &IntegerReply{Value: n}
}

// Bulk returns a bulk reply; nil data is the null bulk string.
func Bulk(b []byte) *BulkReply {
	return &BulkReply{Data: b}
}

// BulkString returns a non-null bulk reply holding s.
func BulkString(s string) *BulkReply {
	return &BulkReply{Data: []byte(s)}
}

// Array returns a multi-bulk reply. A nil slice becomes an empty array, use
// NullArray for the null form.
func Array(items ...Reply) *MultiBulkReply {
	if items == nil {
		items = []Reply{}
	}
	return &MultiBulkReply{Items: items}
}

// BulkArray returns a multi-bulk reply of bulk strings. Nil elements are null
// bulk strings.
func BulkArray(values [][]byte) *MultiBulkReply {
	items := make([]Reply, len(values))
	for i, v := range values {
		items[i] = &BulkReply{Data: v}
	}
	return &MultiBulkReply{Items: items}
}

// ToInline re-renders any reply in the inline form.
//
// Status and error replies keep their text, integers become decimal text,
// bulk strings keep their bytes and arrays join their elements' inline text
// with single spaces. A nil reply is the empty inline reply.
func ToInline(r Reply) *InlineReply {
	switch v := r.(type) {
	case nil:
		return &InlineReply{}
	case *InlineReply:
		return v
	case *StatusReply:
		return &InlineReply{Data: []byte(v.Status)}
	case *ErrorReply:
		return &InlineReply{Data: []byte(v.Message)}
	case *IntegerReply:
		return &InlineReply{Data: strconv.AppendInt(nil, v.Value, 10)}
	case *BulkReply:
		if v.Data == nil {
			return &InlineReply{}
		}
		return &InlineReply{Data: v.Data}
	case *MultiBulkReply:
		if v.Items == nil {
			return &InlineReply{}
		}
		parts := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			parts = append(parts, string(ToInline(item).Data))
		}
		return &InlineReply{Data: []byte(strings.Join(parts, " "))}
	default:
		return &InlineReply{}
	}
}

// Text returns a human readable rendering of a reply, used by respd-cli.
func Text(r Reply) string {
	switch v := r.(type) {
	case nil:
		return "(nil)"
	case *StatusReply:
		return v.Status
	case *ErrorReply:
		return "(error) " + v.Message
	case *IntegerReply:
		return "(integer) " + strconv.FormatInt(v.Value, 10)
	case *BulkReply:
		if v.Data == nil {
			return "(nil)"
		}
		return strconv.Quote(string(v.Data))
	case *InlineReply:
		return string(v.Data)
	case *MultiBulkReply:
		if v.Items == nil {
			return "(nil)"
		}
		if len(v.Items) == 0 {
			return "(empty array)"
		}
		var sb strings.Builder
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(strconv.Itoa(i + 1))
			sb.WriteString(") ")
			sb.WriteString(Text(item))
		}
		return sb.String()
	default:
		return ""
	}
}
