package resp

import "strings"

// Command is one decoded client request.
//
// Args[0] is the command name. Argument slices are owned by the Command and
// never alias the decoder's read buffer.
type Command struct {
	Args   [][]byte
	Inline bool
}

// Name returns the raw command name, or nil for an empty command.
func (c *Command) Name() []byte {
	if c == nil || len(c.Args) == 0 {
		return nil
	}
	return c.Args[0]
}

// String renders the command for logs. Long arguments are truncated.
func (c *Command) String() string {
	if c == nil {
		return "<nil>"
	}
	var sb strings.Builder
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if len(a) > 32 {
			sb.Write(a[:32])
			sb.WriteString("...")
			continue
		}
		sb.Write(a)
	}
	return sb.String()
}
