package repl

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnbalancedQuotes is returned by SplitArgs for an unterminated quote.
var ErrUnbalancedQuotes = errors.New("invalid argument(s)")

// SplitArgs splits a line into arguments the way redis-cli does. Double
// quoted arguments accept \n, \r, \t, \", \\ and \xHH escapes; single
// quoted arguments accept only \'. A closing quote must be followed by a
// space or the end of the line.
func SplitArgs(line string) ([]string, error) {
	var (
		args []string
		i    int
	)
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			return args, nil
		}

		var sb strings.Builder
		switch line[i] {
		case '"':
			i++
			for {
				if i >= len(line) {
					return nil, ErrUnbalancedQuotes
				}
				ch := line[i]
				if ch == '"' {
					i++
					break
				}
				if ch == '\\' && i+1 < len(line) {
					if line[i+1] == 'x' && i+3 < len(line) {
						if b, err := strconv.ParseUint(line[i+2:i+4], 16, 8); err == nil {
							sb.WriteByte(byte(b))
							i += 4
							continue
						}
					}
					sb.WriteByte(unescape(line[i+1]))
					i += 2
					continue
				}
				sb.WriteByte(ch)
				i++
			}
		case '\'':
			i++
			for {
				if i >= len(line) {
					return nil, ErrUnbalancedQuotes
				}
				ch := line[i]
				if ch == '\'' {
					i++
					break
				}
				if ch == '\\' && i+1 < len(line) && line[i+1] == '\'' {
					sb.WriteByte('\'')
					i += 2
					continue
				}
				sb.WriteByte(ch)
				i++
			}
		default:
			for i < len(line) && !isSpace(line[i]) {
				sb.WriteByte(line[i])
				i++
			}
			args = append(args, sb.String())
			continue
		}

		if i < len(line) && !isSpace(line[i]) {
			return nil, ErrUnbalancedQuotes
		}
		args = append(args, sb.String())
	}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'a':
		return '\a'
	default:
		return c
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
