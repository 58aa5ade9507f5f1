package repl

import (
	"sort"
	"strings"
)

// Completer completes command names.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over the given command names. Names
// are matched case-insensitively and returned in lower case.
func NewCompleter(commands []string) *Completer {
	seen := make(map[string]bool, len(commands))
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		c = strings.ToLower(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return &Completer{commands: out}
}

// Complete returns the command names starting with prefix. An empty
// prefix matches nothing.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil
	}
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
