package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Executor runs one command. Errors are printed and the loop continues.
type Executor func(args []string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	exec      Executor
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithPrompt sets the prompt.
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithCompleter sets the command name completer.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) {
		r.completer = c
	}
}

// WithHistory sets the history.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// New creates a new REPL running commands through exec.
func New(in io.Reader, out io.Writer, exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     in,
		output:    out,
		prompt:    "respd> ",
		exec:      exec,
		completer: NewCompleter(nil),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// History returns the REPL history.
func (r *REPL) History() *History {
	return r.history
}

// Run starts the REPL loop. It returns nil on exit, quit or end of input.
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		fmt.Fprint(r.output, r.prompt)

		line, readErr := reader.ReadString('\n')
		if readErr == io.EOF && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if readErr != nil && readErr != io.EOF {
			return readErr
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.HasSuffix(line, "\t") {
			r.complete(strings.TrimSpace(line))
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			if readErr == io.EOF {
				return nil
			}
			continue
		}

		r.history.Add(line)

		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		}

		if err := r.execute(line); err != nil {
			fmt.Fprintf(r.output, "(error) %v\n", err)
		}
		if readErr == io.EOF {
			return nil
		}
	}
}

func (r *REPL) execute(line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	return r.exec(args)
}

func (r *REPL) complete(prefix string) {
	for _, s := range r.completer.Complete(prefix) {
		fmt.Fprintln(r.output, s)
	}
}
