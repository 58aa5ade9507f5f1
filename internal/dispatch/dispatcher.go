package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/yndnr/respd-go/internal/core/domain"
	"github.com/yndnr/respd-go/internal/protocol/resp"
)

// Status classifies the outcome of one dispatch.
type Status uint8

const (
	StatusOK Status = iota
	StatusNoCommand
	StatusUnknownCommand
	StatusBindError
	StatusOperationError
	StatusUnexpectedError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoCommand:
		return "no_command"
	case StatusUnknownCommand:
		return "unknown_command"
	case StatusBindError:
		return "bind_error"
	case StatusOperationError:
		return "operation_error"
	case StatusUnexpectedError:
		return "unexpected_error"
	default:
		return "unknown"
	}
}

// UnknownName is the command label used for metrics when the name is not
// registered.
const UnknownName = "unknown"

// Result is the outcome of dispatching one command.
type Result struct {
	// Reply is ready for the encoder: inline re-wrapping and the
	// not-implemented substitution have already been applied.
	Reply  resp.Reply
	Status Status
	// Name is the registered command name, empty when not found.
	Name string
	// Err is the handler or bind error, if any.
	Err error
	// Close asks the pipeline to close the connection after flushing.
	Close bool
}

// Recorder observes dispatch outcomes.
type Recorder interface {
	ObserveCommand(name string, status Status, elapsed time.Duration)
}

// Dispatcher resolves and invokes commands. It is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// New creates a dispatcher over reg.
func New(reg *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher routes with.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch routes cmd to its handler and returns the classified result.
//
// Handler failures, including panics, are turned into error replies; they
// never propagate to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *resp.Command) Result {
	start := time.Now()
	res := d.dispatch(ctx, cmd)
	res = finalize(res, cmd.Inline)

	if d.recorder != nil {
		name := res.Name
		if name == "" {
			name = UnknownName
		}
		d.recorder.ObserveCommand(name, res.Status, time.Since(start))
	}
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd *resp.Command) Result {
	if len(cmd.Args) == 0 {
		return Result{Reply: resp.Errorf("no command"), Status: StatusNoCommand}
	}

	name := NormalizeName(cmd.Args[0])
	entry, ok := d.registry.Lookup(name)
	if !ok {
		return Result{
			Reply:  resp.Errorf(fmt.Sprintf("unknown command '%s'", name)),
			Status: StatusUnknownCommand,
		}
	}

	reply, err := d.invoke(ctx, entry, cmd.Args[1:])
	if err == nil {
		return Result{Reply: reply, Status: StatusOK, Name: entry.Name}
	}

	res := Result{Name: entry.Name, Err: err}
	var (
		bindErr *BindError
		opErr   *domain.OperationError
		pe      *panicError
	)
	switch {
	case errors.As(err, &bindErr):
		res.Status = StatusBindError
		res.Reply = resp.Errorf(bindErr.Message)
	case errors.As(err, &opErr):
		res.Status = StatusOperationError
		res.Reply = resp.Error(opErr.Error())
	case errors.As(err, &pe):
		res.Status = StatusUnexpectedError
		res.Reply = resp.Errorf(err.Error())
		d.logger.Error("unexpected command failure",
			"command", entry.Name,
			"error", err,
			"stack", string(pe.stack))
	default:
		res.Status = StatusUnexpectedError
		res.Reply = resp.Errorf(err.Error())
		d.logger.Error("unexpected command failure",
			"command", entry.Name,
			"error", err)
	}
	return res
}

func (d *Dispatcher) invoke(ctx context.Context, e *Entry, args [][]byte) (reply resp.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = nil
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return e.Handler.Invoke(ctx, e.Name, args)
}

// finalize applies the close sentinel and the reply framing rules.
func finalize(res Result, inline bool) Result {
	if res.Reply == resp.Quit {
		res.Close = true
	}
	switch {
	case inline:
		res.Reply = resp.ToInline(res.Reply)
	case res.Reply == nil:
		res.Reply = resp.NotImplemented
	}
	return res
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
