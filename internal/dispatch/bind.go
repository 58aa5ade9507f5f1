package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/yndnr/respd-go/internal/protocol/resp"
)

// Scalar is the set of parameter types a handler may declare.
type Scalar interface {
	[]byte | string | int64 | int | float64
}

// Kind is the wire-level shape of a parameter.
type Kind uint8

const (
	KindBytes Kind = iota
	KindString
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Param describes one declared handler parameter.
type Param struct {
	Kind     Kind
	Variadic bool
}

// BindError reports that the arguments of a command could not be bound to
// the handler's parameters.
type BindError struct {
	Command string
	// Index is the 1-based argument position, 0 for arity errors.
	Index   int
	Message string
}

func (e *BindError) Error() string {
	return e.Message
}

// Bind failure messages.
const (
	msgNotInteger  = "value is not an integer or out of range"
	msgNotFloat    = "value is not a valid float"
	msgInvalidUTF8 = "invalid UTF-8 argument"
)

func arityError(command string) *BindError {
	return &BindError{
		Command: command,
		Message: fmt.Sprintf("wrong number of arguments for '%s' command", command),
	}
}

type invokeFunc func(ctx context.Context, args [][]byte) (resp.Reply, error)

// Handler is a command implementation together with its parameter shapes.
// Handlers are created with Func0..Func3 and Variadic..Variadic2.
type Handler struct {
	params      []Param
	minVariadic int
	call        invokeFunc
}

// Params returns the declared parameters.
func (h Handler) Params() []Param {
	return append([]Param(nil), h.params...)
}

// AtLeast requires at least n arguments to bind to the variadic parameter.
func (h Handler) AtLeast(n int) Handler {
	h.minVariadic = n
	return h
}

func (h Handler) variadic() bool {
	return len(h.params) > 0 && h.params[len(h.params)-1].Variadic
}

func (h Handler) fixed() int {
	if h.variadic() {
		return len(h.params) - 1
	}
	return len(h.params)
}

// Arity returns the Redis style arity including the command name: positive
// for an exact count, negative for a minimum.
func (h Handler) Arity() int {
	if h.variadic() {
		return -(h.fixed() + h.minVariadic + 1)
	}
	return h.fixed() + 1
}

// Invoke checks the argument count and calls the handler. args excludes the
// command name.
func (h Handler) Invoke(ctx context.Context, command string, args [][]byte) (resp.Reply, error) {
	if h.call == nil {
		return nil, fmt.Errorf("dispatch: handler for '%s' is not initialized", command)
	}
	if h.variadic() {
		if len(args) < h.fixed()+h.minVariadic {
			return nil, arityError(command)
		}
	} else if len(args) != h.fixed() {
		return nil, arityError(command)
	}

	reply, err := h.call(ctx, args)
	var be *BindError
	if errors.As(err, &be) && be.Command == "" {
		be.Command = command
	}
	return reply, err
}

// Func0 adapts a handler without parameters.
func Func0(fn func(ctx context.Context) (resp.Reply, error)) Handler {
	return Handler{
		call: func(ctx context.Context, _ [][]byte) (resp.Reply, error) {
			return fn(ctx)
		},
	}
}

// Func1 adapts a handler with one parameter.
func Func1[A Scalar](fn func(ctx context.Context, a A) (resp.Reply, error)) Handler {
	return Handler{
		params: []Param{paramOf[A](false)},
		call: func(ctx context.Context, args [][]byte) (resp.Reply, error) {
			a, err := convert[A](args[0], 1)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a)
		},
	}
}

// Func2 adapts a handler with two parameters.
func Func2[A, B Scalar](fn func(ctx context.Context, a A, b B) (resp.Reply, error)) Handler {
	return Handler{
		params: []Param{paramOf[A](false), paramOf[B](false)},
		call: func(ctx context.Context, args [][]byte) (resp.Reply, error) {
			a, err := convert[A](args[0], 1)
			if err != nil {
				return nil, err
			}
			b, err := convert[B](args[1], 2)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a, b)
		},
	}
}

// Func3 adapts a handler with three parameters.
func Func3[A, B, C Scalar](fn func(ctx context.Context, a A, b B, c C) (resp.Reply, error)) Handler {
	return Handler{
		params: []Param{paramOf[A](false), paramOf[B](false), paramOf[C](false)},
		call: func(ctx context.Context, args [][]byte) (resp.Reply, error) {
			a, err := convert[A](args[0], 1)
			if err != nil {
				return nil, err
			}
			b, err := convert[B](args[1], 2)
			if err != nil {
				return nil, err
			}
			c, err := convert[C](args[2], 3)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a, b, c)
		},
	}
}

// Variadic adapts a handler taking every argument as one list.
func Variadic[V Scalar](fn func(ctx context.Context, vs []V) (resp.Reply, error)) Handler {
	return Handler{
		params: []Param{paramOf[V](true)},
		call: func(ctx context.Context, args [][]byte) (resp.Reply, error) {
			vs, err := convertAll[V](args, 1)
			if err != nil {
				return nil, err
			}
			return fn(ctx, vs)
		},
	}
}

// Variadic1 adapts a handler with one fixed parameter followed by a list.
func Variadic1[A, V Scalar](fn func(ctx context.Context, a A, vs []V) (resp.Reply, error)) Handler {
	return Handler{
		params: []Param{paramOf[A](false), paramOf[V](true)},
		call: func(ctx context.Context, args [][]byte) (resp.Reply, error) {
			a, err := convert[A](args[0], 1)
			if err != nil {
				return nil, err
			}
			vs, err := convertAll[V](args[1:], 2)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a, vs)
		},
	}
}

// Variadic2 adapts a handler with two fixed parameters followed by a list.
func Variadic2[A, B, V Scalar](fn func(ctx context.Context, a A, b B, vs []V) (resp.Reply, error)) Handler {
	return Handler{
		params: []Param{paramOf[A](false), paramOf[B](false), paramOf[V](true)},
		call: func(ctx context.Context, args [][]byte) (resp.Reply, error) {
			a, err := convert[A](args[0], 1)
			if err != nil {
				return nil, err
			}
			b, err := convert[B](args[1], 2)
			if err != nil {
				return nil, err
			}
			vs, err := convertAll[V](args[2:], 3)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a, b, vs)
		},
	}
}

func paramOf[T Scalar](variadic bool) Param {
	var zero T
	p := Param{Variadic: variadic}
	switch any(zero).(type) {
	case []byte:
		p.Kind = KindBytes
	case string:
		p.Kind = KindString
	case int64, int:
		p.Kind = KindInt
	case float64:
		p.Kind = KindFloat
	}
	return p
}

func convertAll[T Scalar](args [][]byte, first int) ([]T, error) {
	out := make([]T, len(args))
	for i, b := range args {
		v, err := convert[T](b, first+i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// convert parses one argument. Integers are base 10 with an optional sign,
// floats reject NaN, strings must be valid UTF-8.
func convert[T Scalar](b []byte, index int) (T, error) {
	var zero T
	switch p := any(&zero).(type) {
	case *[]byte:
		*p = b
	case *string:
		if !utf8.Valid(b) {
			return zero, &BindError{Index: index, Message: msgInvalidUTF8}
		}
		*p = string(b)
	case *int64:
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return zero, &BindError{Index: index, Message: msgNotInteger}
		}
		*p = n
	case *int:
		n, err := strconv.ParseInt(string(b), 10, strconv.IntSize)
		if err != nil {
			return zero, &BindError{Index: index, Message: msgNotInteger}
		}
		*p = int(n)
	case *float64:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil || math.IsNaN(f) {
			return zero, &BindError{Index: index, Message: msgNotFloat}
		}
		*p = f
	}
	return zero, nil
}
