// Package command binds the respd command names to their implementations.
//
// NewRegistry produces the dispatch.Registry served by respd-server. Every
// handler is declared through the dispatch typed binders, so argument
// counts and conversions are checked before the implementation runs.
package command

import (
	"sort"
	"time"

	"github.com/yndnr/respd-go/internal/core/service"
	"github.com/yndnr/respd-go/internal/dispatch"
)

// Flag values reported by COMMAND INFO.
const (
	flagWrite    = "write"
	flagReadonly = "readonly"
	flagFast     = "fast"
	flagAdmin    = "admin"
	flagStale    = "stale"
)

// Stats reports server counters for INFO. Implementations must be safe for
// concurrent use.
type Stats interface {
	ConnectedClients() int64
	TotalConnections() int64
	TotalCommands() int64
}

// Options configures the catalog.
type Options struct {
	// Version is reported by INFO.
	Version string

	// StartTime is the server start, used for uptime. Defaults to now.
	StartTime time.Time

	// Stats supplies connection and command counters. May be nil.
	Stats Stats

	// Now overrides the clock used by TIME and INFO.
	Now func() time.Time
}

// Meta is the COMMAND INFO metadata of one command.
type Meta struct {
	Flags []string
	// FirstKey, LastKey and Step locate key arguments (Redis conventions,
	// LastKey -1 means "up to the last argument").
	FirstKey, LastKey, Step int
}

type catalog struct {
	ks    *service.Keyspace
	opts  Options
	reg   *dispatch.Registry
	metas map[string]Meta
}

type definition struct {
	name    string
	handler dispatch.Handler
	meta    Meta
}

// NewRegistry builds the command registry over ks.
func NewRegistry(ks *service.Keyspace, opts Options) (*dispatch.Registry, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StartTime.IsZero() {
		opts.StartTime = opts.Now()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	c := &catalog{ks: ks, opts: opts, metas: make(map[string]Meta)}

	defs := append(c.connectionCommands(), c.stringCommands()...)
	defs = append(defs, c.keyCommands()...)

	b := dispatch.NewBuilder()
	for _, d := range defs {
		b.Register(d.name, d.handler)
		c.metas[d.name] = d.meta
	}
	reg, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.reg = reg
	return reg, nil
}

func meta(first, last, step int, flags ...string) Meta {
	sort.Strings(flags)
	return Meta{Flags: flags, FirstKey: first, LastKey: last, Step: step}
}
