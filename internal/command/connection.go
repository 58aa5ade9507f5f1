package command

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respd-go/internal/core/domain"
	"github.com/yndnr/respd-go/internal/dispatch"
	"github.com/yndnr/respd-go/internal/protocol/resp"
)

// maxDebugSleep caps DEBUG SLEEP so a client cannot park a worker forever.
const maxDebugSleep = time.Hour

func (c *catalog) connectionCommands() []definition {
	return []definition{
		{"ping", dispatch.Variadic(c.ping), meta(0, 0, 0, flagFast, flagStale)},
		{"echo", dispatch.Func1(c.echo), meta(0, 0, 0, flagFast)},
		{"quit", dispatch.Func0(c.quit), meta(0, 0, 0, flagFast)},
		{"select", dispatch.Func1(c.selectDB), meta(0, 0, 0, flagFast)},
		{"command", dispatch.Variadic(c.command), meta(0, 0, 0, flagStale)},
		{"info", dispatch.Variadic(c.info), meta(0, 0, 0, flagStale)},
		{"time", dispatch.Func0(c.serverTime), meta(0, 0, 0, flagFast)},
		{"debug", dispatch.Variadic1(c.debug), meta(0, 0, 0, flagAdmin)},
		{"sync", dispatch.Func0(notImplemented), meta(0, 0, 0, flagAdmin)},
		{"monitor", dispatch.Func0(notImplemented), meta(0, 0, 0, flagAdmin)},
	}
}

func (c *catalog) ping(_ context.Context, args [][]byte) (resp.Reply, error) {
	switch len(args) {
	case 0:
		return resp.Pong, nil
	case 1:
		return resp.Bulk(args[0]), nil
	default:
		return nil, domain.ErrWrongArgs("ping")
	}
}

func (c *catalog) echo(_ context.Context, msg []byte) (resp.Reply, error) {
	return resp.Bulk(msg), nil
}

func (c *catalog) quit(context.Context) (resp.Reply, error) {
	return resp.Quit, nil
}

func (c *catalog) selectDB(_ context.Context, index int64) (resp.Reply, error) {
	if index != 0 {
		return nil, domain.ErrDBIndex
	}
	return resp.OK, nil
}

func (c *catalog) serverTime(context.Context) (resp.Reply, error) {
	now := c.opts.Now()
	return resp.Array(
		resp.BulkString(strconv.FormatInt(now.Unix(), 10)),
		resp.BulkString(strconv.Itoa(now.Nanosecond()/1000)),
	), nil
}

// notImplemented returns no reply; the dispatcher substitutes the
// not-implemented error.
func notImplemented(context.Context) (resp.Reply, error) {
	return nil, nil
}

// ============================================================================
// COMMAND
// ============================================================================

func (c *catalog) command(_ context.Context, args []string) (resp.Reply, error) {
	if len(args) == 0 {
		entries := c.reg.Entries()
		items := make([]resp.Reply, 0, len(entries))
		for _, e := range entries {
			items = append(items, c.commandInfo(e))
		}
		return resp.Array(items...), nil
	}

	switch sub := strings.ToLower(args[0]); sub {
	case "count":
		if len(args) != 1 {
			return nil, domain.ErrWrongArgs("command|count")
		}
		return resp.Integer(int64(c.reg.Len())), nil
	case "list":
		if len(args) != 1 {
			return nil, domain.ErrWrongArgs("command|list")
		}
		names := c.reg.Names()
		values := make([][]byte, len(names))
		for i, n := range names {
			values[i] = []byte(n)
		}
		return resp.BulkArray(values), nil
	case "info":
		items := make([]resp.Reply, 0, len(args)-1)
		for _, name := range args[1:] {
			e, ok := c.reg.Lookup(dispatch.NormalizeName([]byte(name)))
			if !ok {
				items = append(items, resp.NullArray)
				continue
			}
			items = append(items, c.commandInfo(e))
		}
		return resp.Array(items...), nil
	default:
		return nil, domain.ErrUnknownSubcommand("COMMAND", sub)
	}
}

func (c *catalog) commandInfo(e *dispatch.Entry) resp.Reply {
	m := c.metas[e.Name]
	flags := make([]resp.Reply, len(m.Flags))
	for i, f := range m.Flags {
		flags[i] = resp.Status(f)
	}
	return resp.Array(
		resp.BulkString(e.Name),
		resp.Integer(int64(e.Handler.Arity())),
		resp.Array(flags...),
		resp.Integer(int64(m.FirstKey)),
		resp.Integer(int64(m.LastKey)),
		resp.Integer(int64(m.Step)),
	)
}

// ============================================================================
// INFO
// ============================================================================

var infoSections = []string{"server", "clients", "stats", "keyspace"}

func (c *catalog) info(ctx context.Context, args []string) (resp.Reply, error) {
	if len(args) > 1 {
		return nil, domain.ErrSyntax
	}
	want := "default"
	if len(args) == 1 {
		want = strings.ToLower(args[0])
	}

	var sb strings.Builder
	for _, section := range infoSections {
		if want != "default" && want != "all" && want != "everything" && want != section {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\r\n")
		}
		if err := c.writeInfoSection(ctx, &sb, section); err != nil {
			return nil, err
		}
	}
	return resp.BulkString(sb.String()), nil
}

func (c *catalog) writeInfoSection(ctx context.Context, sb *strings.Builder, section string) error {
	field := func(name string, value any) {
		fmt.Fprintf(sb, "%s:%v\r\n", name, value)
	}

	switch section {
	case "server":
		uptime := c.opts.Now().Sub(c.opts.StartTime)
		sb.WriteString("# Server\r\n")
		field("respd_version", c.opts.Version)
		field("go_version", runtime.Version())
		field("os", runtime.GOOS+" "+runtime.GOARCH)
		field("uptime_in_seconds", int64(uptime/time.Second))
		field("uptime_in_days", int64(uptime/(24*time.Hour)))
	case "clients":
		sb.WriteString("# Clients\r\n")
		var connected int64
		if c.opts.Stats != nil {
			connected = c.opts.Stats.ConnectedClients()
		}
		field("connected_clients", connected)
	case "stats":
		sb.WriteString("# Stats\r\n")
		var conns, cmds int64
		if c.opts.Stats != nil {
			conns = c.opts.Stats.TotalConnections()
			cmds = c.opts.Stats.TotalCommands()
		}
		field("total_connections_received", conns)
		field("total_commands_processed", cmds)
	case "keyspace":
		sb.WriteString("# Keyspace\r\n")
		n, err := c.ks.DBSize(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			field("db0", fmt.Sprintf("keys=%d", n))
		}
	}
	return nil
}

// ============================================================================
// DEBUG
// ============================================================================

func (c *catalog) debug(ctx context.Context, sub string, args []string) (resp.Reply, error) {
	switch strings.ToLower(sub) {
	case "sleep":
		if len(args) != 1 {
			return nil, domain.ErrWrongArgs("debug|sleep")
		}
		secs, err := strconv.ParseFloat(args[0], 64)
		if err != nil || secs < 0 {
			return nil, domain.ErrNotFloat
		}
		d := maxDebugSleep
		if secs < maxDebugSleep.Seconds() {
			d = time.Duration(secs * float64(time.Second))
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return resp.OK, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	default:
		return nil, domain.ErrUnknownSubcommand("DEBUG", sub)
	}
}
