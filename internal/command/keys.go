package command

import (
	"context"
	"strings"
	"time"

	"github.com/yndnr/respd-go/internal/core/domain"
	"github.com/yndnr/respd-go/internal/dispatch"
	"github.com/yndnr/respd-go/internal/protocol/resp"
)

func (c *catalog) keyCommands() []definition {
	return []definition{
		{"del", dispatch.Variadic(c.del).AtLeast(1), meta(1, -1, 1, flagWrite)},
		{"exists", dispatch.Variadic(c.exists).AtLeast(1), meta(1, -1, 1, flagReadonly, flagFast)},
		{"expire", dispatch.Func2(c.expireSeconds), meta(1, 1, 1, flagWrite, flagFast)},
		{"pexpire", dispatch.Func2(c.expireMillis), meta(1, 1, 1, flagWrite, flagFast)},
		{"ttl", dispatch.Func1(c.ttlSeconds), meta(1, 1, 1, flagReadonly, flagFast)},
		{"pttl", dispatch.Func1(c.ttlMillis), meta(1, 1, 1, flagReadonly, flagFast)},
		{"persist", dispatch.Func1(c.persist), meta(1, 1, 1, flagWrite, flagFast)},
		{"type", dispatch.Func1(c.keyType), meta(1, 1, 1, flagReadonly, flagFast)},
		{"keys", dispatch.Func1(c.keys), meta(0, 0, 0, flagReadonly)},
		{"dbsize", dispatch.Func0(c.dbsize), meta(0, 0, 0, flagReadonly, flagFast)},
		{"flushdb", dispatch.Variadic(c.flush), meta(0, 0, 0, flagWrite)},
		{"flushall", dispatch.Variadic(c.flush), meta(0, 0, 0, flagWrite)},
	}
}

func (c *catalog) del(ctx context.Context, keys [][]byte) (resp.Reply, error) {
	n, err := c.ks.Del(ctx, keys)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

func (c *catalog) exists(ctx context.Context, keys [][]byte) (resp.Reply, error) {
	n, err := c.ks.Exists(ctx, keys)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

func (c *catalog) expireSeconds(ctx context.Context, key []byte, seconds int64) (resp.Reply, error) {
	ok, err := c.ks.Expire(ctx, "expire", key, seconds, time.Second)
	if err != nil {
		return nil, err
	}
	return boolReply(ok), nil
}

func (c *catalog) expireMillis(ctx context.Context, key []byte, ms int64) (resp.Reply, error) {
	ok, err := c.ks.Expire(ctx, "pexpire", key, ms, time.Millisecond)
	if err != nil {
		return nil, err
	}
	return boolReply(ok), nil
}

func (c *catalog) ttlSeconds(ctx context.Context, key []byte) (resp.Reply, error) {
	n, err := c.ks.TTL(ctx, key, time.Second)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

func (c *catalog) ttlMillis(ctx context.Context, key []byte) (resp.Reply, error) {
	n, err := c.ks.TTL(ctx, key, time.Millisecond)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

func (c *catalog) persist(ctx context.Context, key []byte) (resp.Reply, error) {
	ok, err := c.ks.Persist(ctx, key)
	if err != nil {
		return nil, err
	}
	return boolReply(ok), nil
}

func (c *catalog) keyType(ctx context.Context, key []byte) (resp.Reply, error) {
	typ, err := c.ks.Type(ctx, key)
	if err != nil {
		return nil, err
	}
	return resp.Status(typ), nil
}

func (c *catalog) keys(ctx context.Context, pattern []byte) (resp.Reply, error) {
	keys, err := c.ks.Keys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return resp.BulkArray(keys), nil
}

func (c *catalog) dbsize(ctx context.Context) (resp.Reply, error) {
	n, err := c.ks.DBSize(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

// FLUSHDB and FLUSHALL accept an optional ASYNC or SYNC modifier; both
// flush synchronously.
func (c *catalog) flush(ctx context.Context, args []string) (resp.Reply, error) {
	if len(args) > 1 {
		return nil, domain.ErrSyntax
	}
	if len(args) == 1 {
		switch strings.ToUpper(args[0]) {
		case "ASYNC", "SYNC":
		default:
			return nil, domain.ErrSyntax
		}
	}
	if err := c.ks.Flush(ctx); err != nil {
		return nil, err
	}
	return resp.OK, nil
}
