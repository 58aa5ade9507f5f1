package command

import (
	"context"

	"github.com/yndnr/respd-go/internal/core/service"
	"github.com/yndnr/respd-go/internal/dispatch"
	"github.com/yndnr/respd-go/internal/protocol/resp"
)

func (c *catalog) stringCommands() []definition {
	return []definition{
		{"get", dispatch.Func1(c.get), meta(1, 1, 1, flagReadonly, flagFast)},
		{"set", dispatch.Variadic2(c.set), meta(1, 1, 1, flagWrite)},
		{"setnx", dispatch.Func2(c.setnx), meta(1, 1, 1, flagWrite, flagFast)},
		{"setex", dispatch.Func3(c.setex), meta(1, 1, 1, flagWrite)},
		{"getset", dispatch.Func2(c.getset), meta(1, 1, 1, flagWrite)},
		{"mget", dispatch.Variadic(c.mget).AtLeast(1), meta(1, -1, 1, flagReadonly, flagFast)},
		{"mset", dispatch.Variadic(c.mset).AtLeast(2), meta(1, -1, 2, flagWrite)},
		{"incr", dispatch.Func1(c.incr), meta(1, 1, 1, flagWrite, flagFast)},
		{"decr", dispatch.Func1(c.decr), meta(1, 1, 1, flagWrite, flagFast)},
		{"incrby", dispatch.Func2(c.incrby), meta(1, 1, 1, flagWrite, flagFast)},
		{"decrby", dispatch.Func2(c.decrby), meta(1, 1, 1, flagWrite, flagFast)},
		{"incrbyfloat", dispatch.Func2(c.incrbyfloat), meta(1, 1, 1, flagWrite, flagFast)},
		{"append", dispatch.Func2(c.appendValue), meta(1, 1, 1, flagWrite, flagFast)},
		{"strlen", dispatch.Func1(c.strlen), meta(1, 1, 1, flagReadonly, flagFast)},
	}
}

func (c *catalog) get(ctx context.Context, key []byte) (resp.Reply, error) {
	v, ok, err := c.ks.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.NullBulk, nil
	}
	return resp.Bulk(v), nil
}

// SET key value [EX seconds|PX milliseconds|KEEPTTL] [NX|XX] [GET]
func (c *catalog) set(ctx context.Context, key, value []byte, options []string) (resp.Reply, error) {
	args, err := service.ParseSetArgs(options)
	if err != nil {
		return nil, err
	}
	out, err := c.ks.Set(ctx, key, value, args)
	if err != nil {
		return nil, err
	}
	switch {
	case args.Get && out.HadOld:
		return resp.Bulk(out.Old), nil
	case args.Get:
		return resp.NullBulk, nil
	case out.Applied:
		return resp.OK, nil
	default:
		return resp.NullBulk, nil
	}
}

func (c *catalog) setnx(ctx context.Context, key, value []byte) (resp.Reply, error) {
	ok, err := c.ks.SetNX(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return boolReply(ok), nil
}

func (c *catalog) setex(ctx context.Context, key []byte, seconds int64, value []byte) (resp.Reply, error) {
	if err := c.ks.SetEX(ctx, key, seconds, value); err != nil {
		return nil, err
	}
	return resp.OK, nil
}

func (c *catalog) getset(ctx context.Context, key, value []byte) (resp.Reply, error) {
	old, ok, err := c.ks.GetSet(ctx, key, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.NullBulk, nil
	}
	return resp.Bulk(old), nil
}

func (c *catalog) mget(ctx context.Context, keys [][]byte) (resp.Reply, error) {
	values, err := c.ks.MGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	return resp.BulkArray(values), nil
}

func (c *catalog) mset(ctx context.Context, pairs [][]byte) (resp.Reply, error) {
	if err := c.ks.MSet(ctx, pairs); err != nil {
		return nil, err
	}
	return resp.OK, nil
}

func (c *catalog) incr(ctx context.Context, key []byte) (resp.Reply, error) {
	return c.incrby(ctx, key, 1)
}

func (c *catalog) decr(ctx context.Context, key []byte) (resp.Reply, error) {
	return c.incrby(ctx, key, -1)
}

func (c *catalog) incrby(ctx context.Context, key []byte, delta int64) (resp.Reply, error) {
	n, err := c.ks.IncrBy(ctx, key, delta)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

func (c *catalog) decrby(ctx context.Context, key []byte, delta int64) (resp.Reply, error) {
	n, err := c.ks.DecrBy(ctx, key, delta)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

func (c *catalog) incrbyfloat(ctx context.Context, key []byte, delta float64) (resp.Reply, error) {
	v, err := c.ks.IncrByFloat(ctx, key, delta)
	if err != nil {
		return nil, err
	}
	return resp.Bulk(v), nil
}

func (c *catalog) appendValue(ctx context.Context, key, value []byte) (resp.Reply, error) {
	n, err := c.ks.Append(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

func (c *catalog) strlen(ctx context.Context, key []byte) (resp.Reply, error) {
	n, err := c.ks.StrLen(ctx, key)
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

func boolReply(ok bool) resp.Reply {
	if ok {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}
