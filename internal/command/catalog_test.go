package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/respd-go/internal/core/service"
	"github.com/yndnr/respd-go/internal/dispatch"
	"github.com/yndnr/respd-go/internal/protocol/resp"
	"github.com/yndnr/respd-go/internal/storage/memory"
)

type fixedStats struct{}

func (fixedStats) ConnectedClients() int64 { return 3 }
func (fixedStats) TotalConnections() int64 { return 10 }
func (fixedStats) TotalCommands() int64    { return 42 }

type harness struct {
	t *testing.T
	d *dispatch.Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New(memory.WithExpireInterval(0))
	t.Cleanup(func() { store.Close() })

	now := time.Unix(1_700_000_000, 123_456_000)
	reg, err := NewRegistry(service.NewKeyspace(store), Options{
		Version:   "1.2.3",
		StartTime: now.Add(-90 * time.Second),
		Stats:     fixedStats{},
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return &harness{t: t, d: dispatch.New(reg)}
}

func (h *harness) do(args ...string) resp.Reply {
	h.t.Helper()
	cmd := &resp.Command{Args: make([][]byte, len(args))}
	for i, a := range args {
		cmd.Args[i] = []byte(a)
	}
	return h.d.Dispatch(context.Background(), cmd).Reply
}

func bulk(s string) resp.Reply { return resp.BulkString(s) }

func errReply(msg string) resp.Reply { return resp.Error(msg) }

// ============================================================
// Connection commands
// ============================================================

func TestCatalog_Connection(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, resp.Pong, h.do("PING"))
	assert.Equal(t, bulk("hello"), h.do("ping", "hello"))
	assert.Equal(t, errReply("ERR wrong number of arguments for 'ping' command"), h.do("ping", "a", "b"))
	assert.Equal(t, bulk("x y"), h.do("echo", "x y"))
	assert.Equal(t, resp.OK, h.do("select", "0"))
	assert.Equal(t, errReply("ERR DB index is out of range"), h.do("select", "1"))
	assert.Equal(t, resp.Array(bulk("1700000000"), bulk("123456")), h.do("time"))
}

func TestCatalog_Quit(t *testing.T) {
	h := newHarness(t)
	res := h.d.Dispatch(context.Background(), &resp.Command{Args: [][]byte{[]byte("QUIT")}})
	assert.True(t, res.Close)
	assert.Same(t, resp.Quit, res.Reply)
}

func TestCatalog_NotImplemented(t *testing.T) {
	h := newHarness(t)
	assert.Same(t, resp.NotImplemented, h.do("sync"))
	assert.Same(t, resp.NotImplemented, h.do("MONITOR"))
}

func TestCatalog_Command(t *testing.T) {
	h := newHarness(t)

	count, ok := h.do("command", "count").(*resp.IntegerReply)
	require.True(t, ok)
	assert.Equal(t, int64(h.d.Registry().Len()), count.Value)

	list, ok := h.do("COMMAND", "LIST").(*resp.MultiBulkReply)
	require.True(t, ok)
	assert.Len(t, list.Items, h.d.Registry().Len())

	info, ok := h.do("command", "info", "get", "nope", "MGET").(*resp.MultiBulkReply)
	require.True(t, ok)
	require.Len(t, info.Items, 3)
	assert.Equal(t, resp.Array(
		bulk("get"),
		resp.Integer(2),
		resp.Array(resp.Status("fast"), resp.Status("readonly")),
		resp.Integer(1), resp.Integer(1), resp.Integer(1),
	), info.Items[0])
	assert.Same(t, resp.NullArray, info.Items[1])

	mget := info.Items[2].(*resp.MultiBulkReply)
	assert.Equal(t, resp.Integer(-2), mget.Items[1])

	all, ok := h.do("command").(*resp.MultiBulkReply)
	require.True(t, ok)
	assert.Len(t, all.Items, h.d.Registry().Len())

	assert.Equal(t, errReply("ERR unknown subcommand 'bogus'. Try COMMAND HELP."), h.do("command", "bogus"))
}

func TestCatalog_Info(t *testing.T) {
	h := newHarness(t)
	h.do("set", "k", "v")

	reply, ok := h.do("info").(*resp.BulkReply)
	require.True(t, ok)
	text := string(reply.Data)
	for _, want := range []string{
		"# Server\r\n",
		"respd_version:1.2.3\r\n",
		"uptime_in_seconds:90\r\n",
		"connected_clients:3\r\n",
		"total_connections_received:10\r\n",
		"total_commands_processed:42\r\n",
		"db0:keys=1\r\n",
	} {
		assert.Contains(t, text, want)
	}

	reply = h.do("info", "clients").(*resp.BulkReply)
	assert.True(t, strings.HasPrefix(string(reply.Data), "# Clients\r\n"))
	assert.NotContains(t, string(reply.Data), "# Server")
}

func TestCatalog_DebugSleep(t *testing.T) {
	h := newHarness(t)

	start := time.Now()
	assert.Equal(t, resp.OK, h.do("debug", "sleep", "0.05"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	assert.Equal(t, errReply("ERR unknown subcommand 'crash'. Try DEBUG HELP."), h.do("debug", "crash"))
	assert.Equal(t, errReply("ERR wrong number of arguments for 'debug' command"), h.do("debug"))
}

// ============================================================
// String commands
// ============================================================

func TestCatalog_Set(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, resp.OK, h.do("set", "k", "v1"))
	assert.Equal(t, bulk("v1"), h.do("get", "k"))
	assert.Same(t, resp.NullBulk, h.do("get", "missing"))

	assert.Same(t, resp.NullBulk, h.do("set", "k", "v2", "NX"))
	assert.Equal(t, bulk("v1"), h.do("set", "k", "v2", "XX", "GET"))
	assert.Same(t, resp.NullBulk, h.do("set", "new", "x", "GET"))

	assert.Equal(t, resp.OK, h.do("set", "t", "v", "EX", "100"))
	assert.Equal(t, resp.Integer(100), h.do("ttl", "t"))

	assert.Equal(t, errReply("ERR syntax error"), h.do("set", "k", "v", "NX", "XX"))
	assert.Equal(t, errReply("ERR invalid expire time in 'set' command"), h.do("set", "k", "v", "PX", "0"))
	assert.Equal(t, errReply("ERR wrong number of arguments for 'set' command"), h.do("set", "k"))
}

func TestCatalog_StringFamily(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, resp.Integer(1), h.do("setnx", "a", "1"))
	assert.Equal(t, resp.Integer(0), h.do("setnx", "a", "2"))
	assert.Equal(t, bulk("1"), h.do("getset", "a", "5"))

	assert.Equal(t, resp.Integer(6), h.do("incr", "a"))
	assert.Equal(t, resp.Integer(4), h.do("decrby", "a", "2"))
	assert.Equal(t, resp.Integer(14), h.do("incrby", "a", "10"))
	assert.Equal(t, resp.Integer(13), h.do("decr", "a"))
	assert.Equal(t, bulk("13.5"), h.do("incrbyfloat", "a", "0.5"))
	assert.Equal(t, errReply("ERR value is not an integer or out of range"), h.do("incr", "a"))
	assert.Equal(t, errReply("ERR value is not an integer or out of range"), h.do("incrby", "a", "x"))

	assert.Equal(t, resp.Integer(5), h.do("append", "s", "hello"))
	assert.Equal(t, resp.Integer(5), h.do("strlen", "s"))

	assert.Equal(t, resp.OK, h.do("mset", "m1", "x", "m2", "y"))
	assert.Equal(t, resp.BulkArray([][]byte{[]byte("x"), nil, []byte("y")}), h.do("mget", "m1", "none", "m2"))
	assert.Equal(t, errReply("ERR wrong number of arguments for 'mset' command"), h.do("mset", "a", "b", "c"))

	assert.Equal(t, resp.OK, h.do("setex", "e", "10", "v"))
	assert.Equal(t, errReply("ERR invalid expire time in 'setex' command"), h.do("setex", "e", "-1", "v"))
}

// ============================================================
// Key commands
// ============================================================

func TestCatalog_Keys(t *testing.T) {
	h := newHarness(t)
	h.do("mset", "user:1", "a", "user:2", "b", "other", "c")

	assert.Equal(t, resp.Integer(3), h.do("dbsize"))
	assert.Equal(t, resp.Integer(2), h.do("exists", "user:1", "user:2", "nope"))
	assert.Equal(t, resp.BulkArray([][]byte{[]byte("user:1"), []byte("user:2")}), h.do("keys", "user:*"))
	assert.Equal(t, resp.Status("string"), h.do("type", "other"))
	assert.Equal(t, resp.Status("none"), h.do("type", "nope"))

	assert.Equal(t, resp.Integer(-1), h.do("ttl", "other"))
	assert.Equal(t, resp.Integer(-2), h.do("pttl", "nope"))
	assert.Equal(t, resp.Integer(1), h.do("expire", "other", "30"))
	assert.Equal(t, resp.Integer(30000), h.do("pttl", "other"))
	assert.Equal(t, resp.Integer(1), h.do("persist", "other"))
	assert.Equal(t, resp.Integer(1), h.do("pexpire", "other", "-5"))
	assert.Equal(t, resp.Integer(0), h.do("exists", "other"))

	assert.Equal(t, resp.Integer(1), h.do("del", "user:1", "nope"))
	assert.Equal(t, errReply("ERR syntax error"), h.do("flushdb", "later"))
	assert.Equal(t, resp.OK, h.do("flushall", "async"))
	assert.Equal(t, resp.Integer(0), h.do("dbsize"))
}

func TestCatalog_InlineRequest(t *testing.T) {
	h := newHarness(t)
	h.do("mset", "a", "1", "b", "2")

	res := h.d.Dispatch(context.Background(), &resp.Command{
		Args:   [][]byte{[]byte("DBSIZE")},
		Inline: true,
	})
	assert.Equal(t, &resp.InlineReply{Data: []byte("2")}, res.Reply)
}
