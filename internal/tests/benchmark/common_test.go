package benchmark

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/yndnr/respd-go/internal/command"
	"github.com/yndnr/respd-go/internal/core/service"
	"github.com/yndnr/respd-go/internal/dispatch"
	"github.com/yndnr/respd-go/internal/infra/workerpool"
	"github.com/yndnr/respd-go/internal/protocol/resp"
	"github.com/yndnr/respd-go/internal/server/redisserver"
	"github.com/yndnr/respd-go/internal/storage"
	"github.com/yndnr/respd-go/internal/storage/memory"
	"github.com/yndnr/respd-go/internal/telemetry/logger"
)

// KeyCounts defines the keyspace sizes for storage benchmarks.
var KeyCounts = []int{1000, 10000, 100000}

// startStack runs the full server over store and returns its address.
func startStack(b *testing.B, store storage.Store) string {
	b.Helper()

	reg, err := command.NewRegistry(service.NewKeyspace(store), command.Options{})
	if err != nil {
		b.Fatalf("NewRegistry() error = %v", err)
	}

	pool := workerpool.New(8, 1024, workerpool.WithLogger(logger.Discard()))
	pool.Start()
	b.Cleanup(func() { pool.Stop(context.Background()) })

	srv := redisserver.New(&redisserver.Config{Address: "127.0.0.1:0"},
		dispatch.New(reg, dispatch.WithLogger(logger.Discard())), pool,
		redisserver.WithLogger(logger.Discard()))
	if err := srv.Start(context.Background()); err != nil {
		b.Fatalf("Start() error = %v", err)
	}
	b.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv.Addr().String()
}

func startMemoryStack(b *testing.B) string {
	b.Helper()
	store := memory.New(memory.WithExpireInterval(0))
	b.Cleanup(func() { store.Close() })
	return startStack(b, store)
}

// benchClient is a minimal pipelining client.
type benchClient struct {
	nc net.Conn
	rd *bufio.Reader
	wr *bufio.Writer
}

func dialBench(b *testing.B, addr string) *benchClient {
	b.Helper()
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		b.Fatalf("Dial() error = %v", err)
	}
	b.Cleanup(func() { nc.Close() })
	return &benchClient{nc: nc, rd: bufio.NewReaderSize(nc, 64<<10), wr: bufio.NewWriterSize(nc, 64<<10)}
}

func (c *benchClient) send(args ...[]byte) error {
	return resp.WriteCommand(c.wr, args...)
}

// roundTrip flushes the pending requests and reads n replies.
func (c *benchClient) roundTrip(n int) error {
	if err := c.wr.Flush(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		r, err := resp.ReadReply(c.rd)
		if err != nil {
			return err
		}
		if e, ok := r.(*resp.ErrorReply); ok {
			return fmt.Errorf("server error: %s", e.Message)
		}
	}
	return nil
}

func key(i int) []byte {
	return []byte("key:" + strconv.Itoa(i))
}

// fill writes n keys straight into store.
func fill(b *testing.B, store storage.Store, n int) {
	b.Helper()
	ctx := context.Background()
	value := make([]byte, 64)
	for i := 0; i < n; i++ {
		if _, err := store.Set(ctx, key(i), value, storage.SetOptions{}); err != nil {
			b.Fatalf("Set() error = %v", err)
		}
	}
}
