package workerpool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_RunsTasks(t *testing.T) {
	p := New(4, 16, WithLogger(quietLogger()))
	p.Start()

	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := p.Submit(context.Background(), func() {
			defer wg.Done()
			n.Add(1)
		}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	wg.Wait()

	if got := n.Load(); got != 100 {
		t.Errorf("ran %d tasks, want 100", got)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := p.Completed(); got != 100 {
		t.Errorf("Completed() = %d, want 100", got)
	}
}

func TestPool_Defaults(t *testing.T) {
	p := New(0, 0)
	if p.Size() != DefaultSize {
		t.Errorf("Size() = %d, want %d", p.Size(), DefaultSize)
	}
	if p.QueueCapacity() != DefaultQueueSize {
		t.Errorf("QueueCapacity() = %d, want %d", p.QueueCapacity(), DefaultQueueSize)
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	p := New(2, 16, WithLogger(quietLogger()))
	p.Start()
	defer p.Stop(context.Background())

	var active, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		_ = p.Submit(context.Background(), func() {
			defer wg.Done()
			cur := active.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
		})
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestPool_TrySubmitFull(t *testing.T) {
	p := New(1, 1, WithLogger(quietLogger()))
	p.Start()

	release := make(chan struct{})
	started := make(chan struct{})
	if !p.TrySubmit(func() { close(started); <-release }) {
		t.Fatal("TrySubmit() on empty pool = false")
	}
	<-started

	if !p.TrySubmit(func() {}) {
		t.Fatal("TrySubmit() with free queue slot = false")
	}
	if p.TrySubmit(func() {}) {
		t.Error("TrySubmit() on full queue = true")
	}
	if p.Busy() != 1 {
		t.Errorf("Busy() = %d, want 1", p.Busy())
	}
	if p.QueueDepth() != 1 {
		t.Errorf("QueueDepth() = %d, want 1", p.QueueDepth())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit() on full queue error = %v, want deadline exceeded", err)
	}

	close(release)
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestPool_PanicIsRecovered(t *testing.T) {
	p := New(1, 4, WithLogger(quietLogger()))
	p.Start()

	_ = p.Submit(context.Background(), func() { panic("boom") })

	done := make(chan struct{})
	_ = p.Submit(context.Background(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
	_ = p.Stop(context.Background())
	if p.Panics() != 1 {
		t.Errorf("Panics() = %d, want 1", p.Panics())
	}
}

func TestPool_StopDrainsAndRejects(t *testing.T) {
	p := New(1, 8, WithLogger(quietLogger()))
	p.Start()

	var n atomic.Int64
	for i := 0; i < 5; i++ {
		_ = p.Submit(context.Background(), func() {
			time.Sleep(time.Millisecond)
			n.Add(1)
		})
	}

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if n.Load() != 5 {
		t.Errorf("drained %d tasks, want 5", n.Load())
	}

	if err := p.Submit(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Stop error = %v, want ErrClosed", err)
	}
	if p.TrySubmit(func() {}) {
		t.Error("TrySubmit() after Stop = true")
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
