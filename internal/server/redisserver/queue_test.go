package redisserver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/respd-go/internal/infra/workerpool"
	"github.com/yndnr/respd-go/internal/telemetry/logger"
)

func newTestPool(t *testing.T, size, queue int) *workerpool.Pool {
	t.Helper()
	p := workerpool.New(size, queue, workerpool.WithLogger(logger.Discard()))
	p.Start()
	t.Cleanup(func() { p.Stop(context.Background()) })
	return p
}

func TestSerialQueue_FIFO(t *testing.T) {
	pool := newTestPool(t, 4, 2)

	var idle atomic.Int64
	q := newSerialQueue(pool, func() { idle.Add(1) })

	const n = 500
	var (
		mu   sync.Mutex
		got  []int
		wg   sync.WaitGroup
		busy atomic.Int32
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		q.push(context.Background(), func() {
			defer wg.Done()
			if busy.Add(1) != 1 {
				t.Error("two tasks of one queue ran at once")
			}
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			busy.Add(-1)
		})
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
	waitFor(t, "idle callback", func() bool { return idle.Load() > 0 })
	if q.len() != 0 {
		t.Errorf("len() = %d after drain", q.len())
	}
}

func TestSerialQueue_ManyQueuesShareThePool(t *testing.T) {
	pool := newTestPool(t, 3, 1)

	const (
		queues = 20
		tasks  = 50
	)
	var wg sync.WaitGroup
	results := make([][]int, queues)
	for qi := 0; qi < queues; qi++ {
		qi := qi
		q := newSerialQueue(pool, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			var inner sync.WaitGroup
			inner.Add(tasks)
			for i := 0; i < tasks; i++ {
				i := i
				q.push(context.Background(), func() {
					defer inner.Done()
					results[qi] = append(results[qi], i)
				})
			}
			inner.Wait()
		}()
	}
	wg.Wait()

	for qi, r := range results {
		if len(r) != tasks {
			t.Fatalf("queue %d ran %d tasks, want %d", qi, len(r), tasks)
		}
		for i, v := range r {
			if v != i {
				t.Fatalf("queue %d: task %d ran at position %d", qi, v, i)
			}
		}
	}
}

func TestSerialQueue_StoppedPool(t *testing.T) {
	pool := workerpool.New(1, 1, workerpool.WithLogger(logger.Discard()))
	pool.Start()
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	q := newSerialQueue(pool, nil)
	done := make(chan struct{})
	q.push(context.Background(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run after the pool stopped")
	}
}

// ============================================================
// Throttle and limiter
// ============================================================

func TestThrottle_Applies(t *testing.T) {
	th := newThrottle(time.Second, []string{"PING", "command"})

	tests := []struct {
		name string
		want bool
	}{
		{"ping", false},
		{"PiNg", false},
		{"COMMAND", false},
		{"get", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := th.applies([]byte(tt.name)); got != tt.want {
			t.Errorf("applies(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if newThrottle(0, nil).applies([]byte("get")) {
		t.Error("zero delay should never apply")
	}
}

func TestThrottle_PingAndCommandAlwaysExempt(t *testing.T) {
	for _, exempt := range [][]string{nil, {"echo"}} {
		th := newThrottle(time.Second, exempt)
		for _, name := range []string{"PING", "command"} {
			if th.applies([]byte(name)) {
				t.Errorf("exempt=%v: applies(%q) = true, want false", exempt, name)
			}
		}
		if !th.applies([]byte("get")) {
			t.Errorf("exempt=%v: applies(get) = false, want true", exempt)
		}
	}
	if newThrottle(time.Second, []string{"echo"}).applies([]byte("ECHO")) {
		t.Error("configured exemption ignored")
	}
}

func TestThrottle_WaitStops(t *testing.T) {
	th := newThrottle(time.Hour, nil)
	stop := make(chan struct{})
	close(stop)

	start := time.Now()
	th.wait(context.Background(), stop)
	if time.Since(start) > time.Second {
		t.Error("wait() ignored the stop channel")
	}
}

func TestLimiterSet(t *testing.T) {
	if s := newLimiterSet(0, 0); s != nil {
		t.Fatal("zero rate should disable limiting")
	}
	var disabled *limiterSet
	if disabled.acquire("1.2.3.4") != nil {
		t.Error("disabled set returned a limiter")
	}

	s := newLimiterSet(5, 0)
	a := s.acquire("10.0.0.1")
	b := s.acquire("10.0.0.1")
	if a != b {
		t.Error("connections from one IP should share a limiter")
	}
	if a.Burst() != 5 {
		t.Errorf("Burst() = %d, want 5", a.Burst())
	}
	if c := s.acquire("10.0.0.2"); c == a {
		t.Error("different IPs should not share a limiter")
	}

	s.release("10.0.0.1")
	if s.len() != 2 {
		t.Errorf("len() = %d, want 2 while a reference remains", s.len())
	}
	s.release("10.0.0.1")
	s.release("10.0.0.2")
	if s.len() != 0 {
		t.Errorf("len() = %d, want 0", s.len())
	}
}
