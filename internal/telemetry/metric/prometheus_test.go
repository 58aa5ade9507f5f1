package metric

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/respd-go/internal/dispatch"
)

type stubPool struct{}

func (stubPool) Size() int          { return 4 }
func (stubPool) Busy() int          { return 1 }
func (stubPool) QueueDepth() int    { return 7 }
func (stubPool) QueueCapacity() int { return 64 }
func (stubPool) Completed() uint64  { return 100 }
func (stubPool) Panics() uint64     { return 2 }

func TestRegistry_ObserveCommand(t *testing.T) {
	r := NewRegistry()

	r.ObserveCommand("get", dispatch.StatusOK, time.Millisecond)
	r.ObserveCommand("get", dispatch.StatusOK, 2*time.Millisecond)
	r.ObserveCommand("unknown", dispatch.StatusUnknownCommand, time.Microsecond)

	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("get", "ok")); got != 2 {
		t.Errorf("commands_total{get,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("unknown", "unknown_command")); got != 1 {
		t.Errorf("commands_total{unknown,unknown_command} = %v, want 1", got)
	}
	if got := r.TotalCommands(); got != 3 {
		t.Errorf("TotalCommands() = %d, want 3", got)
	}
}

func TestRegistry_Connections(t *testing.T) {
	r := NewRegistry()

	r.ConnOpened()
	r.ConnOpened()
	r.ConnClosed()
	r.ProtocolError()
	r.Throttled()
	r.RateLimit()

	if got := testutil.ToFloat64(r.ConnectionsActive); got != 1 {
		t.Errorf("connections_active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.ConnectionsTotal); got != 2 {
		t.Errorf("connections_total = %v, want 2", got)
	}
	if r.ConnectedClients() != 1 || r.TotalConnections() != 2 {
		t.Errorf("ConnectedClients/TotalConnections = %d/%d, want 1/2",
			r.ConnectedClients(), r.TotalConnections())
	}
	for name, c := range map[string]float64{
		"protocol_errors": testutil.ToFloat64(r.ProtocolErrors),
		"throttled":       testutil.ToFloat64(r.ThrottledCommands),
		"rate_limited":    testutil.ToFloat64(r.RateLimited),
	} {
		if c != 1 {
			t.Errorf("%s = %v, want 1", name, c)
		}
	}
}

func TestRegistry_RegisterPool(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterPool(stubPool{}); err != nil {
		t.Fatalf("RegisterPool() error = %v", err)
	}
	if err := r.RegisterPool(stubPool{}); err == nil {
		t.Error("second RegisterPool() should fail with duplicate registration")
	}

	expected := `
# HELP respd_pool_queue_depth Tasks waiting in the queue.
# TYPE respd_pool_queue_depth gauge
respd_pool_queue_depth 7
`
	if err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "respd_pool_queue_depth"); err != nil {
		t.Error(err)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ObserveCommand("ping", dispatch.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`respd_commands_total{command="ping",status="ok"} 1`,
		"respd_command_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
