package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/respd-go/internal/infra/buildinfo"
	"github.com/yndnr/respd-go/internal/telemetry/logger"
	"github.com/yndnr/respd-go/internal/telemetry/metric"
)

func TestNew(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s := New(":8080", handler, nil)
	if s == nil {
		t.Fatal("New returned nil")
	}
	if s.httpServer == nil {
		t.Error("httpServer is nil")
	}
	if s.httpServer.ReadHeaderTimeout == 0 {
		t.Error("ReadHeaderTimeout should be set")
	}
	if s.Addr() != nil {
		t.Error("Addr() should be nil before Start")
	}
}

func TestServer_StartShutdown(t *testing.T) {
	ready := errors.New("redis listener not started")
	reg := metric.NewRegistry()
	reg.ConnOpened()

	router := NewRouter(&RouterConfig{
		Logger:  logger.Discard(),
		Metrics: reg.Handler(),
		Ready: func(context.Context) error {
			return ready
		},
		Build: buildinfo.Info{Version: "v1.0.0", Commit: "abc", BuildTime: "now", GoVersion: "go1.24"},
	})
	s := New("127.0.0.1:0", router, logger.Discard())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	base := "http://" + s.Addr().String()

	get := func(path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp, string(body)
	}

	if resp, _ := get("/health"); resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	resp, body := get("/ready")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/ready status = %d, want 503", resp.StatusCode)
	}
	if !strings.Contains(body, "redis listener not started") {
		t.Errorf("/ready body = %s", body)
	}
	ready = nil
	if resp, _ := get("/ready"); resp.StatusCode != http.StatusOK {
		t.Errorf("/ready status = %d after ready", resp.StatusCode)
	}

	resp, body = get("/version")
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	var envelope struct {
		Data buildinfo.Info `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		t.Fatalf("decode /version: %v", err)
	}
	if envelope.Data.Version != "v1.0.0" {
		t.Errorf("version = %q", envelope.Data.Version)
	}

	resp, body = get("/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "respd_connections_active 1") {
		t.Errorf("/metrics status = %d, body missing gauge", resp.StatusCode)
	}

	if resp, _ := get("/sessions"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}
	if _, err := http.Get(base + "/health"); err == nil {
		t.Error("server still answering after Shutdown")
	}
}

func TestServer_StartAddressInUse(t *testing.T) {
	first := New("127.0.0.1:0", http.NotFoundHandler(), logger.Discard())
	if err := first.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Shutdown(context.Background())

	second := New(first.Addr().String(), http.NotFoundHandler(), logger.Discard())
	if err := second.Start(); err == nil {
		second.Shutdown(context.Background())
		t.Error("Start() on a bound address should fail")
	}
}
