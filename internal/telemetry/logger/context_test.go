package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Error("FromContext() did not return the stored logger")
	}
}

func TestFromContext_Default(t *testing.T) {
	if got := FromContext(context.Background()); got != slog.Default() {
		t.Error("FromContext() without logger should return slog.Default()")
	}
}

func TestConnID(t *testing.T) {
	ctx := WithConnID(context.Background(), "01HZX")
	if got := ConnIDFromContext(ctx); got != "01HZX" {
		t.Errorf("ConnIDFromContext() = %q", got)
	}
	if got := ConnIDFromContext(context.Background()); got != "" {
		t.Errorf("ConnIDFromContext(empty) = %q", got)
	}
}

func TestL_WithConnID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithConnID(WithLogger(context.Background(), l), "conn-7")
	L(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if entry["conn_id"] != "conn-7" {
		t.Errorf("conn_id = %v, want conn-7", entry["conn_id"])
	}
}

func TestL_NoConnID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	L(WithLogger(context.Background(), l)).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if _, ok := entry["conn_id"]; ok {
		t.Error("conn_id should be absent")
	}
}
