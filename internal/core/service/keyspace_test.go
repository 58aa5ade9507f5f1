package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/yndnr/respd-go/internal/core/domain"
	"github.com/yndnr/respd-go/internal/storage"
	"github.com/yndnr/respd-go/internal/storage/memory"
)

func newTestKeyspace(t *testing.T) *Keyspace {
	t.Helper()
	store := memory.New(memory.WithExpireInterval(0))
	t.Cleanup(func() { store.Close() })
	return NewKeyspace(store)
}

// ============================================================================
// SET option parsing
// ============================================================================

func TestParseSetArgs(t *testing.T) {
	tests := []struct {
		name    string
		options []string
		want    SetArgs
		wantErr error
	}{
		{name: "empty", options: nil, want: SetArgs{}},
		{name: "EX", options: []string{"ex", "10"}, want: SetArgs{TTL: 10 * time.Second}},
		{name: "PX", options: []string{"PX", "1500"}, want: SetArgs{TTL: 1500 * time.Millisecond}},
		{name: "NX", options: []string{"NX"}, want: SetArgs{Mode: storage.SetIfAbsent}},
		{name: "XX GET", options: []string{"XX", "GET"}, want: SetArgs{Mode: storage.SetIfPresent, Get: true}},
		{name: "KEEPTTL", options: []string{"KEEPTTL"}, want: SetArgs{KeepTTL: true}},
		{name: "NX and XX", options: []string{"NX", "XX"}, wantErr: domain.ErrSyntax},
		{name: "EX and PX", options: []string{"EX", "1", "PX", "1"}, wantErr: domain.ErrSyntax},
		{name: "EX and KEEPTTL", options: []string{"EX", "1", "KEEPTTL"}, wantErr: domain.ErrSyntax},
		{name: "EX missing value", options: []string{"EX"}, wantErr: domain.ErrSyntax},
		{name: "EX not integer", options: []string{"EX", "abc"}, wantErr: domain.ErrNotInteger},
		{name: "EX zero", options: []string{"EX", "0"}, wantErr: domain.ErrInvalidExpireFor("set")},
		{name: "EX overflow", options: []string{"EX", "9223372036854775807"}, wantErr: domain.ErrInvalidExpireFor("set")},
		{name: "unknown", options: []string{"FOO"}, wantErr: domain.ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSetArgs(tt.options)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseSetArgs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSetArgs() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSetArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// ============================================================================
// String commands
// ============================================================================

func TestKeyspace_SetGet(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	out, err := ks.Set(ctx, []byte("k"), []byte("v"), SetArgs{})
	if err != nil || !out.Applied {
		t.Fatalf("Set() = %+v, %v", out, err)
	}

	ok, _ := ks.SetNX(ctx, []byte("k"), []byte("other"))
	if ok {
		t.Error("SetNX() on existing key applied")
	}

	old, had, _ := ks.GetSet(ctx, []byte("k"), []byte("v2"))
	if !had || string(old) != "v" {
		t.Errorf("GetSet() = %q, %v; want v, true", old, had)
	}

	vals, _ := ks.MGet(ctx, [][]byte{[]byte("k"), []byte("missing")})
	if string(vals[0]) != "v2" || vals[1] != nil {
		t.Errorf("MGet() = %q", vals)
	}
}

func TestKeyspace_SetEX(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	if err := ks.SetEX(ctx, []byte("k"), 0, []byte("v")); !errors.Is(err, domain.ErrInvalidExpireFor("setex")) {
		t.Errorf("SetEX(0) error = %v", err)
	}
	if err := ks.SetEX(ctx, []byte("k"), 100, []byte("v")); err != nil {
		t.Fatalf("SetEX() error = %v", err)
	}
	if ttl, _ := ks.TTL(ctx, []byte("k"), time.Second); ttl != 100 {
		t.Errorf("TTL() = %d, want 100", ttl)
	}
}

func TestKeyspace_MSet(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	if err := ks.MSet(ctx, [][]byte{[]byte("a")}); !errors.Is(err, domain.ErrWrongArgs("mset")) {
		t.Errorf("MSet(odd) error = %v", err)
	}
	if err := ks.MSet(ctx, [][]byte{[]byte("a"), []byte("1"), []byte("b"), []byte("2")}); err != nil {
		t.Fatalf("MSet() error = %v", err)
	}
	if n, _ := ks.DBSize(ctx); n != 2 {
		t.Errorf("DBSize() = %d, want 2", n)
	}
}

func TestKeyspace_IncrBy(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	if n, err := ks.IncrBy(ctx, []byte("n"), 5); err != nil || n != 5 {
		t.Fatalf("IncrBy() = %d, %v", n, err)
	}
	if n, _ := ks.DecrBy(ctx, []byte("n"), 7); n != -2 {
		t.Errorf("DecrBy() = %d, want -2", n)
	}
	if _, err := ks.DecrBy(ctx, []byte("n"), math.MinInt64); err == nil {
		t.Error("DecrBy(MinInt64) succeeded")
	}

	ks.Set(ctx, []byte("max"), []byte("9223372036854775807"), SetArgs{})
	if _, err := ks.IncrBy(ctx, []byte("max"), 1); !errors.Is(err, domain.ErrOverflow) {
		t.Errorf("IncrBy() overflow error = %v", err)
	}

	for _, bad := range []string{"abc", "+1", "1.5", ""} {
		ks.Set(ctx, []byte("bad"), []byte(bad), SetArgs{})
		if _, err := ks.IncrBy(ctx, []byte("bad"), 1); !errors.Is(err, domain.ErrNotInteger) {
			t.Errorf("IncrBy(%q) error = %v, want ErrNotInteger", bad, err)
		}
	}
	if v, _, _ := ks.Get(ctx, []byte("bad")); string(v) != "" {
		t.Errorf("failed increment changed value to %q", v)
	}
}

func TestKeyspace_IncrByKeepsTTL(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	ks.SetEX(ctx, []byte("n"), 50, []byte("1"))
	ks.IncrBy(ctx, []byte("n"), 1)
	if ttl, _ := ks.TTL(ctx, []byte("n"), time.Second); ttl != 50 {
		t.Errorf("TTL() after INCR = %d, want 50", ttl)
	}
}

func TestKeyspace_IncrByFloat(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	ks.Set(ctx, []byte("f"), []byte("10.5"), SetArgs{})
	v, err := ks.IncrByFloat(ctx, []byte("f"), 0.1)
	if err != nil || string(v) != "10.6" {
		t.Errorf("IncrByFloat() = %q, %v; want 10.6", v, err)
	}

	v, _ = ks.IncrByFloat(ctx, []byte("g"), 3)
	if string(v) != "3" {
		t.Errorf("IncrByFloat() on missing key = %q, want 3", v)
	}

	ks.Set(ctx, []byte("s"), []byte("abc"), SetArgs{})
	if _, err := ks.IncrByFloat(ctx, []byte("s"), 1); !errors.Is(err, domain.ErrNotFloat) {
		t.Errorf("IncrByFloat() error = %v, want ErrNotFloat", err)
	}
	if _, err := ks.IncrByFloat(ctx, []byte("f"), math.Inf(1)); !errors.Is(err, domain.ErrNaN) {
		t.Errorf("IncrByFloat(+Inf) error = %v, want ErrNaN", err)
	}
}

func TestKeyspace_AppendStrLen(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	if n, _ := ks.Append(ctx, []byte("k"), []byte("Hello")); n != 5 {
		t.Errorf("Append() = %d, want 5", n)
	}
	if n, _ := ks.Append(ctx, []byte("k"), []byte(" World")); n != 11 {
		t.Errorf("Append() = %d, want 11", n)
	}
	if n, _ := ks.StrLen(ctx, []byte("k")); n != 11 {
		t.Errorf("StrLen() = %d, want 11", n)
	}
	if n, _ := ks.StrLen(ctx, []byte("missing")); n != 0 {
		t.Errorf("StrLen(missing) = %d, want 0", n)
	}
}

// ============================================================================
// Generic key commands
// ============================================================================

func TestKeyspace_ExpireTTL(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	if ttl, _ := ks.TTL(ctx, []byte("k"), time.Second); ttl != -2 {
		t.Errorf("TTL(missing) = %d, want -2", ttl)
	}

	ks.Set(ctx, []byte("k"), []byte("v"), SetArgs{})
	if ttl, _ := ks.TTL(ctx, []byte("k"), time.Second); ttl != -1 {
		t.Errorf("TTL(persistent) = %d, want -1", ttl)
	}

	ok, err := ks.Expire(ctx, "pexpire", []byte("k"), 20000, time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("Expire() = %v, %v", ok, err)
	}
	if ms, _ := ks.TTL(ctx, []byte("k"), time.Millisecond); ms <= 19000 || ms > 20000 {
		t.Errorf("PTTL = %d", ms)
	}

	if ok, _ := ks.Persist(ctx, []byte("k")); !ok {
		t.Error("Persist() = false")
	}

	if _, err := ks.Expire(ctx, "expire", []byte("k"), math.MaxInt64, time.Second); !errors.Is(err, domain.ErrInvalidExpireFor("expire")) {
		t.Errorf("Expire(overflow) error = %v", err)
	}

	ok, _ = ks.Expire(ctx, "expire", []byte("k"), -1, time.Second)
	if !ok {
		t.Error("Expire(-1) = false")
	}
	if typ, _ := ks.Type(ctx, []byte("k")); typ != "none" {
		t.Errorf("Type() after negative expire = %q, want none", typ)
	}
}

func TestKeyspace_DelExistsKeys(t *testing.T) {
	ks := newTestKeyspace(t)
	ctx := context.Background()

	ks.MSet(ctx, [][]byte{[]byte("a"), []byte("1"), []byte("b"), []byte("2"), []byte("c"), []byte("3")})

	if typ, _ := ks.Type(ctx, []byte("a")); typ != "string" {
		t.Errorf("Type() = %q, want string", typ)
	}
	if n, _ := ks.Exists(ctx, [][]byte{[]byte("a"), []byte("a"), []byte("x")}); n != 2 {
		t.Errorf("Exists() = %d, want 2", n)
	}
	keys, _ := ks.Keys(ctx, []byte("[ab]"))
	if len(keys) != 2 {
		t.Errorf("Keys() = %q", keys)
	}
	if n, _ := ks.Del(ctx, [][]byte{[]byte("a"), []byte("x")}); n != 1 {
		t.Errorf("Del() = %d, want 1", n)
	}
	if err := ks.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n, _ := ks.DBSize(ctx); n != 0 {
		t.Errorf("DBSize() after Flush = %d", n)
	}
}

func TestKeyspace_StorageErrors(t *testing.T) {
	store := memory.New(memory.WithExpireInterval(0))
	ks := NewKeyspace(store)
	store.Close()

	_, _, err := ks.Get(context.Background(), []byte("k"))
	if !errors.Is(err, domain.ErrStorage) {
		t.Errorf("Get() error = %v, want ErrStorage", err)
	}
	if !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Get() error does not wrap ErrClosed: %v", err)
	}
	if _, err := ks.IncrBy(context.Background(), []byte("k"), 1); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("IncrBy() error = %v, want ErrStorage", err)
	}
}
