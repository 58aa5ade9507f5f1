package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Redis struct {
			Address     string        `koanf:"address"`
			TLSAddress  string        `koanf:"tls_address"`
			Workers     int           `koanf:"workers"`
			IdleTimeout time.Duration `koanf:"idle_timeout"`
			DelayExempt []string      `koanf:"delay_exempt"`
		} `koanf:"redis"`
	} `koanf:"server"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "respd.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("TEST_"),
		WithConfigFile("/path/to/config.yaml"),
	)

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("FilePath() = %q, want %q", l.FilePath(), "/path/to/config.yaml")
	}
}

// ============================================================
// Sources
// ============================================================

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  redis:
    address: "0.0.0.0:6379"
    workers: 16
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if addr := l.GetString("server.redis.address"); addr != "0.0.0.0:6379" {
		t.Errorf("server.redis.address = %q, want %q", addr, "0.0.0.0:6379")
	}
	if n := l.GetInt("server.redis.workers"); n != 16 {
		t.Errorf("server.redis.workers = %d, want 16", n)
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should return error for nonexistent file")
	}
}

func TestLoader_LoadFile_Empty(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
}

func TestLoader_LoadEnv(t *testing.T) {
	t.Setenv("RESPD_SERVER__REDIS__TLS_ADDRESS", "127.0.0.1:6390")
	t.Setenv("RESPD_LOG__LEVEL", "debug")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if addr := l.GetString("server.redis.tls_address"); addr != "127.0.0.1:6390" {
		t.Errorf("server.redis.tls_address = %q, want %q", addr, "127.0.0.1:6390")
	}
	if lvl := l.GetString("log.level"); lvl != "debug" {
		t.Errorf("log.level = %q, want %q", lvl, "debug")
	}
}

func TestLoader_LoadEnv_List(t *testing.T) {
	t.Setenv("RESPD_SERVER__REDIS__DELAY_EXEMPT", "ping, info,command")

	l := NewLoader()
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"ping", "info", "command"}
	if len(cfg.Server.Redis.DelayExempt) != len(want) {
		t.Fatalf("DelayExempt = %v, want %v", cfg.Server.Redis.DelayExempt, want)
	}
	for i := range want {
		if cfg.Server.Redis.DelayExempt[i] != want[i] {
			t.Errorf("DelayExempt[%d] = %q, want %q", i, cfg.Server.Redis.DelayExempt[i], want[i])
		}
	}
}

func TestLoader_LoadEnv_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER__PORT", "9090")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if port := l.GetString("server.port"); port != "9090" {
		t.Errorf("server.port = %q, want %q", port, "9090")
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{
		"server.redis.address": "localhost:7000",
		"log.level":            "warn",
	}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	if addr := l.GetString("server.redis.address"); addr != "localhost:7000" {
		t.Errorf("server.redis.address = %q, want %q", addr, "localhost:7000")
	}
	if lvl := l.GetString("log.level"); lvl != "warn" {
		t.Errorf("log.level = %q, want %q", lvl, "warn")
	}
}

// ============================================================
// Load
// ============================================================

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  redis:
    address: "from-file:6379"
    tls_address: "from-file:6390"
log:
  level: info
`)
	t.Setenv("RESPD_SERVER__REDIS__ADDRESS", "from-env:6379")
	t.Setenv("RESPD_LOG__LEVEL", "warn")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"log.level": "debug"}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.Address != "from-env:6379" {
		t.Errorf("Address = %q, want env value", cfg.Server.Redis.Address)
	}
	if cfg.Server.Redis.TLSAddress != "from-file:6390" {
		t.Errorf("TLSAddress = %q, want file value", cfg.Server.Redis.TLSAddress)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want override value", cfg.Log.Level)
	}
}

func TestLoader_Load_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  redis:
    idle_timeout: 90s
`)

	var cfg testConfig
	cfg.Server.Redis.Address = "127.0.0.1:6379"
	cfg.Server.Redis.Workers = 10

	l := NewLoader(WithConfigFile(path))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.Address != "127.0.0.1:6379" {
		t.Errorf("Address = %q, default should be kept", cfg.Server.Redis.Address)
	}
	if cfg.Server.Redis.Workers != 10 {
		t.Errorf("Workers = %d, default should be kept", cfg.Server.Redis.Workers)
	}
	if cfg.Server.Redis.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 90s", cfg.Server.Redis.IdleTimeout)
	}
}

func TestLoader_Load_BadFile(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")

	l := NewLoader(WithConfigFile(path))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("Level = %q, want info", cfg.Log.Level)
	}

	if err := os.WriteFile(path, []byte("log:\n  level: error\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var next testConfig
	if err := l.Reload(&next); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if next.Log.Level != "error" {
		t.Errorf("Level after Reload() = %q, want error", next.Log.Level)
	}
}

func TestLoader_IsLoaded(t *testing.T) {
	l := NewLoader()
	if l.IsLoaded() {
		t.Error("IsLoaded() should be false before Load()")
	}

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load()")
	}
}

func TestLoader_Keys(t *testing.T) {
	l := NewLoader()
	l.LoadMap(map[string]any{
		"key1": "value1",
		"key2": "value2",
	})

	if keys := l.Keys(); len(keys) < 2 {
		t.Errorf("Keys() returned %d keys, want at least 2", len(keys))
	}
	if l.Get("key1") != "value1" {
		t.Errorf("Get(key1) = %v", l.Get("key1"))
	}
}
