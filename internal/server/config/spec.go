package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServerConfig is the root configuration for respd-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	HTTP  HTTPConfig  `koanf:"http"`
}

// RedisConfig configures the RESP listener and its connection pipeline.
type RedisConfig struct {
	// Address is the plain TCP listen address.
	Address string `koanf:"address"`

	// TLSAddress enables a TLS listener when set. Requires the cert and
	// key files.
	TLSAddress  string `koanf:"tls_address"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
	// TLSCAFile holds the CA certificates used to verify clients.
	TLSCAFile string `koanf:"tls_ca_file"`
	// TLSAuthClients requires clients to present a certificate signed by
	// TLSCAFile.
	TLSAuthClients bool `koanf:"tls_auth_clients"`

	// UnixSocket is a Unix domain socket path; empty disables it.
	UnixSocket string `koanf:"unix_socket"`
	// UnixSocketPerm is the octal permission of the socket file, e.g. "700".
	UnixSocketPerm string `koanf:"unix_socket_perm"`

	// ReadTimeout bounds a single read; zero disables it.
	ReadTimeout time.Duration `koanf:"read_timeout"`
	// WriteTimeout bounds a flush of pending replies.
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// IdleTimeout closes connections with no traffic; zero disables it.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// Workers is the size of the shared worker pool.
	Workers int `koanf:"workers"`
	// QueueSize is the capacity of the pool's task queue.
	QueueSize int `koanf:"queue_size"`
	// MaxPending caps decoded but unanswered commands per connection;
	// reading pauses while the cap is reached.
	MaxPending int `koanf:"max_pending"`

	// CommandDelay is slept before each non-exempt command.
	CommandDelay time.Duration `koanf:"command_delay"`
	// DelayExempt lists commands that skip CommandDelay.
	DelayExempt []string `koanf:"delay_exempt"`

	// RateLimit is the per client IP command rate (per second); zero
	// disables limiting.
	RateLimit int `koanf:"rate_limit"`
	// RateBurst is the limiter bucket size. Defaults to RateLimit.
	RateBurst int `koanf:"rate_burst"`

	// ReusePort sets SO_REUSEPORT on the listening sockets.
	ReusePort bool `koanf:"reuse_port"`

	// MaxArgs, MaxBulkLen and MaxInlineLen bound request decoding.
	MaxArgs      int `koanf:"max_args"`
	MaxBulkLen   int `koanf:"max_bulk_len"`
	MaxInlineLen int `koanf:"max_inline_len"`
}

// SocketPerm parses UnixSocketPerm. An empty value is zero.
func (c *RedisConfig) SocketPerm() (os.FileMode, error) {
	if c.UnixSocketPerm == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(c.UnixSocketPerm, 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("invalid permission %q", c.UnixSocketPerm)
	}
	return os.FileMode(v), nil
}

// TLSEnabled reports whether a TLS listener is configured.
func (c *RedisConfig) TLSEnabled() bool {
	return c.TLSAddress != ""
}

// HTTPConfig configures the admin HTTP server.
type HTTPConfig struct {
	// Address is the listen address; empty disables the server.
	Address string `koanf:"address"`
}

// StorageSection configures the keyspace backend.
type StorageSection struct {
	// Engine is "memory" or "badger".
	Engine string `koanf:"engine"`
	// DataDir is the badger data directory.
	DataDir string `koanf:"data_dir"`
	// ExpireInterval is the active expiry period of the memory engine.
	ExpireInterval time.Duration `koanf:"expire_interval"`
	// GCInterval is the badger value log GC period.
	GCInterval time.Duration `koanf:"gc_interval"`
	// SyncWrites enables fsync on every badger write.
	SyncWrites bool `koanf:"sync_writes"`
}

// LogSection configures logging.
type LogSection struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}
