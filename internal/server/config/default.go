package config

import "time"

// Default configuration values.
const (
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultHTTPAddr     = "127.0.0.1:6380"
	DefaultReadTimeout  = 0
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 0
	DefaultWorkers      = 10
	DefaultQueueSize    = 1024
	DefaultMaxPending   = 1024
	DefaultCommandDelay = 0

	DefaultMaxArgs      = 1024 * 1024
	DefaultMaxBulkLen   = 512 << 20
	DefaultMaxInlineLen = 64 << 10

	EngineMemory = "memory"
	EngineBadger = "badger"

	DefaultEngine         = EngineMemory
	DefaultDataDir        = "/var/lib/respd/data"
	DefaultExpireInterval = 100 * time.Millisecond
	DefaultGCInterval     = 10 * time.Minute

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 30
)

// DefaultDelayExempt are the commands never slowed by the command delay.
var DefaultDelayExempt = []string{"ping", "command"}

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Address:      DefaultRedisAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				Workers:      DefaultWorkers,
				QueueSize:    DefaultQueueSize,
				MaxPending:   DefaultMaxPending,
				CommandDelay: DefaultCommandDelay,
				DelayExempt:  append([]string(nil), DefaultDelayExempt...),
				MaxArgs:      DefaultMaxArgs,
				MaxBulkLen:   DefaultMaxBulkLen,
				MaxInlineLen: DefaultMaxInlineLen,
			},
			HTTP: HTTPConfig{
				Address: DefaultHTTPAddr,
			},
		},
		Storage: StorageSection{
			Engine:         DefaultEngine,
			DataDir:        DefaultDataDir,
			ExpireInterval: DefaultExpireInterval,
			GCInterval:     DefaultGCInterval,
		},
		Log: LogSection{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}
}
