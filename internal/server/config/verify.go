package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/yndnr/respd-go/internal/telemetry/logger"
)

// Verify validates the configuration. All problems are reported together.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyRedis(&cfg.Server.Redis),
		verifyHTTP(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifyLog(&cfg.Log),
	)
}

func verifyRedis(cfg *RedisConfig) error {
	var errs []error
	if cfg.Address == "" && cfg.TLSAddress == "" && cfg.UnixSocket == "" {
		errs = append(errs, errors.New("server.redis: address, tls_address or unix_socket is required"))
	}
	if _, err := cfg.SocketPerm(); err != nil {
		errs = append(errs, fmt.Errorf("server.redis.unix_socket_perm: %w", err))
	}
	if cfg.Address != "" {
		errs = append(errs, verifyAddr("server.redis.address", cfg.Address))
	}
	if cfg.TLSEnabled() {
		errs = append(errs, verifyAddr("server.redis.tls_address", cfg.TLSAddress))
		errs = append(errs, verifyFile("server.redis.tls_cert_file", cfg.TLSCertFile))
		errs = append(errs, verifyFile("server.redis.tls_key_file", cfg.TLSKeyFile))
		if cfg.TLSAuthClients {
			errs = append(errs, verifyFile("server.redis.tls_ca_file", cfg.TLSCAFile))
		}
		if cfg.TLSAddress == cfg.Address {
			errs = append(errs, errors.New("server.redis: address and tls_address must differ"))
		}
	}
	if cfg.Workers < 1 {
		errs = append(errs, errors.New("server.redis.workers must be at least 1"))
	}
	if cfg.QueueSize < 0 {
		errs = append(errs, errors.New("server.redis.queue_size must not be negative"))
	}
	if cfg.MaxPending < 1 {
		errs = append(errs, errors.New("server.redis.max_pending must be at least 1"))
	}
	if cfg.CommandDelay < 0 {
		errs = append(errs, errors.New("server.redis.command_delay must not be negative"))
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("server.redis.rate_limit must not be negative"))
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 {
		errs = append(errs, errors.New("server.redis: timeouts must not be negative"))
	}
	if cfg.MaxArgs < 1 || cfg.MaxBulkLen < 1 || cfg.MaxInlineLen < 1 {
		errs = append(errs, errors.New("server.redis: decoder limits must be positive"))
	}
	return errors.Join(errs...)
}

func verifyHTTP(cfg *ServerSection) error {
	if cfg.HTTP.Address == "" {
		return nil
	}
	if err := verifyAddr("server.http.address", cfg.HTTP.Address); err != nil {
		return err
	}
	if cfg.HTTP.Address == cfg.Redis.Address || cfg.HTTP.Address == cfg.Redis.TLSAddress {
		return errors.New("server.http.address conflicts with a redis listener")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case EngineMemory:
		if cfg.ExpireInterval < 0 {
			return errors.New("storage.expire_interval must not be negative")
		}
		return nil
	case EngineBadger:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger engine")
		}
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return fmt.Errorf("cannot create data directory: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("storage.engine %q is not one of memory, badger", cfg.Engine)
	}
}

func verifyLog(cfg *LogSection) error {
	if _, ok := logger.ParseLevel(cfg.Level); !ok {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

func verifyAddr(field, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func verifyFile(field, path string) error {
	if path == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}
