package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respd-go/internal/command"
	"github.com/yndnr/respd-go/internal/core/service"
	"github.com/yndnr/respd-go/internal/dispatch"
	"github.com/yndnr/respd-go/internal/infra/buildinfo"
	"github.com/yndnr/respd-go/internal/infra/confloader"
	"github.com/yndnr/respd-go/internal/infra/shutdown"
	"github.com/yndnr/respd-go/internal/infra/tlsroots"
	"github.com/yndnr/respd-go/internal/infra/workerpool"
	"github.com/yndnr/respd-go/internal/protocol/resp"
	"github.com/yndnr/respd-go/internal/server/config"
	"github.com/yndnr/respd-go/internal/server/httpserver"
	"github.com/yndnr/respd-go/internal/server/redisserver"
	"github.com/yndnr/respd-go/internal/storage"
	"github.com/yndnr/respd-go/internal/storage/memory"
	"github.com/yndnr/respd-go/internal/telemetry/logger"
	"github.com/yndnr/respd-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "respd-server",
		Usage:           "Redis protocol compatible key/value server",
		Version:         buildinfo.Get().Version,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to configuration file",
				EnvVars: []string{"RESPD_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "RESP listen port (overrides server.redis.address)",
				Value:   6379,
			},
			&cli.Float64Flag{
				Name:    "block",
				Aliases: []string{"b"},
				Usage:   "seconds to delay each non-exempt command",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "size of the shared worker pool",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	configFile := c.String("config")

	port := 0
	if c.IsSet("port") {
		port = c.Int("port")
	}
	cfg, loader, err := loadConfig(configFile, flagOverrides(c), port)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	build := buildinfo.Get()
	log.Info("starting respd-server",
		"version", build.Version,
		"commit", build.Commit,
		"config", configFile)

	metrics := metric.NewRegistry()

	store, err := initStorage(cfg, log.Logger, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	pool := workerpool.New(cfg.Server.Redis.Workers, cfg.Server.Redis.QueueSize,
		workerpool.WithLogger(log.Logger))
	pool.Start()
	if err := metrics.RegisterPool(pool); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}

	reg, err := command.NewRegistry(service.NewKeyspace(store), command.Options{
		Version: build.Version,
		Stats:   metrics,
	})
	if err != nil {
		return fmt.Errorf("build command registry: %w", err)
	}
	dispatcher := dispatch.New(reg,
		dispatch.WithLogger(log.Logger),
		dispatch.WithRecorder(metrics))

	redisCfg, certs, err := redisConfig(&cfg.Server.Redis, log.Logger)
	if err != nil {
		return fmt.Errorf("redis listener: %w", err)
	}
	redisServer := redisserver.New(redisCfg, dispatcher, pool,
		redisserver.WithLogger(log.Logger),
		redisserver.WithObserver(metrics))

	var httpServer *httpserver.Server
	if cfg.Server.HTTP.Address != "" {
		httpServer = httpserver.New(cfg.Server.HTTP.Address, httpserver.NewRouter(&httpserver.RouterConfig{
			Logger:  log.Logger,
			Metrics: metrics.Handler(),
			Build:   build,
			Ready: func(context.Context) error {
				if redisServer.Addr() == nil && redisServer.TLSAddr() == nil && cfg.Server.Redis.UnixSocket == "" {
					return errors.New("redis listener not bound")
				}
				return nil
			},
		}), log.Logger)
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(log.Logger))

	// Hooks run in reverse: listeners stop first, the store closes last.
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return store.Close()
	})
	shutdownHandler.OnShutdown("worker pool", pool.Stop)
	shutdownHandler.OnShutdown("redis server", redisServer.Shutdown)
	if httpServer != nil {
		shutdownHandler.OnShutdown("http server", httpServer.Shutdown)
	}
	if certs != nil {
		certs.StartAsync()
		shutdownHandler.OnShutdown("certificate watcher", func(context.Context) error {
			return certs.Stop()
		})
	}

	ctx := context.Background()
	if err := redisServer.Start(ctx); err != nil {
		shutdownHandler.Trigger("startup failure")
		_ = shutdownHandler.Wait()
		return fmt.Errorf("start redis server: %w", err)
	}
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			shutdownHandler.Trigger("startup failure")
			_ = shutdownHandler.Wait()
			return fmt.Errorf("start http server: %w", err)
		}
	}

	if loader.FilePath() != "" {
		watcher, err := watchConfig(loader, log.Logger)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop",
		"redis", addrString(redisServer.Addr()),
		"redis_tls", addrString(redisServer.TLSAddr()),
		"unix_socket", cfg.Server.Redis.UnixSocket,
		"workers", pool.Size())

	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// flagOverrides maps explicitly set flags onto configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	if c.IsSet("block") {
		overrides["server.redis.command_delay"] = secondsToDuration(c.Float64("block")).String()
	}
	if c.IsSet("workers") {
		overrides["server.redis.workers"] = c.Int("workers")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	return overrides
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// loadConfig loads configuration from defaults, file, environment and
// flag overrides, in increasing priority. A non-zero port replaces the port
// of server.redis.address and keeps its host.
func loadConfig(configFile string, overrides map[string]any, port int) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if port > 0 {
		host, _, err := net.SplitHostPort(cfg.Server.Redis.Address)
		if err != nil {
			host = ""
		}
		cfg.Server.Redis.Address = net.JoinHostPort(host, strconv.Itoa(port))
	}

	cfg = config.Sanitize(cfg)
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// initLogger builds the process logger and installs it as the slog default.
func initLogger(cfg *config.ServerConfig) (*logger.Logger, error) {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = cfg.Log.Format
	lc.Output = os.Stdout
	lc.File = cfg.Log.File
	if cfg.Log.MaxSizeMB > 0 {
		lc.MaxSizeMB = cfg.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups > 0 {
		lc.MaxBackups = cfg.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays > 0 {
		lc.MaxAgeDays = cfg.Log.MaxAgeDays
	}

	log, err := logger.New(lc)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log.Logger)
	return log, nil
}

// initStorage opens the configured keyspace backend.
func initStorage(cfg *config.ServerConfig, log *slog.Logger, metrics *metric.Registry) (storage.Store, error) {
	switch cfg.Storage.Engine {
	case config.EngineBadger:
		bc := storage.DefaultBadgerConfig(cfg.Storage.DataDir)
		if cfg.Storage.GCInterval > 0 {
			bc.GCInterval = cfg.Storage.GCInterval
		}
		bc.SyncWrites = cfg.Storage.SyncWrites

		store, err := storage.NewBadgerStore(bc, log)
		if err != nil {
			return nil, err
		}
		if err := store.RegisterMetrics(metrics.Registerer()); err != nil {
			store.Close()
			return nil, err
		}
		log.Info("storage opened", "engine", config.EngineBadger, "dir", bc.Dir)
		return store, nil
	default:
		log.Info("storage opened", "engine", config.EngineMemory)
		return memory.New(
			memory.WithExpireInterval(cfg.Storage.ExpireInterval),
			memory.WithLogger(log),
		), nil
	}
}

// redisConfig maps the configuration section onto the listener config.
// The returned watcher, if any, reloads the TLS certificate and must be
// stopped on shutdown.
func redisConfig(rc *config.RedisConfig, log *slog.Logger) (*redisserver.Config, *tlsroots.Watcher, error) {
	cfg := redisserver.DefaultConfig()
	cfg.Address = rc.Address
	cfg.TLSAddress = rc.TLSAddress
	cfg.UnixSocket = rc.UnixSocket
	perm, err := rc.SocketPerm()
	if err != nil {
		return nil, nil, err
	}
	cfg.UnixSocketPerm = perm
	cfg.ReadTimeout = rc.ReadTimeout
	cfg.WriteTimeout = rc.WriteTimeout
	cfg.IdleTimeout = rc.IdleTimeout
	cfg.MaxPending = rc.MaxPending
	cfg.CommandDelay = rc.CommandDelay
	cfg.DelayExempt = rc.DelayExempt
	cfg.RateLimit = rc.RateLimit
	cfg.RateBurst = rc.RateBurst
	cfg.ReusePort = rc.ReusePort
	cfg.Limits = resp.Limits{
		MaxArgs:      rc.MaxArgs,
		MaxBulkLen:   rc.MaxBulkLen,
		MaxInlineLen: rc.MaxInlineLen,
	}

	if !rc.TLSEnabled() {
		return cfg, nil, nil
	}

	var clientCAs *tlsroots.Pool
	if rc.TLSAuthClients {
		pool, err := tlsroots.LoadPool(rc.TLSCAFile)
		if err != nil {
			return nil, nil, err
		}
		clientCAs = pool
	}
	certs, err := tlsroots.NewWatcher(rc.TLSCertFile, rc.TLSKeyFile, tlsroots.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	cfg.TLSConfig = tlsroots.ServerConfig(certs.GetCertificate, clientCAs)
	return cfg, certs, nil
}

// watchConfig reloads the log level when the configuration file changes.
func watchConfig(loader *confloader.Loader, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(loader.FilePath()); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(path string) {
		cfg := config.Default()
		if err := loader.Reload(cfg); err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		level := config.Sanitize(cfg).Log.Level
		if !logger.SetLevel(level) {
			log.Warn("config reload: unknown log level", "level", level)
			return
		}
		log.Info("log level reloaded", "level", level)
	})
	watcher.StartAsync()
	return watcher, nil
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
