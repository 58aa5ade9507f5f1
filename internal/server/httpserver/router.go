package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yndnr/respd-go/internal/infra/buildinfo"
	"github.com/yndnr/respd-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Logger for request logging.
	Logger *slog.Logger

	// Metrics serves /metrics. Nil answers 404.
	Metrics http.Handler

	// Ready reports readiness; nil means always ready.
	Ready func(context.Context) error

	// Build is reported by /version.
	Build buildinfo.Info
}

// NewRouter creates the admin router with its middleware chain.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := handler.New(handler.Options{
		Logger:  logger,
		Ready:   cfg.Ready,
		Build:   cfg.Build,
		Metrics: cfg.Metrics,
	})

	// Order: Recover -> RequestID -> AccessLog -> Handler
	return Chain(h, Recover(logger), RequestID(), AccessLog(logger))
}
