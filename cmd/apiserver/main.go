// Command apiserver serves the DockFlow job API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/DockFlow/internal/bootstrap"
	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/DockFlow/internal/interfaces/http"
	"github.com/turtacn/DockFlow/internal/interfaces/http/handlers"
	"github.com/turtacn/DockFlow/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	corsOrigins := flag.String("cors-origins", "", "comma-separated allowed CORS origins")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	if err := run(cfg, logger, splitOrigins(*corsOrigins)); err != nil {
		logger.Error("api server exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger, origins []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc, err := infra.NewService()
	if err != nil {
		return err
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	limiterCfg := middleware.DefaultRateLimitConfig()
	limiter := middleware.NewTokenBucketLimiter(limiterCfg.RequestsPerSecond, limiterCfg.BurstSize, limiterCfg.CleanupInterval)
	defer limiter.Stop()

	routerCfg := httpserver.RouterConfig{
		JobHandler:    handlers.NewJobHandler(svc, logger),
		HealthHandler: handlers.NewHealthHandler(version, healthCheckers(infra)...),
		Logger:        logger,
		RateLimiter:   limiter,
		RateLimit:     limiterCfg,
		Logging:       middleware.DefaultLoggingConfig(),
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = infra.MetricsHandler()
	}
	if len(origins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = origins
		cors.AllowWildcard = true
		routerCfg.CORS = &cors
	}

	server := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	logger.Info("starting DockFlow API server",
		logging.String("version", version),
		logging.String("addr", server.Addr()))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}
	return server.Stop(context.Background())
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

//Personal.AI order the ending
