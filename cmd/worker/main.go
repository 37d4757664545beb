// Command worker consumes requested docking jobs from Kafka and runs them.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/DockFlow/internal/application/jobs"
	"github.com/turtacn/DockFlow/internal/bootstrap"
	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/pkg/errors"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	workerCount := flag.Int("workers", 0, "number of consumers in the group (overrides worker.concurrency)")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	if *workerCount > 0 {
		cfg.Worker.Concurrency = *workerCount
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

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	if !cfg.Kafka.Enabled {
		return errors.New(errors.ErrCodeConfigInvalid, "kafka must be enabled for the worker")
	}

	// Relative output directories in requests resolve under the work dir.
	if err := os.MkdirAll(cfg.Worker.WorkDir, 0o755); err != nil {
		return fmt.Errorf("work dir: %w", err)
	}
	if err := os.Chdir(cfg.Worker.WorkDir); err != nil {
		return fmt.Errorf("work dir: %w", err)
	}

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

	if configPath != "" {
		watchConfig(configPath, logger)
	}

	consumers, err := startConsumers(ctx, cfg, infra, svc, logger)
	if err != nil {
		return err
	}

	healthSrv := startHealthServer(cfg, infra, logger)

	logger.Info("worker started",
		logging.Int("consumers", len(consumers)),
		logging.String("topic", infra.Topics().Requested),
		logging.String("work_dir", cfg.Worker.WorkDir))

	<-ctx.Done()
	logger.Info("received shutdown signal, draining in-flight jobs")

	for _, c := range consumers {
		c.Wait()
		if err := c.Close(); err != nil {
			logger.Warn("consumer close failed", logging.Err(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}

	logger.Info("worker stopped")
	return nil
}

// startConsumers joins cfg.Worker.Concurrency readers to the consumer group.
// Kafka spreads the request partitions across them.
func startConsumers(ctx context.Context, cfg *config.Config, infra *bootstrap.Infrastructure, svc jobs.Service, logger logging.Logger) ([]*kafka.Consumer, error) {
	consumerCfg := kafka.ConsumerConfigFrom(cfg.Kafka)

	var consumers []*kafka.Consumer
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := kafka.NewConsumer(consumerCfg, infra.Publisher(), logger.With(logging.Int("consumer", i)))
		if err != nil {
			closeAll(consumers)
			return nil, err
		}
		for _, topic := range consumerCfg.Topics {
			if err := c.Subscribe(topic, svc.HandleMessage); err != nil {
				_ = c.Close()
				closeAll(consumers)
				return nil, err
			}
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			closeAll(consumers)
			return nil, err
		}
		consumers = append(consumers, c)
	}
	return consumers, nil
}

func closeAll(consumers []*kafka.Consumer) {
	for _, c := range consumers {
		_ = c.Close()
	}
}

// watchConfig reports edits to the config file. Tool settings are read at
// startup, so a change only takes effect after a restart.
func watchConfig(path string, logger logging.Logger) {
	err := config.Watch(path,
		func(next *config.Config) {
			logger.Warn("configuration file changed, restart the worker to apply it",
				logging.String("path", path),
				logging.String("log_level", next.Log.Level))
		},
		func(err error) {
			logger.Error("configuration file is invalid", logging.String("path", path), logging.Err(err))
		})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

// startHealthServer exposes /healthz and, when enabled, /metrics on
// cfg.Metrics.Addr.
func startHealthServer(cfg *config.Config, infra *bootstrap.Infrastructure, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if infra.Redis != nil {
			if err := infra.Redis.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = fmt.Fprintf(w, `{"status":"unhealthy","component":"redis"}`)
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", infra.MetricsHandler())
	}

	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("health server listening", logging.String("addr", cfg.Metrics.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", logging.Err(err))
		}
	}()
	return srv
}

//Personal.AI order the ending
