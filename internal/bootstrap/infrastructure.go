// Package bootstrap opens the infrastructure enabled in the configuration and
// assembles the job service on top of it. Disabled components stay nil and
// the service runs without the matching feature.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/DockFlow/internal/application/docking"
	"github.com/turtacn/DockFlow/internal/application/jobs"
	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/domain/job"
	"github.com/turtacn/DockFlow/internal/infrastructure/chemtools"
	"github.com/turtacn/DockFlow/internal/infrastructure/database/postgres"
	"github.com/turtacn/DockFlow/internal/infrastructure/database/redis"
	"github.com/turtacn/DockFlow/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DockFlow/internal/infrastructure/process"
	"github.com/turtacn/DockFlow/internal/infrastructure/storage/minio"
)

// Infrastructure holds the opened clients of one process.
type Infrastructure struct {
	Config *config.Config
	Logger logging.Logger

	// Collector is nil when metrics are disabled; Metrics is then a noop.
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.DockingMetrics

	Redis *redis.Client
	Cache redis.Cache
	Locks redis.LockFactory

	Pool *pgxpool.Pool
	// Repo is the Postgres repository, or an in-memory one when the database
	// is disabled.
	Repo job.Repository

	Producer  *kafka.Producer
	MinIO     *minio.Client
	Artifacts *minio.ArtifactStore
}

// Open connects every enabled component. On error the components opened so
// far are closed.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Infrastructure, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	infra := &Infrastructure{Config: cfg, Logger: logger, Metrics: prometheus.NewNoopDockingMetrics()}

	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		infra.Collector = collector
		infra.Metrics = prometheus.NewDockingMetrics(collector)
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.Redis = client
		infra.Cache = redis.NewRedisCache(client, logger, redis.WithDefaultTTL(cfg.Scoring.CacheTTL))
		infra.Locks = redis.NewLockFactory(client, logger)
	}

	if cfg.Database.Enabled {
		if cfg.Database.AutoMigrate {
			if err := postgres.NewMigrator(cfg.Database.DSN(), logger).Up(); err != nil {
				infra.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pool, err := postgres.NewConnectionPool(cfg.Database, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		infra.Pool = pool
		infra.Repo = postgres.NewJobRepository(pool, logger)
	} else {
		infra.Repo = jobs.NewMemoryRepository()
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("kafka: %w", err)
		}
		infra.Producer = producer
		if cfg.Kafka.AutoCreateTopics {
			ensureTopics(ctx, cfg.Kafka, logger)
		}
	}

	if cfg.MinIO.Enabled {
		client, err := minio.NewClient(ctx, cfg.MinIO, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		infra.MinIO = client
		infra.Artifacts = minio.NewArtifactStore(client, infra.Metrics, logger)
	}

	logger.Info("infrastructure initialized",
		logging.Bool("metrics", infra.Collector != nil),
		logging.Bool("redis", infra.Redis != nil),
		logging.Bool("postgres", infra.Pool != nil),
		logging.Bool("kafka", infra.Producer != nil),
		logging.Bool("minio", infra.MinIO != nil))
	return infra, nil
}

// ensureTopics creates missing job topics. Brokers that auto-create topics or
// deny admin access still work, so failures only warn.
func ensureTopics(ctx context.Context, cfg config.KafkaConfig, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(ctx, cfg.Brokers, logger)
	if err != nil {
		logger.Warn("kafka topic manager unavailable", logging.Error(err))
		return
	}
	defer tm.Close()
	if err := tm.EnsureTopics(kafka.JobTopics(cfg)); err != nil {
		logger.Warn("kafka topics not created", logging.Error(err))
	}
}

// Close releases every opened component.
func (i *Infrastructure) Close() {
	if i.Producer != nil {
		if err := i.Producer.Close(); err != nil {
			i.Logger.Warn("failed to close kafka producer", logging.Err(err))
		}
	}
	if i.Pool != nil {
		postgres.Close(i.Pool)
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.Logger.Warn("failed to close redis client", logging.Err(err))
		}
	}
}

// Publisher returns the producer as a Publisher, or nil when Kafka is disabled.
func (i *Infrastructure) Publisher() kafka.Publisher {
	if i.Producer == nil {
		return nil
	}
	return i.Producer
}

// MetricsHandler serves the collector registry, or 404 when metrics are
// disabled.
func (i *Infrastructure) MetricsHandler() http.Handler {
	if i.Collector == nil {
		return http.NotFoundHandler()
	}
	return i.Collector.Handler()
}

// DockingDeps returns driver collaborators sharing the process metrics.
func (i *Infrastructure) DockingDeps() docking.Deps {
	return docking.Deps{
		Runner:  process.NewRunner(i.Logger, i.Metrics),
		Logger:  i.Logger,
		Metrics: i.Metrics,
	}
}

// Engine returns the in-process docking engine, with the score cache when
// Redis is enabled.
func (i *Infrastructure) Engine() *jobs.DockingEngine {
	var cache chemtools.ScoreCache
	if i.Cache != nil {
		cache = i.Cache
	}
	return jobs.NewDockingEngine(i.Config, i.DockingDeps(), cache)
}

// Topics returns the job event topics from the Kafka configuration.
func (i *Infrastructure) Topics() jobs.Topics {
	return jobs.Topics{
		Requested: i.Config.Kafka.RequestTopic,
		Completed: i.Config.Kafka.CompletedTopic,
		Failed:    i.Config.Kafka.FailedTopic,
	}
}

// NewService builds the job service over the opened components.
func (i *Infrastructure) NewService() (jobs.Service, error) {
	deps := jobs.Dependencies{
		Repo:      i.Repo,
		Engine:    i.Engine(),
		Publisher: i.Publisher(),
		Locks:     i.Locks,
		Topics:    i.Topics(),
		Metrics:   i.Metrics,
		Logger:    i.Logger,
	}
	if i.Artifacts != nil {
		deps.Artifacts = i.Artifacts
	}
	return jobs.NewService(deps)
}

//Personal.AI order the ending
