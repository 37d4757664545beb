package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/DockFlow/internal/bootstrap"
	"github.com/turtacn/DockFlow/internal/infrastructure/database/postgres"
	"github.com/turtacn/DockFlow/internal/infrastructure/database/redis"
	"github.com/turtacn/DockFlow/internal/infrastructure/storage/minio"
	"github.com/turtacn/DockFlow/internal/interfaces/http/handlers"
)

type postgresHealthAdapter struct {
	pool *pgxpool.Pool
}

func (a *postgresHealthAdapter) Name() string { return "postgres" }

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return postgres.HealthCheck(ctx, a.pool)
}

type redisHealthAdapter struct {
	client *redis.Client
}

func (a *redisHealthAdapter) Name() string { return "redis" }

func (a *redisHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type minioHealthAdapter struct {
	client *minio.Client
}

func (a *minioHealthAdapter) Name() string { return "minio" }

func (a *minioHealthAdapter) Check(ctx context.Context) error {
	return a.client.HealthCheck(ctx)
}

// healthCheckers returns a checker per opened backend.
func healthCheckers(infra *bootstrap.Infrastructure) []handlers.HealthChecker {
	var checkers []handlers.HealthChecker
	if infra.Pool != nil {
		checkers = append(checkers, &postgresHealthAdapter{pool: infra.Pool})
	}
	if infra.Redis != nil {
		checkers = append(checkers, &redisHealthAdapter{client: infra.Redis})
	}
	if infra.MinIO != nil {
		checkers = append(checkers, &minioHealthAdapter{client: infra.MinIO})
	}
	return checkers
}

//Personal.AI order the ending
