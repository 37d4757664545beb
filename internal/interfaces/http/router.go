// Package http serves the DockFlow job API over gin.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/interfaces/http/handlers"
	"github.com/turtacn/DockFlow/internal/interfaces/http/middleware"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// RouterConfig aggregates the handlers and middleware settings of the route
// tree. Nil handlers leave their routes unregistered.
type RouterConfig struct {
	JobHandler    *handlers.JobHandler
	HealthHandler *handlers.HealthHandler

	Logger logging.Logger
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler

	// CORS is applied when non-nil.
	CORS *middleware.CORSConfig
	// RateLimiter guards job submission when non-nil.
	RateLimiter middleware.RateLimiter
	RateLimit   middleware.RateLimitConfig
	Logging     middleware.LoggingConfig
}

// NewRouter builds the route tree. Global middleware runs in the order
// recovery, request id, CORS, logging.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(logger, cfg.Logging))

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
		r.GET("/healthz/detail", h.Detailed)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := r.Group("/api/v1")
	registerJobRoutes(v1, cfg)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Code:    errors.ErrCodeNotFound.String(),
			Message: errors.DefaultMessageForCode(errors.ErrCodeNotFound),
			Detail:  c.Request.URL.Path,
		})
	})
	return r
}

// registerJobRoutes mounts the job resource under /jobs.
func registerJobRoutes(api *gin.RouterGroup, cfg RouterConfig) {
	h := cfg.JobHandler
	if h == nil {
		return
	}
	jobs := api.Group("/jobs")

	submit := []gin.HandlerFunc{h.Submit}
	if cfg.RateLimiter != nil {
		submit = append([]gin.HandlerFunc{middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit)}, submit...)
	}
	jobs.POST("", submit...)
	jobs.GET("", h.List)
	jobs.GET("/:id", h.Get)
	jobs.GET("/:id/poses", h.ListPoses)
}

//Personal.AI order the ending
