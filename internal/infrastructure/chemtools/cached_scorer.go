package chemtools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/turtacn/DockFlow/internal/domain/pose"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// ScoreCache is the subset of the Redis cache used for scores.
type ScoreCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// CachedScorer serves repeated rescoring of identical receptor/pose pairs
// from a cache. Cache failures fall through to the wrapped Scorer.
type CachedScorer struct {
	next    Scorer
	cache   ScoreCache
	ttl     time.Duration
	engine  string
	metrics *prometheus.DockingMetrics
	logger  logging.Logger
}

// NewCachedScorer wraps next. engine labels the cache hit/miss metrics.
func NewCachedScorer(next Scorer, cache ScoreCache, ttl time.Duration, engine string, metrics *prometheus.DockingMetrics, logger logging.Logger) *CachedScorer {
	if metrics == nil {
		metrics = prometheus.NewNoopDockingMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CachedScorer{next: next, cache: cache, ttl: ttl, engine: engine, metrics: metrics, logger: logger.Named("score-cache")}
}

// Score returns the cached score of the pair or computes and stores it.
func (c *CachedScorer) Score(ctx context.Context, receptor, poseFile string) (*pose.Score, error) {
	key, err := ScoreKey(receptor, poseFile)
	if err != nil {
		c.logger.Warn("cannot hash score inputs, bypassing cache", logging.String("pose", poseFile), logging.Err(err))
		return c.next.Score(ctx, receptor, poseFile)
	}

	var s pose.Score
	if err := c.cache.Get(ctx, key, &s); err == nil {
		c.metrics.RecordPoses(c.engine, prometheus.PoseCacheHit, 1)
		return &s, nil
	} else if !errors.IsNotFound(err) {
		c.logger.Warn("score cache unavailable", logging.Err(err))
		return c.next.Score(ctx, receptor, poseFile)
	}

	c.metrics.RecordPoses(c.engine, prometheus.PoseCacheMiss, 1)
	err = c.cache.GetOrSet(ctx, key, &s, c.ttl, func(ctx context.Context) (interface{}, error) {
		return c.next.Score(ctx, receptor, poseFile)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ScoreKey is the hex SHA-256 of the receptor and pose contents.
func ScoreKey(receptor, poseFile string) (string, error) {
	h := sha256.New()
	for _, path := range []string{receptor, poseFile} {
		if err := hashFile(h, path); err != nil {
			return "", err
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

//Personal.AI order the ending
