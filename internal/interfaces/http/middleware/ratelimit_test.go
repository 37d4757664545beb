package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_Burst(t *testing.T) {
	l := NewTokenBucketLimiter(1, 2, 0)
	defer l.Stop()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, info := l.Allow("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(1500 * time.Millisecond)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok, "one token refilled")
}

func TestTokenBucketLimiter_Cleanup(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, 0)
	l.cleanupInterval = time.Minute
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.BucketCount())

	now = now.Add(2 * time.Minute)
	l.Allow("b")
	l.cleanup()
	assert.Equal(t, 1, l.BucketCount())

	l.Stop()
	l.Stop()
}

func TestRateLimit_Middleware(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	defer l.Stop()

	r := gin.New()
	r.POST("/api/v1/jobs", RateLimit(l, RateLimitConfig{}), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimit_CustomKey(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	defer l.Stop()

	cfg := RateLimitConfig{KeyFunc: func(c *gin.Context) string { return c.GetHeader("X-Client") }}
	r := gin.New()
	r.POST("/api/v1/jobs", RateLimit(l, cfg), func(c *gin.Context) { c.Status(http.StatusAccepted) })

	for _, client := range []string{"alpha", "beta"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusAccepted, w.Code, client)
	}
}

//Personal.AI order the ending
