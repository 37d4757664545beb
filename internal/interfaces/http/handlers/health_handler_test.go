package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func healthRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/healthz/detail", h.Detailed)
	return r
}

func okChecker(name string) HealthChecker {
	return CheckerFunc{ComponentName: name, Fn: func(context.Context) error { return nil }}
}

func failingChecker(name string) HealthChecker {
	return CheckerFunc{ComponentName: name, Fn: func(context.Context) error { return errors.New("connection refused") }}
}

func TestHealthHandler_Liveness(t *testing.T) {
	r := healthRouter(NewHealthHandler("v1.2.3", failingChecker("postgres")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
}

func TestHealthHandler_Readiness_NoCheckers(t *testing.T) {
	r := healthRouter(NewHealthHandler("dev"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)
}

func TestHealthHandler_Readiness_AllHealthy(t *testing.T) {
	r := healthRouter(NewHealthHandler("dev", okChecker("postgres"), okChecker("redis")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Len(t, resp.Components, 2)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
}

func TestHealthHandler_Readiness_Failing(t *testing.T) {
	r := healthRouter(NewHealthHandler("dev", okChecker("postgres"), failingChecker("minio")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["minio"].Status)
	assert.Equal(t, "connection refused", resp.Components["minio"].Error)
}

func TestHealthHandler_Detailed_Degraded(t *testing.T) {
	r := healthRouter(NewHealthHandler("dev", failingChecker("kafka")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz/detail", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp DetailedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "dev", resp.Version)
	assert.Contains(t, resp.Components, "kafka")
}

//Personal.AI order the ending
