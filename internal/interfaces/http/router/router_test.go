package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjacent-api/internal/config"
	"adjacent-api/internal/interfaces/http/handler"
	"adjacent-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

type denyAll struct{ keys []string }

func (d *denyAll) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	d.keys = append(d.keys, key)
	return false, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "adjacent-api"
	cfg.Security.JWT.Secret = "s3cret"
	cfg.Security.JWT.Issuer = "adjacent"
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"
	return cfg
}

func testHandlers() Handlers {
	return Handlers{
		Health: handler.NewHealthHandler("v0.1.0", okChecker{}, okChecker{}),
		Agent:  handler.NewAgentHandler(nil),
		Job:    handler.NewJobHandler(nil),
		Stream: handler.NewStreamHandler(nil),
	}
}

func serve(r *Router, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestSystemEndpointsSkipAuth(t *testing.T) {
	r := New(testConfig(), testHandlers(), nil)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		w := serve(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.NotEmpty(t, serve(r, http.MethodGet, "/live", "").Header().Get("X-Request-ID"))
}

func TestV1RequiresToken(t *testing.T) {
	r := New(testConfig(), testHandlers(), nil)

	w := serve(r, http.MethodGet, "/v1/jobs/j1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/v1/agents/run-pipeline", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestV1RateLimitedPerUser(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RequestsPerMinute = 10
	limiter := &denyAll{}
	r := New(cfg, testHandlers(), limiter)

	token, err := utils.NewJWTManager("s3cret", "adjacent").GenerateToken("u-1", "", time.Minute)
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/v1/projects/p1/tasks", token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "ratelimit:u-1:/v1/projects/:pid/tasks", limiter.keys[0])
}

func TestUnknownRoute(t *testing.T) {
	r := New(testConfig(), testHandlers(), nil)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/v2/anything", "").Code)
}
