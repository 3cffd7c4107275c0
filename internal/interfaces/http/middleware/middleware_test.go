package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjacent-api/internal/config"
	"adjacent-api/pkg/logger"
	"adjacent-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/v1/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func do(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	cfg := AuthConfig{Secret: "s3cret", Issuer: "adjacent", Enabled: true, SkipPaths: DefaultSkipPaths}
	r := newEngine(Auth(cfg))

	token, err := utils.NewJWTManager("s3cret", "adjacent").GenerateToken("user-7", "", time.Minute)
	require.NoError(t, err)
	expired, err := utils.NewJWTManager("s3cret", "adjacent").GenerateToken("user-7", "", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"valid token", "/v1/whoami", "Bearer " + token, http.StatusOK, "user-7"},
		{"missing header", "/v1/whoami", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "/v1/whoami", "Basic abc", http.StatusUnauthorized, "invalid authorization format"},
		{"expired", "/v1/whoami", "Bearer " + expired, http.StatusUnauthorized, "token expired"},
		{"garbage", "/v1/whoami", "Bearer nope", http.StatusUnauthorized, "invalid token"},
		{"skip path", "/health", "", http.StatusOK, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			w := do(r, tt.path, h)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestAuthDisabledUsesDevHeader(t *testing.T) {
	r := newEngine(Auth(AuthConfig{Enabled: false}))

	h := http.Header{}
	h.Set(DevUserHeader, "local-user")
	w := do(r, "/v1/whoami", h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "local-user", w.Body.String())

	w = do(r, "/v1/whoami", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	r := newEngine(Auth(AuthConfig{}), RateLimit(RateLimitConfig{Enabled: true}, limiter))

	h := http.Header{}
	h.Set(DevUserHeader, "u1")
	w := do(r, "/v1/whoami", h)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "ratelimit:u1:/v1/whoami", limiter.keys[0])

	limiter.allowed = true
	w = do(r, "/v1/whoami", h)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	r := newEngine(RateLimit(RateLimitConfig{Enabled: true}, limiter))

	w := do(r, "/v1/whoami", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Contains(t, limiter.keys[0], "ratelimit:ip:")
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := do(r, "/health", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	h := http.Header{}
	h.Set(RequestIDHeader, "req-1")
	w = do(r, "/health", h)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	h.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	w = do(r, "/health", h)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRouteContext(t *testing.T) {
	r := gin.New()
	r.Use(RouteContext())
	r.GET("/v1/projects/:pid/tasks", func(c *gin.Context) {
		c.String(http.StatusOK, "%v", c.Request.Context().Value(logger.ProjectIDKey))
	})

	w := do(r, "/v1/projects/p-7/tasks", nil)
	assert.Equal(t, "p-7", w.Body.String())
}

func TestCORS(t *testing.T) {
	preflight := func(r http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/health", nil)
		req.Header.Set("Origin", "https://board.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight(newEngine(CORS(config.CORSConfig{})))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	w = preflight(newEngine(CORS(config.CORSConfig{AllowedOrigins: []string{"https://board.example.com"}})))
	assert.Equal(t, "https://board.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := do(r, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}
