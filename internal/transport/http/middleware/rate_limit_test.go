package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexhub/internal/cache"
)

type fakeLimiter struct {
	decision cache.Decision
	err      error
	subjects []string
}

func (f *fakeLimiter) Allow(ctx context.Context, subject, class string) (cache.Decision, error) {
	f.subjects = append(f.subjects, subject)
	return f.decision, f.err
}

func newLimitedRouter(limiter RequestLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ping", RateLimit(limiter, "test"), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func TestRateLimitAllows(t *testing.T) {
	limiter := &fakeLimiter{decision: cache.Decision{Allowed: true, Remaining: 10}}
	router := newLimitedRouter(limiter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, limiter.subjects, 1)
}

func TestRateLimitDeniesWithRetryAfter(t *testing.T) {
	limiter := &fakeLimiter{decision: cache.Decision{Allowed: false, RetryAfter: 42 * time.Second}}
	router := newLimitedRouter(limiter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "42", w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	limiter := &fakeLimiter{
		decision: cache.Decision{Allowed: true},
		err:      errors.New("redis down"),
	}
	router := newLimitedRouter(limiter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitUsesUserSubjectWhenAuthenticated(t *testing.T) {
	limiter := &fakeLimiter{decision: cache.Decision{Allowed: true}}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ping",
		func(c *gin.Context) { c.Set(ContextUserIDKey, uint(7)) },
		RateLimit(limiter, "test"),
		func(c *gin.Context) { c.String(http.StatusOK, "pong") },
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	require.Len(t, limiter.subjects, 1)
	assert.Equal(t, "u7", limiter.subjects[0])
}
