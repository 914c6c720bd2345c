package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeRateLimitStore struct {
	count int
	err   error

	keys    []string
	windows []time.Duration
}

func (f *fakeRateLimitStore) Hit(_ context.Context, identifier string, window time.Duration, _ time.Time) (int, error) {
	f.keys = append(f.keys, identifier)
	f.windows = append(f.windows, window)
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func newLimitedRouter(t *testing.T, store *fakeRateLimitStore, now time.Time) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(limiter.RateLimit(RateLimitRule{
		Name:   "estimates",
		Limit:  5,
		Window: time.Minute,
		Identifier: func(c *gin.Context) (string, bool) {
			return "192.0.2.1", true
		},
	}))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiterAllowsWhenBelowLimit(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{count: 3}
	router := newLimitedRouter(t, store, now)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(store.keys) != 1 || store.keys[0] != "estimates:192.0.2.1" {
		t.Fatalf("unexpected keys %v", store.keys)
	}
	if store.windows[0] != time.Minute {
		t.Fatalf("unexpected window %v", store.windows[0])
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining header 2, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(now.Add(time.Minute).Unix(), 10) {
		t.Fatalf("unexpected reset header %q", got)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after header, got %q", got)
	}
}

func TestRateLimiterAllowsAtLimit(t *testing.T) {
	store := &fakeRateLimitStore{count: 5}
	router := newLimitedRouter(t, store, time.Now())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for the fifth attempt, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected remaining header 0, got %q", got)
	}
}

func TestRateLimiterBlocksWhenLimitExceeded(t *testing.T) {
	store := &fakeRateLimitStore{count: 6}
	router := newLimitedRouter(t, store, time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected retry-after 60, got %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected problem status %d", problem.Status)
	}
	if problem.RetryAfter != 60 {
		t.Fatalf("expected problem retry_after 60, got %d", problem.RetryAfter)
	}
	if problem.Instance != "/" {
		t.Fatalf("unexpected instance %q", problem.Instance)
	}
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	store := &fakeRateLimitStore{err: errors.New("redis down")}
	router := newLimitedRouter(t, store, time.Now())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when failing open, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Fatalf("expected no rate limit headers, got %q", got)
	}
}

func TestRateLimiterWithoutStorePassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(NewRateLimiter(nil, nil).RateLimit(RateLimitRule{Limit: 1, Window: time.Second, Identifier: ClientIPIdentifier()}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
