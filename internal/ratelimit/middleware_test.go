package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHandler(t *testing.T, max int, window time.Duration) (Handler, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return Handler{
		Limiter: Limiter{Client: client, Prefix: "mw:"},
		Config: Config{
			Key:    func(*http.Request) string { return "shopper" },
			Window: window,
			Max:    max,
		},
	}, mr
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	handler, _ := newTestHandler(t, 1, time.Minute)
	wrapped := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request should pass, got %d", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("missing limit header: %q", first.Header().Get("X-RateLimit-Limit"))
	}

	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be throttled, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("throttled response must carry Retry-After")
	}
}

func TestMiddlewareFailsOpenOnLimiterError(t *testing.T) {
	handler, mr := newTestHandler(t, 1, time.Minute)
	mr.Close()

	var reported error
	handler.OnError = func(err error) { reported = err }

	wrapped := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected fail-open pass-through, got %d", rec.Code)
	}
	if reported == nil {
		t.Fatal("expected limiter error to be reported")
	}
}

func TestMiddlewareWithoutKeyFuncPassesThrough(t *testing.T) {
	handler, _ := newTestHandler(t, 1, time.Minute)
	handler.Config.Key = nil

	wrapped := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d should pass without key func, got %d", i, rec.Code)
		}
	}
}
