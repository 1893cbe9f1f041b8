package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubChecker struct {
	dbErr    error
	redisErr error
}

func (s stubChecker) PingDB(context.Context, time.Duration) error    { return s.dbErr }
func (s stubChecker) PingRedis(context.Context, time.Duration) error { return s.redisErr }

func TestLiveAlwaysOK(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{}.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyWithoutChecker(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestReadyHealthy(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{Checker: stubChecker{}}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var probes map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&probes); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if probes["db"] != "ok" || probes["redis"] != "ok" {
		t.Fatalf("unexpected probe report: %v", probes)
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	rec := httptest.NewRecorder()
	checker := stubChecker{redisErr: errors.New("connection refused")}
	Handler{Checker: checker}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var probes map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&probes); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if probes["db"] != "ok" {
		t.Fatalf("db probe should be ok, got %q", probes["db"])
	}
	if probes["redis"] != "connection refused" {
		t.Fatalf("redis probe should carry the error, got %q", probes["redis"])
	}
}
