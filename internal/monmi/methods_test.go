package monmi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/monmi-labs/pay-gateway/internal/monmi"
)

func newMethodsFixture(t *testing.T, handler http.HandlerFunc) (*monmi.MethodsService, *miniredis.Miniredis, *int) {
	t.Helper()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := fakeSettings{apiKey: "pk", secret: "sk", env: "development"}
	client := monmi.NewClient(cfg, map[string]string{"development": srv.URL}, nil, zerolog.Nop())
	return &monmi.MethodsService{Client: client, Settings: cfg, Redis: rdb}, mr, &calls
}

func TestPaymentMethodsDedupesAndCaches(t *testing.T) {
	svc, mr, calls := newMethodsFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errorCode":0,"data":["CARD","card ","BANK_TRANSFER","CARD",42,""]}`))
	})

	methods, err := svc.PaymentMethods(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"CARD", "card", "BANK_TRANSFER"}, methods)

	ttl := mr.TTL("monmi:methods:development")
	require.Equal(t, 15*time.Minute, ttl)

	again, err := svc.PaymentMethods(context.Background())
	require.NoError(t, err)
	require.Equal(t, methods, again)
	require.Equal(t, 1, *calls, "second read must be served from cache")
}

func TestPaymentMethodsEmptyResultCachedShorter(t *testing.T) {
	svc, mr, _ := newMethodsFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errorCode":0,"data":[]}`))
	})

	methods, err := svc.PaymentMethods(context.Background())
	require.NoError(t, err)
	require.Empty(t, methods)

	ttl := mr.TTL("monmi:methods:development")
	require.Equal(t, 5*time.Minute, ttl)
}

func TestPaymentMethodsRejectsProviderError(t *testing.T) {
	svc, mr, _ := newMethodsFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errorCode":7,"message":"merchant disabled"}`))
	})

	_, err := svc.PaymentMethods(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "merchant disabled")
	require.False(t, mr.Exists("monmi:methods:development"), "failed lookups must not be cached")
}
