package settings_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/monmi-labs/pay-gateway/internal/settings"
)

func TestStoreFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := settings.NewStore(client, map[string]string{
		settings.KeyAPIKey:      "pk_default",
		settings.KeySecretKey:   "sk_default",
		settings.KeyEnvironment: "development",
	})

	ctx := context.Background()
	require.Equal(t, "pk_default", store.APIKey(ctx))

	require.NoError(t, store.Set(ctx, settings.KeyAPIKey, "pk_rotated"))
	require.Equal(t, "pk_rotated", store.APIKey(ctx))
	require.Equal(t, "sk_default", store.SecretKey(ctx))
}

func TestEnvironmentNormalized(t *testing.T) {
	t.Parallel()

	store := settings.NewStore(nil, map[string]string{settings.KeyEnvironment: "  Production "})
	require.Equal(t, "production", store.Environment(context.Background()))

	store = settings.NewStore(nil, map[string]string{settings.KeyEnvironment: "staging"})
	require.Equal(t, "development", store.Environment(context.Background()))
}
