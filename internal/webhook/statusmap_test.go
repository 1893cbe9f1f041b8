package webhook_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monmi-labs/pay-gateway/internal/webhook"
)

func TestStatusVocabulary(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"success", "succeeded", "paid", "completed", "complete", "authorised", "authorized", "9", "0", "00", "200"} {
		require.True(t, webhook.IsSuccess(s), s)
		require.False(t, webhook.IsFailed(s), s)
	}
	for _, s := range []string{"failed", "declined", "cancelled", "canceled", "voided", "refused", "10", "400", "402", "500"} {
		require.True(t, webhook.IsFailed(s), s)
		require.False(t, webhook.IsSuccess(s), s)
	}
	for _, s := range []string{"processing", "pending", "unknown", ""} {
		require.False(t, webhook.IsSuccess(s), s)
		require.False(t, webhook.IsFailed(s), s)
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	require.Equal(t, "succeeded", webhook.Fold("  Succeeded "))
	require.Equal(t, "", webhook.Fold("   "))
	require.True(t, webhook.IsSuccess(webhook.Fold("AUTHORISED")))
}
