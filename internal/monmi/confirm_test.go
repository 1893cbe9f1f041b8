package monmi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/monmi-labs/pay-gateway/internal/monmi"
)

func TestConfirmSendsPaymentBody(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"success"}}`))
	}))
	defer srv.Close()

	client := monmi.NewClient(
		fakeSettings{apiKey: "pk", secret: "sk", env: "development"},
		map[string]string{"development": srv.URL},
		nil,
		zerolog.Nop(),
	)

	resp, err := client.Confirm(context.Background(), monmi.ConfirmInput{
		ClientSecret:    "tok_1",
		OrderID:         "42",
		Currency:        "USD",
		Value:           "4.37",
		PaymentMethodID: "pm_card",
		Metadata:        map[string]any{"source": "checkout"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	require.Equal(t, "/payments/confirm", gotPath)
	require.Equal(t, "tok_1", gotBody["client_secret"])
	require.Equal(t, "42", gotBody["order_id"])
	amount, ok := gotBody["amount"].(map[string]any)
	require.True(t, ok, "amount must be an object")
	require.Equal(t, "USD", amount["currency"])
	require.Equal(t, "4.37", amount["value"])
	require.Equal(t, "pm_card", gotBody["payment_method_id"])
	metadata, ok := gotBody["metadata"].(map[string]any)
	require.True(t, ok, "metadata must be an object")
	require.Equal(t, "checkout", metadata["source"])
}

func TestConfirmOmitsOptionalFields(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := monmi.NewClient(
		fakeSettings{apiKey: "pk", secret: "sk", env: "development"},
		map[string]string{"development": srv.URL},
		nil,
		zerolog.Nop(),
	)

	_, err := client.Confirm(context.Background(), monmi.ConfirmInput{ClientSecret: "tok_1"})
	require.NoError(t, err)
	require.NotContains(t, gotBody, "payment_method_id")
	require.NotContains(t, gotBody, "metadata")
}

func TestWidgetConfirmerPopulatesFields(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"code":"pc_9","status":"success"}}`))
	}))
	defer srv.Close()

	client := monmi.NewClient(
		fakeSettings{apiKey: "pk", secret: "sk", env: "development"},
		map[string]string{"development": srv.URL},
		nil,
		zerolog.Nop(),
	)

	confirmer := &monmi.WidgetConfirmer{
		Client: client,
		Details: func(context.Context, string) monmi.ConfirmInput {
			return monmi.ConfirmInput{OrderID: "42", Currency: "USD", Value: "4.37", ClientSecret: "stale"}
		},
	}

	fields, err := confirmer.Confirm(context.Background(), "tok_1")
	require.NoError(t, err)

	// The live session token overrides whatever Details resolved.
	require.Equal(t, "tok_1", gotBody["client_secret"])
	require.Equal(t, "42", gotBody["order_id"])

	require.Equal(t, "tok_1", fields.Token)
	require.Equal(t, "pc_9", fields.Code)
	require.Equal(t, "success", fields.Status)
	require.JSONEq(t, `{"data":{"code":"pc_9","status":"success"}}`, fields.Payload)
}

func TestWidgetConfirmerSurfacesProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := monmi.NewClient(
		fakeSettings{apiKey: "pk", secret: "sk", env: "development"},
		map[string]string{"development": srv.URL},
		nil,
		zerolog.Nop(),
	)

	confirmer := &monmi.WidgetConfirmer{Client: client}
	_, err := confirmer.Confirm(context.Background(), "tok_1")
	var httpErr *monmi.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadGateway, httpErr.Status)
}
