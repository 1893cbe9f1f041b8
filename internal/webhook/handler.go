// Package webhook reconciles order state from signed Monmi callbacks. The
// endpoint assumes at-least-once delivery: every step is idempotent and a
// replayed payload can never move an order out of a terminal state.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/monmi-labs/pay-gateway/internal/common"
	"github.com/monmi-labs/pay-gateway/internal/obs"
	"github.com/monmi-labs/pay-gateway/internal/order"
	"github.com/monmi-labs/pay-gateway/internal/settings"
	"github.com/monmi-labs/pay-gateway/internal/signature"
)

const saveAttempts = 3

// Handler authenticates and applies provider callbacks.
type Handler struct {
	Orders   order.Store
	Settings settings.Reader
	Log      zerolog.Logger
}

// Handle serves POST and GET /payment/webhook. GET is the provider's health
// ping: it must pass the same authentication but touches no order.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sig := r.Header.Get("x-api-signature")
	requestID := r.Header.Get("x-request-id")
	timestamp := r.Header.Get("x-timestamp")
	if sig == "" || requestID == "" || timestamp == "" {
		h.reject(w, http.StatusUnauthorized, common.CodeMissingHeaders, "webhook headers missing required authentication values")
		return
	}

	secret := h.Settings.SecretKey(ctx)
	if secret == "" {
		h.reject(w, http.StatusInternalServerError, common.CodeSecretNotConfigured, "merchant secret key not configured")
		return
	}
	if !signature.Verify(secret, requestID, timestamp, sig) {
		h.Log.Warn().Str("request_id", requestID).Msg("webhook signature verification failed")
		h.reject(w, http.StatusUnauthorized, common.CodeInvalidSignature, "webhook signature verification failed")
		return
	}

	if r.Method == http.MethodGet {
		h.count("ping")
		common.JSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.reject(w, http.StatusBadRequest, common.CodeEmptyPayload, "webhook payload is empty or invalid")
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload) == 0 {
		h.reject(w, http.StatusBadRequest, common.CodeEmptyPayload, "webhook payload is empty or invalid")
		return
	}

	status := Fold(asString(payload["status"]))

	if err := h.reconcile(ctx, payload, status); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			h.reject(w, http.StatusNotFound, common.CodeOrderNotFound, "unable to locate order for webhook")
			return
		}
		h.Log.Error().Err(err).Str("request_id", requestID).Msg("webhook reconciliation failed")
		h.reject(w, http.StatusInternalServerError, common.CodeInternal, "unable to apply webhook")
		return
	}

	h.count("ok")
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "status": status})
}

// reconcile locates the order and applies the payload, retrying a bounded
// number of times when a concurrent writer wins the version race.
func (h *Handler) reconcile(ctx context.Context, payload map[string]any, status string) error {
	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		o, err := h.locate(ctx, payload)
		if err != nil {
			return err
		}
		h.apply(o, payload, status)
		lastErr = h.Orders.Save(ctx, o)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, order.ErrVersionConflict) {
			return lastErr
		}
	}
	return lastErr
}

// locate prefers an explicit numeric order id, then falls back to metadata
// matches in priority order. First match wins.
func (h *Handler) locate(ctx context.Context, payload map[string]any) (*order.Order, error) {
	if id, ok := numericID(payload["order_id"]); ok {
		if o, err := h.Orders.LoadByID(ctx, id); err == nil {
			return o, nil
		} else if !errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
	}

	lookups := []struct {
		metaKey string
		value   string
	}{
		{order.MetaPaymentToken, asString(payload["token"])},
		{order.MetaPaymentCode, asString(payload["code"])},
		{order.MetaPartnerTransactionID, asString(payload["partnerTransactionId"])},
	}
	for _, lookup := range lookups {
		if lookup.value == "" {
			continue
		}
		o, err := h.Orders.LoadByMeta(ctx, lookup.metaKey, lookup.value)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
	}
	return nil, order.ErrNotFound
}

func (h *Handler) apply(o *order.Order, payload map[string]any, status string) {
	if status != "" {
		o.SetMeta(order.MetaGatewayStatus, status)
	}
	if token := asString(payload["token"]); token != "" && o.GetMeta(order.MetaPaymentToken) != token {
		o.SetMeta(order.MetaPaymentToken, token)
	}
	if code := asString(payload["code"]); code != "" && o.GetMeta(order.MetaPaymentCode) != code {
		o.SetMeta(order.MetaPaymentCode, code)
	}
	if raw, err := json.Marshal(payload); err == nil {
		o.SetMeta(order.MetaWebhookPayload, string(raw))
	}

	if status == "" {
		return
	}
	o.AddNote("Monmi webhook status: " + status)

	// paid and failed are terminal: a webhook may re-confirm them but never
	// move an order out.
	terminal := o.Status == order.StatusPaid || o.Status == order.StatusFailed

	switch {
	case IsSuccess(status):
		if !terminal {
			o.Status = order.StatusPaid
			o.AddNote("Monmi confirmed the payment via webhook.")
			h.count("paid")
		}
	case IsFailed(status):
		if !terminal {
			o.Status = order.StatusFailed
			o.AddNote("Monmi reported the payment as failed via webhook.")
			h.count("failed")
		}
	default:
		// unknown status: metadata recorded, no transition
		h.count("unknown_status")
	}
}

func (h *Handler) reject(w http.ResponseWriter, httpStatus int, code, message string) {
	h.count("rejected")
	common.JSON(w, httpStatus, map[string]any{"success": false, "code": code, "message": message})
}

func (h *Handler) count(result string) {
	if obs.WebhookTotal != nil {
		obs.WebhookTotal.WithLabelValues(result).Inc()
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return ""
	}
}

func numericID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
