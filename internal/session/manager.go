package session

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/monmi-labs/pay-gateway/internal/cart"
	"github.com/monmi-labs/pay-gateway/internal/common"
	"github.com/monmi-labs/pay-gateway/internal/monmi"
	"github.com/monmi-labs/pay-gateway/internal/obs"
)

// Address is the billing/shipping shape accepted from the client.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

// ProviderClient is the slice of the monmi client the manager needs.
type ProviderClient interface {
	Call(ctx context.Context, endpoint string, body map[string]any, method string) (*monmi.Response, error)
}

// CreateResult carries the persisted session plus the raw provider payment
// object and message for the HTTP response.
type CreateResult struct {
	Session *PaymentSession
	Payment map[string]any
	Message string
}

// Manager builds provider session payloads from cart state and owns the
// per-shopper session record.
type Manager struct {
	Cart        cart.Reader
	Client      ProviderClient
	Sessions    Store
	Currency    string
	StoreName   string
	StoreEmail  string
	CheckoutURL string
	Log         zerolog.Logger
}

// Create requests a new payment session from the provider and stores it for
// the shopper. An empty cart fails before any outbound call.
func (m *Manager) Create(ctx context.Context, shopperID string, billing, shipping Address) (*CreateResult, error) {
	snap, err := m.Cart.Load(ctx, shopperID)
	if err != nil {
		m.count("error")
		return nil, common.NewAppError(common.CodeInternal, "unable to load cart", http.StatusInternalServerError, err)
	}
	if snap.Empty() {
		m.count("missing_items")
		return nil, common.NewAppError(common.CodeMissingItems, "unable to determine cart items for payment", http.StatusBadRequest, nil)
	}

	payload := m.buildPayload(snap, billing)
	resp, err := m.Client.Call(ctx, "/api/v1/payment", payload, http.MethodPost)
	if err != nil {
		m.count("provider_error")
		return nil, err
	}

	data, _ := resp.Data["data"].(map[string]any)
	token, _ := data["token"].(string)
	if token == "" {
		m.count("missing_token")
		m.Log.Error().Str("shopper", shopperID).Msg("payment token missing from provider response")
		appErr := common.NewAppError(common.CodeMissingToken, "payment token missing from provider response", http.StatusInternalServerError, nil)
		appErr.Details = resp.Data
		return nil, appErr
	}

	sess := &PaymentSession{Token: token, Data: data}
	if code, ok := data["code"].(string); ok {
		sess.Code = code
	}
	if status, ok := data["status"].(string); ok {
		sess.Status = status
	}

	if err := m.Sessions.Set(ctx, shopperID, sess); err != nil {
		m.count("error")
		return nil, common.NewAppError(common.CodeInternal, "unable to persist payment session", http.StatusInternalServerError, err)
	}

	message, _ := resp.Data["message"].(string)
	m.count("ok")
	return &CreateResult{Session: sess, Payment: data, Message: message}, nil
}

// Seed returns the stored session's client-facing view, or nil when the
// shopper has no live session.
func (m *Manager) Seed(ctx context.Context, shopperID string) (map[string]any, error) {
	sess, err := m.Sessions.Get(ctx, shopperID)
	if err != nil {
		return nil, err
	}
	return sess.Seed(), nil
}

func (m *Manager) buildPayload(snap cart.Snapshot, billing Address) map[string]any {
	transactionID := uuid.NewString()

	items := make([]map[string]any, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		qty := line.Qty
		if qty <= 0 {
			qty = 1
		}
		items = append(items, map[string]any{
			"name":     line.Name,
			"amount":   cart.FormatMinor(line.UnitMinor),
			"quantity": strconv.Itoa(qty),
		})
	}

	return map[string]any{
		"timestamp":     time.Now().UnixMilli(),
		"transactionId": transactionID,
		"method":        "CARD",
		"currency":      m.Currency,
		"items":         items,
		"store": map[string]any{
			"name":    m.StoreName,
			"email":   m.StoreEmail,
			"orderId": transactionID,
		},
		"payer": map[string]any{
			"firstName": billing.FirstName,
			"lastName":  billing.LastName,
			"email":     billing.Email,
			"phone":     billing.Phone,
			"address": map[string]any{
				"line":    billing.Address1,
				"street":  billing.Address2,
				"city":    billing.City,
				"state":   billing.State,
				"country": billing.Country,
				"zipCode": billing.Postcode,
			},
		},
		"discount":  cart.FormatMinor(snap.DiscountMinor),
		"returnUrl": m.checkoutReturnURL("success"),
		"cancelUrl": m.checkoutReturnURL("cancel"),
	}
}

func (m *Manager) checkoutReturnURL(outcome string) string {
	u, err := url.Parse(m.CheckoutURL)
	if err != nil {
		return m.CheckoutURL
	}
	q := u.Query()
	q.Set("monmi", outcome)
	u.RawQuery = q.Encode()
	return u.String()
}

func (m *Manager) count(result string) {
	if obs.SessionCreateTotal != nil {
		obs.SessionCreateTotal.WithLabelValues(result).Inc()
	}
}
