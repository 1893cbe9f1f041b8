// Package checkout finalizes order placement for the Monmi gateway: it
// validates the client-submitted token against a one-time nonce, writes
// provisional payment metadata and parks the order pending webhook
// confirmation. It never marks an order paid.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/monmi-labs/pay-gateway/internal/cart"
	"github.com/monmi-labs/pay-gateway/internal/common"
	"github.com/monmi-labs/pay-gateway/internal/obs"
	"github.com/monmi-labs/pay-gateway/internal/order"
	"github.com/monmi-labs/pay-gateway/internal/session"
)

// GatewayID identifies this gateway among the store's payment methods.
const GatewayID = "monmi_pay"

// ErrNotThisGateway means the shopper picked another payment method; the
// finalizer is a no-op then.
var ErrNotThisGateway = errors.New("checkout: payment method is not the monmi gateway")

// Input is everything the checkout submission carries.
type Input struct {
	OrderID       int64
	ShopperID     string
	PaymentMethod string
	Nonce         string
	Token         string
	Code          string
	Status        string
	Payload       string
}

// RedirectPolicy lets the host application override the post-order redirect.
type RedirectPolicy func(o *order.Order, defaultURL string) string

// Finalizer writes provisional payment state onto the order at submit time.
type Finalizer struct {
	Orders    order.Store
	Cart      cart.Store
	Sessions  session.Store
	Nonces    *NonceStore
	ReturnURL string
	Redirect  RedirectPolicy
	Log       zerolog.Logger
}

// Finalize runs the submit-time flow and returns the redirect target.
func (f *Finalizer) Finalize(ctx context.Context, in Input) (string, error) {
	if in.PaymentMethod != GatewayID {
		return "", ErrNotThisGateway
	}

	ok, err := f.Nonces.Consume(ctx, in.Nonce, in.ShopperID)
	if err != nil {
		f.count("error")
		return "", common.NewAppError(common.CodeInternal, "unable to verify checkout nonce", http.StatusInternalServerError, err)
	}
	if !ok {
		f.count("invalid_nonce")
		return "", common.NewAppError(common.CodeValidation, "checkout session expired, please reload and try again", http.StatusBadRequest, nil)
	}

	token := strings.TrimSpace(in.Token)
	if token == "" {
		f.count("missing_token")
		return "", common.NewAppError(common.CodeValidation, "unable to finalise payment, please try again", http.StatusBadRequest, nil)
	}

	o, err := f.Orders.LoadByID(ctx, in.OrderID)
	if err != nil {
		f.count("order_not_found")
		if errors.Is(err, order.ErrNotFound) {
			return "", common.NewAppError(common.CodeOrderNotFound, "order not found", http.StatusNotFound, nil)
		}
		return "", common.NewAppError(common.CodeInternal, "unable to load order", http.StatusInternalServerError, err)
	}
	if o.GetMeta(order.MetaPaymentToken) != "" {
		f.count("already_finalized")
		return "", common.NewAppError(common.CodeValidation, "order has already been submitted for payment", http.StatusConflict, nil)
	}

	o.SetMeta(order.MetaPaymentToken, token)

	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status != "" {
		o.SetMeta(order.MetaPaymentStatus, status)
	}
	if code := strings.TrimSpace(in.Code); code != "" {
		o.SetMeta(order.MetaPaymentCode, code)
		o.TransactionRef = code
	}

	f.applyPayload(o, in.Payload)

	o.Status = order.StatusPending
	if status == "success" {
		o.AddNote("Monmi authorised payment at checkout. Awaiting webhook confirmation.")
	} else {
		o.AddNote("Monmi payment initiated. Awaiting webhook confirmation.")
	}

	if err := f.Orders.Save(ctx, o); err != nil {
		f.count("error")
		return "", common.NewAppError(common.CodeInternal, "unable to save order", http.StatusInternalServerError, err)
	}

	if err := f.Cart.Clear(ctx, in.ShopperID); err != nil {
		f.Log.Warn().Err(err).Str("shopper", in.ShopperID).Msg("checkout: clear cart failed")
	}
	if err := f.Sessions.Clear(ctx, in.ShopperID); err != nil {
		f.Log.Warn().Err(err).Str("shopper", in.ShopperID).Msg("checkout: clear payment session failed")
	}

	redirect := f.ReturnURL + "/" + strconv.FormatInt(o.ID, 10)
	if f.Redirect != nil {
		redirect = f.Redirect(o, redirect)
	}
	f.count("ok")
	return redirect, nil
}

// applyPayload stores the raw client payload. A parseable payload also yields
// the partner transaction id and gateway status as their own fields; an
// unparseable one is kept verbatim rather than dropped.
func (f *Finalizer) applyPayload(o *order.Order, payload string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		o.SetMeta(order.MetaPaymentPayloadRaw, payload)
		return
	}
	if normalized, err := json.Marshal(decoded); err == nil {
		o.SetMeta(order.MetaPaymentPayload, string(normalized))
	}
	if partnerID, ok := decoded["partnerTransactionId"]; ok {
		o.SetMeta(order.MetaPartnerTransactionID, stringify(partnerID))
	}
	if gwStatus, ok := decoded["status"]; ok {
		o.SetMeta(order.MetaGatewayStatus, stringify(gwStatus))
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func (f *Finalizer) count(result string) {
	if obs.FinalizeTotal != nil {
		obs.FinalizeTotal.WithLabelValues(result).Inc()
	}
}
