package monmi

import (
	"context"
	"net/http"

	"github.com/monmi-labs/pay-gateway/widget"
)

// ConfirmInput describes a server-side confirmation of a payment session,
// used when the hosted widget cannot complete the confirm step itself.
type ConfirmInput struct {
	ClientSecret    string
	OrderID         string
	Currency        string
	Value           string
	PaymentMethodID string
	Metadata        map[string]any
}

// Confirm asks the provider to confirm a pending payment session.
func (c *Client) Confirm(ctx context.Context, in ConfirmInput) (*Response, error) {
	body := map[string]any{
		"client_secret": in.ClientSecret,
		"order_id":      in.OrderID,
		"amount": map[string]any{
			"currency": in.Currency,
			"value":    in.Value,
		},
	}
	if in.PaymentMethodID != "" {
		body["payment_method_id"] = in.PaymentMethodID
	}
	if len(in.Metadata) > 0 {
		body["metadata"] = in.Metadata
	}
	return c.Call(ctx, "/payments/confirm", body, http.MethodPost)
}

// WidgetConfirmer runs the widget's confirm step server-side, for embeds
// that cannot load the provider's hosted script. Details supplies the order
// and amount for the session token; the session token itself always wins as
// the client secret.
type WidgetConfirmer struct {
	Client  *Client
	Details func(ctx context.Context, token string) ConfirmInput
}

var _ widget.Confirmer = (*WidgetConfirmer)(nil)

func (w *WidgetConfirmer) Confirm(ctx context.Context, token string) (widget.Fields, error) {
	in := ConfirmInput{}
	if w.Details != nil {
		in = w.Details(ctx, token)
	}
	in.ClientSecret = token

	resp, err := w.Client.Confirm(ctx, in)
	if err != nil {
		return widget.Fields{}, err
	}

	// The provider wraps the interesting bits in a "data" envelope.
	data, _ := resp.Data["data"].(map[string]any)
	if data == nil {
		data = resp.Data
	}
	code, _ := data["code"].(string)
	status, _ := data["status"].(string)
	return widget.Fields{
		Token:   token,
		Code:    code,
		Status:  status,
		Payload: resp.RawBody,
	}, nil
}
