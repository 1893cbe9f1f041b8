// Package order defines the order entity as seen by the payment gateway:
// status lifecycle, payment metadata and the store contract. Only the fields
// the gateway reads or writes are modeled here.
package order

import (
	"context"
	"errors"
	"time"
)

// Order statuses the gateway transitions between. Pending means finalized at
// checkout but awaiting webhook confirmation; paid and failed are terminal.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// Payment metadata keys. The underscore prefix marks them as gateway-private.
const (
	MetaPaymentToken         = "_monmi_payment_token"
	MetaPaymentCode          = "_monmi_payment_code"
	MetaPaymentStatus        = "_monmi_payment_status"
	MetaPaymentPayload       = "_monmi_payment_payload"
	MetaPaymentPayloadRaw    = "_monmi_payment_payload_raw"
	MetaPartnerTransactionID = "_monmi_partner_transaction_id"
	MetaGatewayStatus        = "_monmi_gateway_status"
	MetaWebhookPayload       = "_monmi_webhook_payload"
)

var (
	// ErrNotFound means no order matched the lookup.
	ErrNotFound = errors.New("order: not found")
	// ErrVersionConflict means a concurrent writer saved the order first.
	ErrVersionConflict = errors.New("order: version conflict")
)

// Note is an append-only audit entry.
type Note struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Order carries the payment-relevant slice of an order.
type Order struct {
	ID             int64
	Status         string
	TransactionRef string
	Meta           map[string]string
	Notes          []Note
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GetMeta returns a metadata value, empty string when unset.
func (o *Order) GetMeta(key string) string {
	if o.Meta == nil {
		return ""
	}
	return o.Meta[key]
}

// SetMeta writes a metadata value, allocating the map on first use.
func (o *Order) SetMeta(key, value string) {
	if o.Meta == nil {
		o.Meta = map[string]string{}
	}
	o.Meta[key] = value
}

// AddNote appends an audit note. Notes are never removed.
func (o *Order) AddNote(text string) {
	o.Notes = append(o.Notes, Note{At: time.Now().UTC(), Text: text})
}

// IsPaid reports whether the order already reached the paid state.
func (o *Order) IsPaid() bool { return o.Status == StatusPaid }

// Store is the persistence contract for orders. Save enforces optimistic
// concurrency: it fails with ErrVersionConflict unless the stored version
// matches the loaded one, and bumps the version on success.
type Store interface {
	Create(ctx context.Context, o *Order) error
	LoadByID(ctx context.Context, id int64) (*Order, error)
	LoadByMeta(ctx context.Context, key, value string) (*Order, error)
	Save(ctx context.Context, o *Order) error
	PendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
}
