package checkout_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/monmi-labs/pay-gateway/internal/cart"
	"github.com/monmi-labs/pay-gateway/internal/checkout"
	"github.com/monmi-labs/pay-gateway/internal/common"
	"github.com/monmi-labs/pay-gateway/internal/order"
	"github.com/monmi-labs/pay-gateway/internal/session"
)

type fixture struct {
	finalizer *checkout.Finalizer
	orders    *order.MemoryStore
	carts     *cart.RedisStore
	sessions  *session.RedisStore
	nonces    *checkout.NonceStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		orders:   order.NewMemoryStore(),
		carts:    &cart.RedisStore{Client: client, TTL: time.Hour},
		sessions: &session.RedisStore{Client: client, TTL: time.Hour},
		nonces:   &checkout.NonceStore{Client: client, TTL: time.Hour},
	}
	f.finalizer = &checkout.Finalizer{
		Orders:    f.orders,
		Cart:      f.carts,
		Sessions:  f.sessions,
		Nonces:    f.nonces,
		ReturnURL: "https://shop.example.com/order-received",
		Log:       zerolog.Nop(),
	}
	return f
}

func (f *fixture) seedOrder(t *testing.T) *order.Order {
	t.Helper()
	o := &order.Order{Status: "new"}
	require.NoError(t, f.orders.Create(context.Background(), o))
	return o
}

func (f *fixture) validNonce(t *testing.T, shopperID string) string {
	t.Helper()
	nonce, err := f.nonces.Issue(context.Background(), shopperID)
	require.NoError(t, err)
	return nonce
}

func TestFinalizeOtherGatewayIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	o := f.seedOrder(t)

	_, err := f.finalizer.Finalize(context.Background(), checkout.Input{
		OrderID:       o.ID,
		PaymentMethod: "cod",
	})
	require.ErrorIs(t, err, checkout.ErrNotThisGateway)

	got, err := f.orders.LoadByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, "new", got.Status)
}

func TestFinalizeInvalidNonce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	o := f.seedOrder(t)

	_, err := f.finalizer.Finalize(context.Background(), checkout.Input{
		OrderID:       o.ID,
		ShopperID:     "shopper-1",
		PaymentMethod: checkout.GatewayID,
		Nonce:         "bogus",
		Token:         "tok_1",
	})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeValidation, appErr.Code)

	got, err := f.orders.LoadByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, "new", got.Status)
	require.Empty(t, got.GetMeta(order.MetaPaymentToken))
}

func TestFinalizeNonceBoundToShopper(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	o := f.seedOrder(t)
	nonce := f.validNonce(t, "shopper-1")

	_, err := f.finalizer.Finalize(context.Background(), checkout.Input{
		OrderID:       o.ID,
		ShopperID:     "shopper-2",
		PaymentMethod: checkout.GatewayID,
		Nonce:         nonce,
		Token:         "tok_1",
	})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeValidation, appErr.Code)
}

func TestFinalizeMissingTokenLeavesOrderUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	o := f.seedOrder(t)
	nonce := f.validNonce(t, "shopper-1")

	_, err := f.finalizer.Finalize(context.Background(), checkout.Input{
		OrderID:       o.ID,
		ShopperID:     "shopper-1",
		PaymentMethod: checkout.GatewayID,
		Nonce:         nonce,
		Token:         "   ",
	})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeValidation, appErr.Code)

	got, err := f.orders.LoadByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, "new", got.Status)
	require.Empty(t, got.Meta)
}

func TestFinalizeSuccessWritesMetadataAndClearsState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	o := f.seedOrder(t)
	nonce := f.validNonce(t, "shopper-1")

	require.NoError(t, f.carts.Save(ctx, "shopper-1", cart.Snapshot{Lines: []cart.Line{{Name: "Mug", UnitMinor: 437, Qty: 1}}}))
	require.NoError(t, f.sessions.Set(ctx, "shopper-1", &session.PaymentSession{Token: "tok_1"}))

	redirect, err := f.finalizer.Finalize(ctx, checkout.Input{
		OrderID:       o.ID,
		ShopperID:     "shopper-1",
		PaymentMethod: checkout.GatewayID,
		Nonce:         nonce,
		Token:         "tok_1",
		Code:          "c1",
		Status:        "Success",
		Payload:       `{"partnerTransactionId":"ptx-9","status":"authorised"}`,
	})
	require.NoError(t, err)
	require.Contains(t, redirect, "https://shop.example.com/order-received/")

	got, err := f.orders.LoadByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, got.Status)
	require.Equal(t, "tok_1", got.GetMeta(order.MetaPaymentToken))
	require.Equal(t, "c1", got.GetMeta(order.MetaPaymentCode))
	require.Equal(t, "c1", got.TransactionRef)
	require.Equal(t, "success", got.GetMeta(order.MetaPaymentStatus))
	require.Equal(t, "ptx-9", got.GetMeta(order.MetaPartnerTransactionID))
	require.Equal(t, "authorised", got.GetMeta(order.MetaGatewayStatus))
	require.NotEmpty(t, got.GetMeta(order.MetaPaymentPayload))
	require.Empty(t, got.GetMeta(order.MetaPaymentPayloadRaw))

	require.Len(t, got.Notes, 1)
	require.Contains(t, got.Notes[0].Text, "authorised payment at checkout")

	snap, err := f.carts.Load(ctx, "shopper-1")
	require.NoError(t, err)
	require.True(t, snap.Empty())

	sess, err := f.sessions.Get(ctx, "shopper-1")
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestFinalizeUnparseablePayloadKeptRaw(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	o := f.seedOrder(t)
	nonce := f.validNonce(t, "shopper-1")

	_, err := f.finalizer.Finalize(context.Background(), checkout.Input{
		OrderID:       o.ID,
		ShopperID:     "shopper-1",
		PaymentMethod: checkout.GatewayID,
		Nonce:         nonce,
		Token:         "tok_1",
		Status:        "processing",
		Payload:       "not-json{{",
	})
	require.NoError(t, err)

	got, err := f.orders.LoadByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, "not-json{{", got.GetMeta(order.MetaPaymentPayloadRaw))
	require.Empty(t, got.GetMeta(order.MetaPaymentPayload))
	require.Contains(t, got.Notes[0].Text, "payment initiated")
}

func TestFinalizeRefusesSecondSubmission(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	o := f.seedOrder(t)

	first := f.validNonce(t, "shopper-1")
	_, err := f.finalizer.Finalize(ctx, checkout.Input{
		OrderID:       o.ID,
		ShopperID:     "shopper-1",
		PaymentMethod: checkout.GatewayID,
		Nonce:         first,
		Token:         "tok_1",
	})
	require.NoError(t, err)

	second := f.validNonce(t, "shopper-1")
	_, err = f.finalizer.Finalize(ctx, checkout.Input{
		OrderID:       o.ID,
		ShopperID:     "shopper-1",
		PaymentMethod: checkout.GatewayID,
		Nonce:         second,
		Token:         "tok_2",
	})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	got, err := f.orders.LoadByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, "tok_1", got.GetMeta(order.MetaPaymentToken))
}

func TestNonceSingleUse(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	nonce := f.validNonce(t, "shopper-1")

	ok, err := f.nonces.Consume(ctx, nonce, "shopper-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.nonces.Consume(ctx, nonce, "shopper-1")
	require.NoError(t, err)
	require.False(t, ok)
}
