package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"hardware-checkout/internal/gateway"
	"hardware-checkout/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBuyOrder(t *testing.T) {
	assert.Equal(t, "OC42", BuyOrder(42))
}

func TestPaymentInitiator_Success(t *testing.T) {
	ctx := context.Background()
	payments := new(MockPaymentRepository)
	orders := new(MockOrderRepository)
	shipments := new(MockShipmentRepository)
	gw := new(MockGateway)
	tx := newCommittingTx()

	p := NewPaymentInitiator(payments, orders, shipments, gw, "https://shop.example/return", zerolog.Nop())
	order := &model.Order{ID: 42, Number: "PED-000042", Total: 39000, PaymentMethod: model.PaymentMethodWebpay, State: model.OrderPending}

	gw.On("CreateTransaction", ctx, mock.MatchedBy(func(r gateway.CreateRequest) bool {
		return r.Amount == 39000 && r.BuyOrder == "OC42" && r.SessionID != "" && r.ReturnURL == "https://shop.example/return"
	})).Return(&gateway.Transaction{
		Token:       "tok-1",
		RedirectURL: "https://pay.example/init?token_ws=tok-1",
		Raw:         json.RawMessage(`{"token":"tok-1"}`),
	}, nil)
	payments.On("BeginTx", ctx).Return(tx, nil)
	payments.On("Create", ctx, tx, mock.MatchedBy(func(p *model.Payment) bool {
		return p.State == model.PaymentPending && p.GatewayToken != nil && *p.GatewayToken == "tok-1" && p.Amount == 39000
	})).Return(nil)

	session, err := p.Initiate(ctx, order)

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/init?token_ws=tok-1", session.RedirectURL)
	assert.Equal(t, "OC42", session.Payment.BuyOrder)
	assert.Equal(t, model.OrderPending, order.State)
	assert.True(t, tx.committed)
	orders.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	payments.AssertExpectations(t)
}

func TestPaymentInitiator_GatewayFailureCompensates(t *testing.T) {
	ctx := context.Background()
	payments := new(MockPaymentRepository)
	orders := new(MockOrderRepository)
	shipments := new(MockShipmentRepository)
	gw := new(MockGateway)
	tx := newCommittingTx()

	p := NewPaymentInitiator(payments, orders, shipments, gw, "https://shop.example/return", zerolog.Nop())
	order := &model.Order{ID: 42, Number: "PED-000042", Total: 39000, State: model.OrderPending}

	gw.On("CreateTransaction", ctx, mock.Anything).Return(nil, &gateway.APIError{StatusCode: 400, Message: "invalid amount"})
	orders.On("BeginTx", ctx).Return(tx, nil)
	orders.On("UpdateState", ctx, tx, int64(42), model.OrderFailed).Return(nil)
	shipments.On("MarkFailed", ctx, tx, int64(42), mock.Anything).Return(nil)
	payments.On("Create", ctx, tx, mock.MatchedBy(func(p *model.Payment) bool {
		return p.State == model.PaymentFailed && p.GatewayToken == nil && json.Valid(p.RawGatewayPayload)
	})).Return(nil)

	session, err := p.Initiate(ctx, order)

	require.Error(t, err)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, model.ErrPaymentInitFailed)
	assert.Contains(t, err.Error(), "PED-000042")
	assert.Equal(t, model.OrderFailed, order.State)
	assert.True(t, tx.committed)
	orders.AssertExpectations(t)
	shipments.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestPaymentInitiator_CompensationFailure(t *testing.T) {
	ctx := context.Background()
	payments := new(MockPaymentRepository)
	orders := new(MockOrderRepository)
	shipments := new(MockShipmentRepository)
	gw := new(MockGateway)
	tx := new(MockTx)
	tx.On("Rollback", ctx).Return(nil)

	p := NewPaymentInitiator(payments, orders, shipments, gw, "", zerolog.Nop())
	order := &model.Order{ID: 42, Number: "PED-000042", Total: 39000, State: model.OrderPending}

	gw.On("CreateTransaction", ctx, mock.Anything).Return(nil, gateway.ErrUnavailable)
	orders.On("BeginTx", ctx).Return(tx, nil)
	orders.On("UpdateState", ctx, tx, int64(42), model.OrderFailed).Return(errors.New("connection lost"))

	_, err := p.Initiate(ctx, order)

	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrPaymentInitFailed))
	assert.True(t, tx.rolledBack)
}
