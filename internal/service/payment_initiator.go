package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hardware-checkout/internal/gateway"
	"hardware-checkout/internal/model"
	"hardware-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type paymentInitiator struct {
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	shipments repository.ShipmentRepository
	gateway   gateway.Client
	returnURL string
	logger    zerolog.Logger
}

// NewPaymentInitiator creates a new payment initiator.
func NewPaymentInitiator(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	shipments repository.ShipmentRepository,
	client gateway.Client,
	returnURL string,
	logger zerolog.Logger,
) PaymentInitiator {
	return &paymentInitiator{
		payments:  payments,
		orders:    orders,
		shipments: shipments,
		gateway:   client,
		returnURL: returnURL,
		logger:    logger.With().Str("service", "payment_initiator").Logger(),
	}
}

// BuyOrder is the merchant reference sent to the gateway for an order.
func BuyOrder(orderID int64) string {
	return fmt.Sprintf("OC%d", orderID)
}

func (p *paymentInitiator) Initiate(ctx context.Context, order *model.Order) (*PaymentSession, error) {
	payment := &model.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Amount:    order.Total,
		Method:    order.PaymentMethod,
		BuyOrder:  BuyOrder(order.ID),
		SessionID: uuid.NewString(),
	}

	txn, gwErr := p.gateway.CreateTransaction(ctx, gateway.CreateRequest{
		Amount:    order.Total,
		BuyOrder:  payment.BuyOrder,
		SessionID: payment.SessionID,
		ReturnURL: p.returnURL,
	})
	if gwErr != nil {
		p.logger.Warn().
			Err(gwErr).
			Int64("order_id", order.ID).
			Str("buy_order", payment.BuyOrder).
			Msg("gateway refused transaction")
		if err := p.compensate(ctx, order, payment, gwErr); err != nil {
			p.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to mark order as failed")
			return nil, fmt.Errorf("failed to initiate payment: %w", err)
		}
		order.State = model.OrderFailed
		return nil, model.NewDomainError(model.ErrCodePaymentInitFailed,
			fmt.Sprintf("Payment could not be initiated, order %s was marked as failed", order.Number))
	}

	token := txn.Token
	payment.GatewayToken = &token
	payment.State = model.PaymentPending
	payment.RawGatewayPayload = txn.Raw

	if err := p.persist(ctx, payment); err != nil {
		p.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to record payment")
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	p.logger.Info().
		Int64("order_id", order.ID).
		Str("payment_id", payment.ID.String()).
		Str("buy_order", payment.BuyOrder).
		Msg("payment initiated")

	return &PaymentSession{Payment: payment, RedirectURL: txn.RedirectURL}, nil
}

func (p *paymentInitiator) persist(ctx context.Context, payment *model.Payment) (err error) {
	tx, err := p.payments.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				p.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = p.payments.Create(ctx, tx, payment); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// compensate fails the order, its shipment and the payment attempt together.
func (p *paymentInitiator) compensate(ctx context.Context, order *model.Order, payment *model.Payment, cause error) (err error) {
	tx, err := p.orders.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				p.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = p.orders.UpdateState(ctx, tx, order.ID, model.OrderFailed); err != nil {
		return err
	}
	if err = p.shipments.MarkFailed(ctx, tx, order.ID, "payment initiation failed"); err != nil {
		return err
	}

	raw, err := json.Marshal(map[string]string{"error": cause.Error()})
	if err != nil {
		return err
	}
	payment.State = model.PaymentFailed
	payment.RawGatewayPayload = raw
	if err = p.payments.Create(ctx, tx, payment); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
