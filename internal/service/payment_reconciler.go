package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hardware-checkout/internal/cache"
	"hardware-checkout/internal/gateway"
	"hardware-checkout/internal/model"
	"hardware-checkout/internal/notify"
	"hardware-checkout/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type paymentReconciler struct {
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	shipments repository.ShipmentRepository
	gateway   gateway.Client
	notifier  notify.Notifier
	guard     cache.ReplayGuard
	logger    zerolog.Logger
}

// NewPaymentReconciler creates a new payment reconciler.
func NewPaymentReconciler(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	shipments repository.ShipmentRepository,
	client gateway.Client,
	notifier notify.Notifier,
	guard cache.ReplayGuard,
	logger zerolog.Logger,
) PaymentReconciler {
	return &paymentReconciler{
		payments:  payments,
		orders:    orders,
		customers: customers,
		shipments: shipments,
		gateway:   client,
		notifier:  notifier,
		guard:     guard,
		logger:    logger.With().Str("service", "reconciler").Logger(),
	}
}

// report is a gateway verdict on a payment.
type report struct {
	status        model.GatewayStatus
	transactionID string
	raw           json.RawMessage
}

// lookupFunc locks the payment a report refers to.
type lookupFunc func(ctx context.Context, tx pgx.Tx) (*model.Payment, error)

func (r *paymentReconciler) HandleWebhook(ctx context.Context, n model.WebhookNotification, raw json.RawMessage) (*model.ReconcileResult, error) {
	key := cache.DeliveryKey(n.GatewayPaymentID, string(n.Status))

	seen, err := r.guard.Seen(ctx, key)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("replay guard unavailable, falling back to database")
	}
	if seen {
		r.logger.Info().
			Str("gateway_payment_id", n.GatewayPaymentID).
			Str("status", string(n.Status)).
			Msg("duplicate webhook delivery")
		return &model.ReconcileResult{Outcome: model.OutcomeAlreadyProcessed}, nil
	}

	result, err := r.apply(ctx, report{
		status:        n.Status,
		transactionID: n.GatewayPaymentID,
		raw:           raw,
	}, func(ctx context.Context, tx pgx.Tx) (*model.Payment, error) {
		return r.payments.GetByReferenceForUpdate(ctx, tx, n.GatewayPaymentID, n.ExternalReference)
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome != model.OutcomeIgnored {
		if err := r.guard.Mark(ctx, key); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("failed to record webhook delivery")
		}
	}
	return result, nil
}

func (r *paymentReconciler) Confirm(ctx context.Context, token string) (*model.ReconcileResult, error) {
	byToken := func(ctx context.Context, tx pgx.Tx) (*model.Payment, error) {
		return r.payments.GetByTokenForUpdate(ctx, tx, token)
	}

	// a terminal payment is answered from the database without calling the gateway
	current, err := r.peek(ctx, byToken)
	if err != nil {
		return nil, err
	}
	if current == nil {
		r.logger.Warn().Msg("confirm for unknown token")
		return nil, model.ErrPaymentNotFound
	}
	if current.State.Terminal() {
		return r.result(ctx, model.OutcomeAlreadyProcessed, current)
	}

	conf := r.gateway.ConfirmTransaction(ctx, token)

	var rep report
	switch conf.Status {
	case gateway.ConfirmApproved, gateway.ConfirmRejected:
		rep = report{status: conf.GatewayStatus, transactionID: conf.TransactionID, raw: conf.Raw}
	case gateway.ConfirmAlreadyProcessed:
		status, err := r.gateway.TransactionStatus(ctx, token)
		if err != nil {
			r.logger.Error().Err(err).Str("payment_id", current.ID.String()).Msg("failed to read transaction status")
			return nil, model.ErrGatewayUnavailable
		}
		rep = report{status: status.Status, transactionID: status.TransactionID, raw: status.Raw}
	default:
		r.logger.Error().Err(conf.Err).Str("payment_id", current.ID.String()).Msg("gateway confirmation failed")
		return nil, model.ErrGatewayUnavailable
	}

	return r.apply(ctx, rep, byToken)
}

func (r *paymentReconciler) peek(ctx context.Context, lookup lookupFunc) (*model.Payment, error) {
	tx, err := r.payments.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	payment, err := lookup(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return payment, nil
}

// apply performs at most one PENDING to terminal transition under a row lock.
func (r *paymentReconciler) apply(ctx context.Context, rep report, lookup lookupFunc) (result *model.ReconcileResult, err error) {
	tx, err := r.payments.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	payment, err := lookup(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}
	if payment == nil {
		r.logger.Warn().Str("transaction_id", rep.transactionID).Msg("payment not found for gateway report")
		return nil, model.ErrPaymentNotFound
	}

	if payment.State.Terminal() {
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to reconcile payment: %w", err)
		}
		return r.result(ctx, model.OutcomeAlreadyProcessed, payment)
	}

	transition, ok := model.TransitionFor(rep.status)
	if !ok {
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to reconcile payment: %w", err)
		}
		r.logger.Info().
			Str("payment_id", payment.ID.String()).
			Str("status", string(rep.status)).
			Msg("non-terminal gateway status acknowledged")
		return r.result(ctx, model.OutcomeIgnored, payment)
	}

	var txID *string
	if rep.transactionID != "" {
		id := rep.transactionID
		txID = &id
	}

	applied, err := r.payments.ApplyTransition(ctx, tx, payment.ID, transition.Payment, txID, rep.raw)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}
	if !applied {
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to reconcile payment: %w", err)
		}
		return r.result(ctx, model.OutcomeAlreadyProcessed, payment)
	}

	if err = r.orders.UpdateState(ctx, tx, payment.OrderID, transition.Order); err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	payment.State = transition.Payment
	r.logger.Info().
		Str("payment_id", payment.ID.String()).
		Int64("order_id", payment.OrderID).
		Str("payment_state", string(transition.Payment)).
		Str("order_state", string(transition.Order)).
		Msg("payment reconciled")

	result, err = r.result(ctx, model.OutcomeApplied, payment)
	if err != nil {
		return nil, err
	}

	if transition.Payment == model.PaymentApproved {
		r.sendConfirmation(context.WithoutCancel(ctx), payment.OrderID)
	}
	return result, nil
}

func (r *paymentReconciler) result(ctx context.Context, outcome model.ReconcileOutcome, payment *model.Payment) (*model.ReconcileResult, error) {
	order, err := r.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return &model.ReconcileResult{
		Outcome:       outcome,
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		OrderStatus:   order.State,
		PaymentStatus: payment.State,
	}, nil
}

// sendConfirmation is best effort, a failed email never undoes the payment.
func (r *paymentReconciler) sendConfirmation(ctx context.Context, orderID int64) {
	order, err := r.orders.GetByID(ctx, orderID)
	if err != nil || order == nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("cannot load order for confirmation email")
		return
	}
	customer, err := r.customers.GetByID(ctx, order.CustomerID)
	if err != nil || customer == nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("cannot load customer for confirmation email")
		return
	}

	msg := notify.OrderConfirmation{
		Email:        customer.Email,
		CustomerName: customer.Name,
		OrderNumber:  order.Number,
		Total:        order.Total,
	}
	if shipment, err := r.shipments.GetByOrder(ctx, orderID); err == nil && shipment != nil && shipment.TrackingNumber != nil {
		msg.TrackingNumber = *shipment.TrackingNumber
	}

	if !r.notifier.SendOrderConfirmation(ctx, msg) {
		r.logger.Warn().Int64("order_id", orderID).Msg("order confirmation email not sent")
	}
}
