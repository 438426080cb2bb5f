package service

import (
	"context"
	"errors"
	"fmt"

	"hardware-checkout/internal/model"
	"hardware-checkout/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type orderFactory struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	carts    repository.CartRepository
	logger   zerolog.Logger
}

// NewOrderFactory creates a new order factory.
func NewOrderFactory(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	carts repository.CartRepository,
	logger zerolog.Logger,
) OrderFactory {
	return &orderFactory{
		orders:   orders,
		products: products,
		carts:    carts,
		logger:   logger.With().Str("service", "order_factory").Logger(),
	}
}

func (f *orderFactory) Create(ctx context.Context, draft OrderDraft) (order *model.Order, err error) {
	q := draft.Quote

	var couponCode *string
	if q.Coupon != nil {
		code := q.Coupon.Code
		couponCode = &code
	}

	order = &model.Order{
		CustomerID:      draft.Customer.ID,
		CouponCode:      couponCode,
		PaymentMethod:   draft.PaymentMethod,
		Subtotal:        q.SubtotalBase,
		DiscountBase:    q.DiscountBase,
		DiscountCoupon:  q.DiscountCoupon,
		Tax:             q.Tax,
		ShippingCost:    q.ShippingCost,
		Total:           q.TotalFinal,
		State:           model.OrderPending,
		ShippingAddress: draft.Address.Snapshot(),
	}

	tx, err := f.orders.BeginTx(ctx)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				f.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = f.orders.Create(ctx, tx, order); err != nil {
		f.logger.Error().Err(err).Int64("customer_id", order.CustomerID).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	order.Number = model.FormatOrderNumber(order.ID)
	if err = f.orders.AssignNumber(ctx, tx, order.ID, order.Number); err != nil {
		f.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to assign order number")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	lines := make([]model.OrderLine, len(q.Lines))
	for i, pl := range q.Lines {
		lines[i] = model.OrderLine{
			OrderID:             order.ID,
			ProductID:           pl.ProductID,
			Quantity:            pl.Quantity,
			UnitPriceCharged:    pl.EffectivePrice,
			UnitPriceOriginal:   pl.UnitPriceOriginal,
			UnitPriceDiscounted: pl.UnitPriceDiscounted,
			Subtotal:            pl.Subtotal,
			PriceNote:           pl.PriceNote,
		}
	}

	if err = f.orders.CreateLines(ctx, tx, lines); err != nil {
		f.logger.Error().
			Err(err).
			Int64("order_id", order.ID).
			Int("line_count", len(lines)).
			Msg("failed to create order lines")
		return nil, fmt.Errorf("failed to create order lines: %w", err)
	}

	for _, line := range lines {
		if err = f.products.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			f.logger.Error().
				Err(err).
				Int64("order_id", order.ID).
				Int64("product_id", line.ProductID).
				Msg("failed to decrement stock")
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		f.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	order.Lines = lines

	if !draft.Customer.Guest {
		n, cartErr := f.carts.DeactivateActive(ctx, draft.Customer.ID)
		if cartErr != nil {
			f.logger.Warn().Err(cartErr).Int64("customer_id", draft.Customer.ID).Msg("failed to clear cart")
		} else {
			f.logger.Debug().Int64("customer_id", draft.Customer.ID).Int64("carts", n).Msg("cart cleared")
		}
	}

	f.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.Number).
		Int64("total", order.Total).
		Int("line_count", len(lines)).
		Msg("order created successfully")

	return order, nil
}
