package service

import (
	"context"
	"fmt"

	"hardware-checkout/internal/model"
	"hardware-checkout/internal/repository"

	"github.com/rs/zerolog"
)

type orderQueryService struct {
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	shipments repository.ShipmentRepository
	logger    zerolog.Logger
}

// NewOrderQueryService creates a new order query service.
func NewOrderQueryService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	shipments repository.ShipmentRepository,
	logger zerolog.Logger,
) OrderQueryService {
	return &orderQueryService{
		orders:    orders,
		payments:  payments,
		shipments: shipments,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// GetByID retrieves an order with its lines, latest payment and shipment.
func (s *orderQueryService) GetByID(ctx context.Context, id int64) (*model.OrderDetail, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Int64("order_id", id).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	payment, err := s.payments.LatestByOrder(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to get payment")
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	shipment, err := s.shipments.GetByOrder(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to get shipment")
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	return &model.OrderDetail{
		Order:    order,
		Payment:  payment,
		Shipment: shipment,
	}, nil
}
