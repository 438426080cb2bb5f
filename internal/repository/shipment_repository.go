package repository

import (
	"context"
	"errors"
	"fmt"

	"hardware-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type shipmentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewShipmentRepository creates a new PostgreSQL-backed shipment repository.
func NewShipmentRepository(pool *pgxpool.Pool, logger zerolog.Logger) ShipmentRepository {
	return &shipmentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "shipment").Logger(),
	}
}

func (r *shipmentRepository) Create(ctx context.Context, s *model.Shipment) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	query := `
		INSERT INTO shipments (id, order_id, carrier, tracking_number, cost_estimate, state, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, s.ID, s.OrderID, s.Carrier, s.TrackingNumber,
		s.CostEstimate, s.State, s.LastError).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create shipment: %w", ErrConflict)
		}
		r.logger.Error().Err(err).Int64("order_id", s.OrderID).Msg("failed to create shipment")
		return fmt.Errorf("failed to create shipment: %w", err)
	}

	return nil
}

func (r *shipmentRepository) MarkFailed(ctx context.Context, tx pgx.Tx, orderID int64, reason string) error {
	query := `
		UPDATE shipments
		SET state = 'FAILED', last_error = $2, updated_at = NOW()
		WHERE order_id = $1
	`

	if _, err := tx.Exec(ctx, query, orderID, reason); err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to mark shipment failed")
		return fmt.Errorf("failed to mark shipment failed: %w", err)
	}
	return nil
}

func (r *shipmentRepository) GetByOrder(ctx context.Context, orderID int64) (*model.Shipment, error) {
	query := `
		SELECT id, order_id, carrier, tracking_number, cost_estimate, state, last_error, created_at, updated_at
		FROM shipments
		WHERE order_id = $1
	`

	var s model.Shipment
	err := r.pool.QueryRow(ctx, query, orderID).Scan(&s.ID, &s.OrderID, &s.Carrier, &s.TrackingNumber,
		&s.CostEstimate, &s.State, &s.LastError, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query shipment")
		return nil, fmt.Errorf("failed to query shipment: %w", err)
	}
	return &s, nil
}
