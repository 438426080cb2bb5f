package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hardware-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

const paymentColumns = `id, order_id, amount, method, buy_order, session_id, gateway_token,
	gateway_transaction_id, state, raw_gateway_payload, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var raw []byte
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.BuyOrder, &p.SessionID,
		&p.GatewayToken, &p.GatewayTransactionID, &p.State, &raw, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		p.RawGatewayPayload = json.RawMessage(raw)
	}
	return &p, nil
}

// nullableJSON keeps empty payloads out of the JSONB column.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func (r *paymentRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

func (r *paymentRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO payments (
			id, order_id, amount, method, buy_order, session_id,
			gateway_token, gateway_transaction_id, state, raw_gateway_payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query, p.ID, p.OrderID, p.Amount, p.Method, p.BuyOrder, p.SessionID,
		p.GatewayToken, p.GatewayTransactionID, p.State, nullableJSON(p.RawGatewayPayload),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn().Str("buy_order", p.BuyOrder).Msg("payment reference already used")
			return fmt.Errorf("failed to create payment: %w", ErrConflict)
		}
		r.logger.Error().Err(err).Int64("order_id", p.OrderID).Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}

	r.logger.Debug().
		Str("payment_id", p.ID.String()).
		Int64("order_id", p.OrderID).
		Str("state", string(p.State)).
		Msg("payment created")
	return nil
}

func (r *paymentRepository) GetByTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_token = $1 FOR UPDATE`

	p, err := scanPayment(tx.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Msg("payment not found for token")
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query payment by token")
		return nil, fmt.Errorf("failed to query payment by token: %w", err)
	}
	return p, nil
}

func (r *paymentRepository) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, gatewayTransactionID, buyOrder string) (*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE gateway_transaction_id = $1
			OR (gateway_transaction_id IS NULL AND buy_order = $2)
		ORDER BY (gateway_transaction_id = $1) DESC NULLS LAST
		LIMIT 1
		FOR UPDATE
	`

	p, err := scanPayment(tx.QueryRow(ctx, query, gatewayTransactionID, buyOrder))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().
				Str("gateway_transaction_id", gatewayTransactionID).
				Str("buy_order", buyOrder).
				Msg("payment not found for reference")
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query payment by reference")
		return nil, fmt.Errorf("failed to query payment by reference: %w", err)
	}
	return p, nil
}

func (r *paymentRepository) ApplyTransition(ctx context.Context, tx pgx.Tx, id uuid.UUID, state model.PaymentState, gatewayTransactionID *string, raw json.RawMessage) (bool, error) {
	query := `
		UPDATE payments
		SET state = $2,
			gateway_transaction_id = COALESCE(gateway_transaction_id, $3),
			raw_gateway_payload = COALESCE($4, raw_gateway_payload),
			updated_at = NOW()
		WHERE id = $1 AND state = 'PENDING'
	`

	tag, err := tx.Exec(ctx, query, id, state, gatewayTransactionID, nullableJSON(raw))
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn().Str("payment_id", id.String()).Msg("gateway transaction id already bound to another payment")
			return false, fmt.Errorf("failed to apply payment transition: %w", ErrConflict)
		}
		r.logger.Error().Err(err).Str("payment_id", id.String()).Msg("failed to apply payment transition")
		return false, fmt.Errorf("failed to apply payment transition: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) LatestByOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`

	p, err := scanPayment(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query payment")
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}
	return p, nil
}
