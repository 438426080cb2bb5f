package repository

import (
	"context"
	"errors"
	"fmt"

	"hardware-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type customerRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(pool *pgxpool.Pool, logger zerolog.Logger) CustomerRepository {
	return &customerRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "customer").Logger(),
	}
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	query := `
		SELECT id, email, name, phone, guest, created_at
		FROM customers
		WHERE id = $1
	`

	var c model.Customer
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.Guest, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("customer_id", id).Msg("customer not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("customer_id", id).Msg("failed to query customer")
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}

	return &c, nil
}

func (r *customerRepository) CreateGuest(ctx context.Context, tx pgx.Tx, customer *model.Customer) error {
	query := `
		INSERT INTO customers (email, name, phone, guest)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query, customer.Email, customer.Name, customer.Phone).
		Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to create guest customer")
		return fmt.Errorf("failed to create guest customer: %w", err)
	}
	customer.Guest = true

	r.logger.Debug().Int64("customer_id", customer.ID).Msg("guest customer created")
	return nil
}
