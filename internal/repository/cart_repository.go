package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func (r *cartRepository) DeactivateActive(ctx context.Context, customerID int64) (int64, error) {
	query := `
		UPDATE carts
		SET active = FALSE, updated_at = NOW()
		WHERE customer_id = $1 AND active
	`

	tag, err := r.pool.Exec(ctx, query, customerID)
	if err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Msg("failed to deactivate cart")
		return 0, fmt.Errorf("failed to deactivate cart: %w", err)
	}

	return tag.RowsAffected(), nil
}
