package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"hardware-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// ValidateProductsExist checks if all provided product IDs exist in the database.
func (r *productRepository) ValidateProductsExist(ctx context.Context, ids []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	query := `
		SELECT id
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to validate products exist")
		return fmt.Errorf("failed to validate products exist: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product id")
			return fmt.Errorf("failed to scan product id: %w", err)
		}
		found[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return fmt.Errorf("error iterating products: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, strconv.FormatInt(id, 10))
		}
	}

	if len(missing) > 0 {
		r.logger.Warn().
			Int("expected", len(ids)).
			Int("found", len(found)).
			Strs("missing", missing).
			Msg("not all product IDs exist")
		return model.NewValidationError(model.ErrCodeProductNotFound,
			"Products not found: "+strings.Join(missing, ", "), "lines")
	}

	return nil
}

// DecrementStock subtracts qty from the product's stock within the transaction.
func (r *productRepository) DecrementStock(ctx context.Context, tx pgx.Tx, productID int64, qty int) error {
	query := `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, productID, qty)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to decrement stock")
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.NewValidationError(model.ErrCodeProductNotFound,
			fmt.Sprintf("Product %d not found", productID), "lines")
	}

	return nil
}
