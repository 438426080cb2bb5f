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

type addressRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool *pgxpool.Pool, logger zerolog.Logger) AddressRepository {
	return &addressRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "address").Logger(),
	}
}

const addressColumns = `id, customer_id, street, number, unit, commune, region, postal_code, is_primary, created_at`

func scanAddress(row pgx.Row, a *model.Address) error {
	return row.Scan(&a.ID, &a.CustomerID, &a.Street, &a.Number, &a.Unit,
		&a.Commune, &a.Region, &a.PostalCode, &a.IsPrimary, &a.CreatedAt)
}

func (r *addressRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

func (r *addressRepository) GetByID(ctx context.Context, id int64) (*model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`

	var a model.Address
	if err := scanAddress(r.pool.QueryRow(ctx, query, id), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("address_id", id).Msg("address not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("address_id", id).Msg("failed to query address")
		return nil, fmt.Errorf("failed to query address: %w", err)
	}

	return &a, nil
}

func (r *addressRepository) ListByCustomer(ctx context.Context, customerID int64) ([]model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE customer_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Msg("failed to query addresses")
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		var a model.Address
		if err := scanAddress(rows, &a); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan address row")
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating address rows")
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

func (r *addressRepository) ClearPrimary(ctx context.Context, tx pgx.Tx, customerID int64) error {
	query := `
		UPDATE addresses
		SET is_primary = FALSE
		WHERE customer_id = $1 AND is_primary
	`

	if _, err := tx.Exec(ctx, query, customerID); err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Msg("failed to clear primary address")
		return fmt.Errorf("failed to clear primary address: %w", err)
	}
	return nil
}

func (r *addressRepository) Create(ctx context.Context, tx pgx.Tx, a *model.Address) error {
	query := `
		INSERT INTO addresses (customer_id, street, number, unit, commune, region, postal_code, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query, a.CustomerID, a.Street, a.Number, a.Unit,
		a.Commune, a.Region, a.PostalCode, a.IsPrimary).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn().Int64("customer_id", a.CustomerID).Msg("concurrent primary address change")
			return fmt.Errorf("failed to create address: %w", ErrConflict)
		}
		r.logger.Error().Err(err).Int64("customer_id", a.CustomerID).Msg("failed to create address")
		return fmt.Errorf("failed to create address: %w", err)
	}

	r.logger.Debug().
		Int64("address_id", a.ID).
		Bool("primary", a.IsPrimary).
		Msg("address created")
	return nil
}
