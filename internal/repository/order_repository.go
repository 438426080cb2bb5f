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

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// Create inserts a new order within the provided transaction. The number is
// left NULL until AssignNumber runs.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			customer_id, coupon_code, payment_method, subtotal, discount_base,
			discount_coupon, tax, shipping_cost, total, state, shipping_address
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.CustomerID,
		order.CouponCode,
		order.PaymentMethod,
		order.Subtotal,
		order.DiscountBase,
		order.DiscountCoupon,
		order.Tax,
		order.ShippingCost,
		order.Total,
		order.State,
		order.ShippingAddress,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("customer_id", order.CustomerID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Int64("order_id", order.ID).
		Msg("order created successfully")

	return nil
}

// AssignNumber sets the human readable order number.
func (r *orderRepository) AssignNumber(ctx context.Context, tx pgx.Tx, id int64, number string) error {
	query := `
		UPDATE orders
		SET number = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, number)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to assign order number")
		return fmt.Errorf("failed to assign order number: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to assign order number: order %d: %w", id, pgx.ErrNoRows)
	}

	return nil
}

// CreateLines inserts multiple order lines within the provided transaction.
func (r *orderRepository) CreateLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_lines (
			order_id, product_id, quantity, unit_price_charged,
			unit_price_original, unit_price_discounted, subtotal, price_note
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(query, l.OrderID, l.ProductID, l.Quantity, l.UnitPriceCharged,
			l.UnitPriceOriginal, l.UnitPriceDiscounted, l.Subtotal, l.PriceNote)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(lines); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", lines[i].OrderID).
				Int64("product_id", lines[i].ProductID).
				Msg("failed to create order line")
			return fmt.Errorf("failed to create order line: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(lines)).
		Msg("order lines created successfully")

	return nil
}

// UpdateState sets the order state.
func (r *orderRepository) UpdateState(ctx context.Context, tx pgx.Tx, id int64, state model.OrderState) error {
	query := `
		UPDATE orders
		SET state = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, state)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", id).Str("state", string(state)).Msg("failed to update order state")
		return fmt.Errorf("failed to update order state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update order state: order %d: %w", id, pgx.ErrNoRows)
	}

	return nil
}

// GetByID retrieves an order by its ID along with its lines.
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	orderQuery := `
		SELECT id, COALESCE(number, ''), customer_id, coupon_code, payment_method,
			subtotal, discount_base, discount_coupon, tax, shipping_cost, total,
			state, shipping_address, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order model.Order
	err := r.pool.QueryRow(ctx, orderQuery, id).Scan(
		&order.ID,
		&order.Number,
		&order.CustomerID,
		&order.CouponCode,
		&order.PaymentMethod,
		&order.Subtotal,
		&order.DiscountBase,
		&order.DiscountCoupon,
		&order.Tax,
		&order.ShippingCost,
		&order.Total,
		&order.State,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	linesQuery := `
		SELECT id, order_id, product_id, quantity, unit_price_charged,
			unit_price_original, unit_price_discounted, subtotal, price_note
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, linesQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", id).
			Msg("failed to query order lines")
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.OrderLine
		err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPriceCharged,
			&l.UnitPriceOriginal, &l.UnitPriceDiscounted, &l.Subtotal, &l.PriceNote)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order line row")
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		order.Lines = append(order.Lines, l)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order line rows")
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return &order, nil
}
