package repository

import (
	"context"
	"encoding/json"

	"hardware-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Lookups return (nil, nil) when the row does not exist.

// ProductRepository defines the product operations checkout needs.
type ProductRepository interface {
	// ValidateProductsExist returns model.ErrProductNotFound naming the
	// missing ids when any of them is unknown.
	ValidateProductsExist(ctx context.Context, ids []int64) error

	// DecrementStock subtracts qty from the product's stock. There is no floor
	// check, concurrent checkouts can drive stock negative.
	DecrementStock(ctx context.Context, tx pgx.Tx, productID int64, qty int) error
}

// CustomerRepository defines customer data access.
type CustomerRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Customer, error)

	// CreateGuest inserts a transient customer for an anonymous checkout.
	CreateGuest(ctx context.Context, tx pgx.Tx, customer *model.Customer) error
}

// AddressRepository defines address data access.
type AddressRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	GetByID(ctx context.Context, id int64) (*model.Address, error)

	// ListByCustomer returns every address owned by the customer, oldest first.
	ListByCustomer(ctx context.Context, customerID int64) ([]model.Address, error)

	// ClearPrimary unsets the primary flag on the customer's current primary address.
	ClearPrimary(ctx context.Context, tx pgx.Tx, customerID int64) error

	// Create inserts the address and fills its id and creation time.
	Create(ctx context.Context, tx pgx.Tx, address *model.Address) error
}

// CartRepository defines cart operations.
type CartRepository interface {
	// DeactivateActive soft-deletes the customer's active carts and reports how many changed.
	DeactivateActive(ctx context.Context, customerID int64) (int64, error)
}

// OrderRepository defines order data access.
type OrderRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts the order without a number and fills its generated id.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// AssignNumber stores the human readable number derived from the id.
	AssignNumber(ctx context.Context, tx pgx.Tx, id int64, number string) error

	// CreateLines inserts the order lines in one batch.
	CreateLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error

	UpdateState(ctx context.Context, tx pgx.Tx, id int64, state model.OrderState) error

	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, id int64) (*model.Order, error)
}

// PaymentRepository defines payment data access.
type PaymentRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	Create(ctx context.Context, tx pgx.Tx, payment *model.Payment) error

	// GetByTokenForUpdate loads and row-locks the payment created with the gateway token.
	GetByTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (*model.Payment, error)

	// GetByReferenceForUpdate loads and row-locks the payment matching the
	// gateway transaction id, falling back to the buy order reference for
	// payments whose transaction id is not known yet.
	GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, gatewayTransactionID, buyOrder string) (*model.Payment, error)

	// ApplyTransition moves a PENDING payment to state. It reports false when
	// the payment was no longer PENDING, which makes the transition apply at most once.
	ApplyTransition(ctx context.Context, tx pgx.Tx, id uuid.UUID, state model.PaymentState, gatewayTransactionID *string, raw json.RawMessage) (bool, error)

	// LatestByOrder returns the most recent payment for the order.
	LatestByOrder(ctx context.Context, orderID int64) (*model.Payment, error)
}

// ShipmentRepository defines shipment data access.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *model.Shipment) error

	// MarkFailed flags the order's shipment as FAILED with a reason.
	MarkFailed(ctx context.Context, tx pgx.Tx, orderID int64, reason string) error

	GetByOrder(ctx context.Context, orderID int64) (*model.Shipment, error)
}
