package service

import (
	"context"
	"encoding/json"

	"hardware-checkout/internal/model"
	"hardware-checkout/internal/pricing"
)

// AddressResolver turns checkout address input into a persisted address.
type AddressResolver interface {
	// Resolve returns the customer's existing address matching the input
	// after normalization, or creates a new one.
	Resolve(ctx context.Context, customerID int64, in model.AddressInput) (*model.Address, error)

	// ResolveByID returns a saved address owned by the customer.
	ResolveByID(ctx context.Context, customerID, addressID int64) (*model.Address, error)

	// ResolveGuest creates a transient customer and its detached address.
	ResolveGuest(ctx context.Context, guest model.GuestInput, in model.AddressInput) (*model.Customer, *model.Address, error)
}

// OrderDraft is everything OrderFactory needs to persist an order.
type OrderDraft struct {
	Customer      *model.Customer
	Address       *model.Address
	Quote         pricing.Quote
	PaymentMethod string
}

// OrderFactory persists orders.
type OrderFactory interface {
	// Create writes the order, assigns its number, records the lines and
	// decrements stock. A registered customer's cart is cleared afterwards.
	Create(ctx context.Context, draft OrderDraft) (*model.Order, error)
}

// ShipmentProvisioner registers shipments with the carrier.
type ShipmentProvisioner interface {
	// Provision never fails the checkout. The returned warning is non-empty
	// when the carrier did not issue a tracking number.
	Provision(ctx context.Context, order *model.Order, customer *model.Customer, address *model.Address) (*model.Shipment, string)
}

// PaymentSession is an opened gateway transaction.
type PaymentSession struct {
	Payment     *model.Payment
	RedirectURL string
}

// PaymentInitiator opens the gateway transaction for an order.
type PaymentInitiator interface {
	// Initiate returns model.ErrPaymentInitFailed after marking the order
	// FAILED when the gateway refuses or cannot be reached.
	Initiate(ctx context.Context, order *model.Order) (*PaymentSession, error)
}

// PaymentReconciler applies gateway reports to payments and orders.
type PaymentReconciler interface {
	HandleWebhook(ctx context.Context, n model.WebhookNotification, raw json.RawMessage) (*model.ReconcileResult, error)
	Confirm(ctx context.Context, token string) (*model.ReconcileResult, error)
}

// CheckoutService runs the checkout pipeline.
type CheckoutService interface {
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)
}

// OrderQueryService reads orders.
type OrderQueryService interface {
	GetByID(ctx context.Context, id int64) (*model.OrderDetail, error)
}
