package service

import (
	"context"
	"fmt"

	"hardware-checkout/internal/coupon"
	"hardware-checkout/internal/model"
	"hardware-checkout/internal/pricing"
	"hardware-checkout/internal/repository"
	"hardware-checkout/internal/shipping"

	"github.com/rs/zerolog"
)

// Pricer prices a cart snapshot.
type Pricer interface {
	Price(in pricing.Input) pricing.Quote
}

type checkoutService struct {
	products    repository.ProductRepository
	customers   repository.CustomerRepository
	addresses   AddressResolver
	factory     OrderFactory
	provisioner ShipmentProvisioner
	initiator   PaymentInitiator
	pricer      Pricer
	rates       *shipping.RateTable
	logger      zerolog.Logger
}

// CheckoutDeps groups the collaborators of the checkout pipeline.
type CheckoutDeps struct {
	Products    repository.ProductRepository
	Customers   repository.CustomerRepository
	Addresses   AddressResolver
	Factory     OrderFactory
	Provisioner ShipmentProvisioner
	Initiator   PaymentInitiator
	Pricer      Pricer
	Rates       *shipping.RateTable
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(deps CheckoutDeps, logger zerolog.Logger) CheckoutService {
	return &checkoutService{
		products:    deps.Products,
		customers:   deps.Customers,
		addresses:   deps.Addresses,
		factory:     deps.Factory,
		provisioner: deps.Provisioner,
		initiator:   deps.Initiator,
		pricer:      deps.Pricer,
		rates:       deps.Rates,
		logger:      logger.With().Str("service", "checkout").Logger(),
	}
}

// Checkout runs pricing, address resolution, order creation, shipment
// provisioning and payment initiation in that order.
func (s *checkoutService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	productIDs := make([]int64, len(req.Lines))
	for i, line := range req.Lines {
		productIDs[i] = line.ProductID
	}
	if err := s.products.ValidateProductsExist(ctx, productIDs); err != nil {
		s.logger.Warn().
			Int("product_count", len(productIDs)).
			Err(err).
			Msg("product validation failed")
		return nil, err
	}

	customer, address, err := s.resolveBuyer(ctx, req)
	if err != nil {
		return nil, err
	}

	couponCode := ""
	if req.CouponCode != nil {
		couponCode = *req.CouponCode
	}

	quote := s.pricer.Price(pricing.Input{
		Lines:        req.Lines,
		CouponCode:   couponCode,
		ShippingCost: s.rates.CostFor(address.Region),
	})
	if couponCode != "" && quote.Coupon == nil {
		s.logger.Info().Str("coupon_code", couponCode).Msg("coupon not applicable, ignored")
	}

	order, err := s.factory.Create(ctx, OrderDraft{
		Customer:      customer,
		Address:       address,
		Quote:         quote,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return nil, err
	}

	// the order is committed, the remaining steps run to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	shipment, warning := s.provisioner.Provision(ctx, order, customer, address)

	session, err := s.initiator.Initiate(ctx, order)
	if err != nil {
		return nil, err
	}

	resp := &model.CheckoutResponse{
		OrderID:         order.ID,
		OrderNumber:     order.Number,
		Subtotal:        order.Subtotal,
		DiscountBase:    order.DiscountBase,
		DiscountCoupon:  order.DiscountCoupon,
		Tax:             order.Tax,
		ShippingCost:    order.ShippingCost,
		Total:           order.Total,
		Status:          order.State,
		PayURL:          session.RedirectURL,
		CouponApplied:   quote.Coupon != nil,
		ShipmentWarning: warning,
	}
	if session.Payment.GatewayToken != nil {
		resp.PaymentToken = *session.Payment.GatewayToken
	}
	if shipment != nil && shipment.TrackingNumber != nil {
		resp.TrackingNumber = *shipment.TrackingNumber
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.Number).
		Int64("total", order.Total).
		Bool("guest", customer.Guest).
		Msg("checkout completed")

	return resp, nil
}

// resolveBuyer loads or creates the customer and resolves the shipping address.
func (s *checkoutService) resolveBuyer(ctx context.Context, req *model.CheckoutRequest) (*model.Customer, *model.Address, error) {
	if req.Guest != nil {
		customer, address, err := s.addresses.ResolveGuest(ctx, *req.Guest, *req.Address)
		if err != nil {
			return nil, nil, err
		}
		customer.Guest = true
		return customer, address, nil
	}

	customer, err := s.customers.GetByID(ctx, *req.CustomerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer == nil {
		s.logger.Warn().Int64("customer_id", *req.CustomerID).Msg("customer not found")
		return nil, nil, model.ErrCustomerNotFound
	}

	var address *model.Address
	if req.AddressID != nil {
		address, err = s.addresses.ResolveByID(ctx, customer.ID, *req.AddressID)
	} else {
		address, err = s.addresses.Resolve(ctx, customer.ID, *req.Address)
	}
	if err != nil {
		return nil, nil, err
	}
	return customer, address, nil
}

// validateRequest rejects requests before anything is persisted.
func (s *checkoutService) validateRequest(req *model.CheckoutRequest) error {
	if req == nil {
		return model.NewValidationError(model.ErrCodeValidation, "checkout request is empty")
	}

	if len(req.Lines) == 0 {
		return model.NewValidationError(model.ErrCodeEmptyCart, model.ErrEmptyCart.Message, "lines")
	}
	if len(req.Lines) > model.MaxCartLines {
		return model.NewValidationError(model.ErrCodeValidation,
			fmt.Sprintf("cart cannot hold more than %d lines", model.MaxCartLines), "lines")
	}

	for i, line := range req.Lines {
		if line.ProductID <= 0 {
			return model.NewValidationError(model.ErrCodeValidation,
				fmt.Sprintf("line %d: product id is required", i), fmt.Sprintf("lines[%d].productId", i))
		}
		if line.Quantity <= 0 {
			s.logger.Warn().
				Int("line_index", i).
				Int64("product_id", line.ProductID).
				Int("quantity", line.Quantity).
				Msg("invalid quantity")
			return model.NewValidationError(model.ErrCodeInvalidQuantity,
				fmt.Sprintf("line %d: quantity must be greater than zero", i), fmt.Sprintf("lines[%d].quantity", i))
		}
		if line.Quantity > model.MaxLineQuantity {
			return model.NewValidationError(model.ErrCodeInvalidQuantity,
				fmt.Sprintf("line %d: quantity cannot exceed %d", i, model.MaxLineQuantity), fmt.Sprintf("lines[%d].quantity", i))
		}
		if line.UnitPriceOriginal < 0 || line.UnitPriceOriginal > model.MaxUnitPrice {
			return model.NewValidationError(model.ErrCodeValidation,
				fmt.Sprintf("line %d: unit price out of range", i), fmt.Sprintf("lines[%d].unitPriceOriginal", i))
		}
		if line.UnitPriceDiscounted < 0 || line.UnitPriceDiscounted > model.MaxUnitPrice {
			return model.NewValidationError(model.ErrCodeValidation,
				fmt.Sprintf("line %d: unit price out of range", i), fmt.Sprintf("lines[%d].unitPriceDiscounted", i))
		}
	}

	if req.CouponCode != nil {
		if err := coupon.ValidateFormat(*req.CouponCode); err != nil {
			s.logger.Warn().Str("coupon_code", *req.CouponCode).Msg("malformed coupon code")
			return err
		}
	}

	switch {
	case req.CustomerID == nil && req.Guest == nil:
		return model.NewValidationError(model.ErrCodeValidation,
			"either customerId or guest is required", "customerId", "guest")
	case req.CustomerID != nil && req.Guest != nil:
		return model.NewValidationError(model.ErrCodeValidation,
			"customerId and guest are mutually exclusive", "customerId", "guest")
	}

	switch {
	case req.AddressID == nil && req.Address == nil:
		return model.NewValidationError(model.ErrCodeInvalidAddress,
			"a shipping address is required", "address")
	case req.AddressID != nil && req.Address != nil:
		return model.NewValidationError(model.ErrCodeInvalidAddress,
			"addressId and address are mutually exclusive", "addressId", "address")
	case req.Guest != nil && req.Address == nil:
		return model.NewValidationError(model.ErrCodeInvalidAddress,
			"guest checkout requires a full address", "address")
	}

	if req.Address != nil {
		if missing := req.Address.MissingFields(); len(missing) > 0 {
			return model.NewValidationError(model.ErrCodeInvalidAddress,
				"Shipping address is missing required fields", missing...)
		}
	}

	return nil
}
