package service

import (
	"context"
	"errors"
	"fmt"

	"hardware-checkout/internal/model"
	"hardware-checkout/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type addressResolver struct {
	addresses repository.AddressRepository
	customers repository.CustomerRepository
	logger    zerolog.Logger
}

// NewAddressResolver creates a new address resolver.
func NewAddressResolver(
	addresses repository.AddressRepository,
	customers repository.CustomerRepository,
	logger zerolog.Logger,
) AddressResolver {
	return &addressResolver{
		addresses: addresses,
		customers: customers,
		logger:    logger.With().Str("service", "address").Logger(),
	}
}

func validateAddress(in model.AddressInput) error {
	if missing := in.MissingFields(); len(missing) > 0 {
		return model.NewValidationError(model.ErrCodeInvalidAddress,
			"Shipping address is missing required fields", missing...)
	}
	return nil
}

// sameAddress compares the fields that identify a destination.
func sameAddress(a *model.Address, in model.AddressInput) bool {
	return model.NormalizeField(a.Street) == in.Street &&
		model.NormalizeField(a.Number) == in.Number &&
		model.NormalizeField(a.Unit) == in.Unit &&
		model.NormalizeField(a.Commune) == in.Commune &&
		model.NormalizeField(a.Region) == in.Region
}

func (r *addressResolver) Resolve(ctx context.Context, customerID int64, in model.AddressInput) (*model.Address, error) {
	if err := validateAddress(in); err != nil {
		return nil, err
	}
	norm := in.Normalized()

	existing, err := r.addresses.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}

	for i := range existing {
		if sameAddress(&existing[i], norm) {
			r.logger.Debug().
				Int64("customer_id", customerID).
				Int64("address_id", existing[i].ID).
				Msg("reusing existing address")
			return &existing[i], nil
		}
	}

	address, err := r.create(ctx, customerID, in.Trimmed())
	if errors.Is(err, repository.ErrConflict) {
		// another checkout swapped the primary address between our clear and insert
		r.logger.Warn().Int64("customer_id", customerID).Msg("retrying address creation after primary conflict")
		address, err = r.create(ctx, customerID, in.Trimmed())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}
	return address, nil
}

func (r *addressResolver) create(ctx context.Context, customerID int64, in model.AddressInput) (address *model.Address, err error) {
	tx, err := r.addresses.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if in.IsPrimary {
		if err = r.addresses.ClearPrimary(ctx, tx, customerID); err != nil {
			return nil, err
		}
	}

	address = addressFromInput(customerID, in)
	if err = r.addresses.Create(ctx, tx, address); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit address: %w", err)
	}

	r.logger.Info().
		Int64("customer_id", customerID).
		Int64("address_id", address.ID).
		Bool("primary", address.IsPrimary).
		Msg("address created")
	return address, nil
}

func addressFromInput(customerID int64, in model.AddressInput) *model.Address {
	return &model.Address{
		CustomerID: customerID,
		Street:     in.Street,
		Number:     in.Number,
		Unit:       in.Unit,
		Commune:    in.Commune,
		Region:     in.Region,
		PostalCode: in.PostalCode,
		IsPrimary:  in.IsPrimary,
	}
}

func (r *addressResolver) ResolveByID(ctx context.Context, customerID, addressID int64) (*model.Address, error) {
	address, err := r.addresses.GetByID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}
	if address == nil || address.CustomerID != customerID {
		r.logger.Warn().
			Int64("customer_id", customerID).
			Int64("address_id", addressID).
			Msg("address not found for customer")
		return nil, model.ErrAddressNotFound
	}
	return address, nil
}

func (r *addressResolver) ResolveGuest(ctx context.Context, guest model.GuestInput, in model.AddressInput) (customer *model.Customer, address *model.Address, err error) {
	if err := validateAddress(in); err != nil {
		return nil, nil, err
	}
	stored := in.Trimmed()

	tx, err := r.addresses.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve guest address: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	customer = &model.Customer{
		Email: guest.Email,
		Name:  guest.Name,
		Phone: guest.Phone,
	}
	if err = r.customers.CreateGuest(ctx, tx, customer); err != nil {
		return nil, nil, fmt.Errorf("failed to resolve guest address: %w", err)
	}

	// the only address of a transient customer is its primary one
	stored.IsPrimary = true
	address = addressFromInput(customer.ID, stored)
	if err = r.addresses.Create(ctx, tx, address); err != nil {
		return nil, nil, fmt.Errorf("failed to resolve guest address: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit guest address: %w", err)
	}

	r.logger.Info().
		Int64("customer_id", customer.ID).
		Int64("address_id", address.ID).
		Msg("guest customer created")
	return customer, address, nil
}
