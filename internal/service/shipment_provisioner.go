package service

import (
	"context"

	"hardware-checkout/internal/carrier"
	"hardware-checkout/internal/model"
	"hardware-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ShipmentWarning is reported to the buyer when no tracking number was issued.
const ShipmentWarning = "Shipment could not be registered with the carrier, tracking will be available later"

type shipmentProvisioner struct {
	shipments          repository.ShipmentRepository
	carrier            carrier.Client
	pkg                carrier.Package
	referenceMaxLength int
	logger             zerolog.Logger
}

// NewShipmentProvisioner creates a provisioner that registers every order
// with the carrier using a fixed default package.
func NewShipmentProvisioner(
	shipments repository.ShipmentRepository,
	client carrier.Client,
	pkg carrier.Package,
	referenceMaxLength int,
	logger zerolog.Logger,
) ShipmentProvisioner {
	return &shipmentProvisioner{
		shipments:          shipments,
		carrier:            client,
		pkg:                pkg,
		referenceMaxLength: referenceMaxLength,
		logger:             logger.With().Str("service", "shipment").Logger(),
	}
}

func (p *shipmentProvisioner) Provision(ctx context.Context, order *model.Order, customer *model.Customer, address *model.Address) (*model.Shipment, string) {
	req := carrier.Request{
		Destination: carrier.Destination{
			Street:  address.Street,
			Number:  address.Number,
			Unit:    address.Unit,
			Commune: address.Commune,
			Region:  address.Region,
		},
		Package:       p.pkg,
		DeclaredValue: order.Total,
		Reference:     carrier.TruncateReference(order.Number, p.referenceMaxLength),
		Contact: carrier.Contact{
			Name:  customer.Name,
			Email: customer.Email,
			Phone: customer.Phone,
		},
	}

	result := p.carrier.CreateShipment(ctx, req)

	shipment := &model.Shipment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Carrier: p.carrier.Name(),
	}

	warning := ""
	if result.Success {
		tracking := result.TrackingNumber
		shipment.TrackingNumber = &tracking
		shipment.CostEstimate = result.Cost
		shipment.State = model.ShipmentInPreparation
	} else {
		reason := result.Error
		shipment.LastError = &reason
		shipment.State = model.ShipmentPending
		warning = ShipmentWarning
		p.logger.Warn().
			Int64("order_id", order.ID).
			Str("reason", reason).
			Msg("carrier did not register shipment")
	}

	if err := p.shipments.Create(ctx, shipment); err != nil {
		p.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to record shipment")
		return nil, ShipmentWarning
	}

	p.logger.Info().
		Int64("order_id", order.ID).
		Str("state", string(shipment.State)).
		Bool("tracked", shipment.TrackingNumber != nil).
		Msg("shipment recorded")

	return shipment, warning
}
