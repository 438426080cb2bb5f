package service

import (
	"context"
	"errors"
	"testing"

	"hardware-checkout/internal/carrier"
	"hardware-checkout/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testPackage = carrier.Package{LengthCm: 30, WidthCm: 20, HeightCm: 15, WeightGrams: 1000}

func provisionFixtures() (*model.Order, *model.Customer, *model.Address) {
	return &model.Order{ID: 42, Number: "PED-000042", Total: 39000},
		&model.Customer{ID: 3, Email: "ana@example.com", Name: "Ana", Phone: "+56911111111"},
		&model.Address{Street: "serrano", Number: "1", Commune: "santiago", Region: "metropolitana"}
}

func TestShipmentProvisioner_Success(t *testing.T) {
	ctx := context.Background()
	shipments := new(MockShipmentRepository)
	client := new(MockCarrier)
	p := NewShipmentProvisioner(shipments, client, testPackage, 25, zerolog.Nop())
	order, customer, address := provisionFixtures()

	client.On("CreateShipment", ctx, mock.MatchedBy(func(r carrier.Request) bool {
		return r.Reference == "PED-000042" &&
			r.DeclaredValue == 39000 &&
			r.Package == testPackage &&
			r.Destination.Commune == "santiago" &&
			r.Contact.Email == "ana@example.com"
	})).Return(carrier.Result{Success: true, TrackingNumber: "TRK123", Cost: 4200})
	shipments.On("Create", ctx, mock.MatchedBy(func(s *model.Shipment) bool {
		return s.OrderID == 42 && s.State == model.ShipmentInPreparation && s.Carrier == "testcarrier"
	})).Return(nil)

	shipment, warning := p.Provision(ctx, order, customer, address)

	require.NotNil(t, shipment)
	assert.Empty(t, warning)
	require.NotNil(t, shipment.TrackingNumber)
	assert.Equal(t, "TRK123", *shipment.TrackingNumber)
	assert.Equal(t, int64(4200), shipment.CostEstimate)
	assert.Nil(t, shipment.LastError)
	client.AssertExpectations(t)
	shipments.AssertExpectations(t)
}

func TestShipmentProvisioner_CarrierFailureIsTolerated(t *testing.T) {
	ctx := context.Background()
	shipments := new(MockShipmentRepository)
	client := new(MockCarrier)
	p := NewShipmentProvisioner(shipments, client, testPackage, 25, zerolog.Nop())
	order, customer, address := provisionFixtures()

	client.On("CreateShipment", ctx, mock.Anything).
		Return(carrier.Result{Success: false, Error: "commune not covered"})
	shipments.On("Create", ctx, mock.MatchedBy(func(s *model.Shipment) bool {
		return s.State == model.ShipmentPending && s.TrackingNumber == nil
	})).Return(nil)

	shipment, warning := p.Provision(ctx, order, customer, address)

	require.NotNil(t, shipment)
	assert.Equal(t, ShipmentWarning, warning)
	assert.Nil(t, shipment.TrackingNumber)
	require.NotNil(t, shipment.LastError)
	assert.Equal(t, "commune not covered", *shipment.LastError)
	shipments.AssertExpectations(t)
}

func TestShipmentProvisioner_TruncatesReference(t *testing.T) {
	ctx := context.Background()
	shipments := new(MockShipmentRepository)
	client := new(MockCarrier)
	p := NewShipmentProvisioner(shipments, client, testPackage, 6, zerolog.Nop())
	order, customer, address := provisionFixtures()

	client.On("CreateShipment", ctx, mock.MatchedBy(func(r carrier.Request) bool {
		return r.Reference == "PED-00"
	})).Return(carrier.Result{Success: true, TrackingNumber: "T"})
	shipments.On("Create", ctx, mock.Anything).Return(nil)

	_, warning := p.Provision(ctx, order, customer, address)

	assert.Empty(t, warning)
	client.AssertExpectations(t)
}

func TestShipmentProvisioner_StorageFailureOnlyWarns(t *testing.T) {
	ctx := context.Background()
	shipments := new(MockShipmentRepository)
	client := new(MockCarrier)
	p := NewShipmentProvisioner(shipments, client, testPackage, 25, zerolog.Nop())
	order, customer, address := provisionFixtures()

	client.On("CreateShipment", ctx, mock.Anything).Return(carrier.Result{Success: true, TrackingNumber: "T"})
	shipments.On("Create", ctx, mock.Anything).Return(errors.New("pool closed"))

	shipment, warning := p.Provision(ctx, order, customer, address)

	assert.Nil(t, shipment)
	assert.Equal(t, ShipmentWarning, warning)
}
