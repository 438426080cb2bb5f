package service

import (
	"context"
	"errors"
	"testing"

	"hardware-checkout/internal/model"
	"hardware-checkout/internal/pricing"
	"hardware-checkout/internal/shipping"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type checkoutMocks struct {
	products    *MockProductRepository
	customers   *MockCustomerRepository
	addresses   *MockAddressResolver
	factory     *MockOrderFactory
	provisioner *MockProvisioner
	initiator   *MockInitiator
}

func newCheckoutMocks() *checkoutMocks {
	return &checkoutMocks{
		products:    new(MockProductRepository),
		customers:   new(MockCustomerRepository),
		addresses:   new(MockAddressResolver),
		factory:     new(MockOrderFactory),
		provisioner: new(MockProvisioner),
		initiator:   new(MockInitiator),
	}
}

func (m *checkoutMocks) service() CheckoutService {
	return NewCheckoutService(CheckoutDeps{
		Products:    m.products,
		Customers:   m.customers,
		Addresses:   m.addresses,
		Factory:     m.factory,
		Provisioner: m.provisioner,
		Initiator:   m.initiator,
		Pricer:      pricing.NewEngine(nil),
		Rates:       shipping.NewRateTable(5000, map[string]int64{"Magallanes": 12000}),
	}, zerolog.Nop())
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func registeredRequest() *model.CheckoutRequest {
	return &model.CheckoutRequest{
		CustomerID:    int64Ptr(3),
		AddressID:     int64Ptr(9),
		PaymentMethod: model.PaymentMethodWebpay,
		Lines: []model.CartLine{
			{ProductID: 1, Quantity: 2, UnitPriceOriginal: 15000},
		},
	}
}

// orderFromDraft mimics OrderFactory for a draft.
func orderFromDraft(draft OrderDraft) *model.Order {
	return &model.Order{
		ID:             42,
		Number:         model.FormatOrderNumber(42),
		CustomerID:     draft.Customer.ID,
		PaymentMethod:  draft.PaymentMethod,
		Subtotal:       draft.Quote.SubtotalBase,
		DiscountBase:   draft.Quote.DiscountBase,
		DiscountCoupon: draft.Quote.DiscountCoupon,
		Tax:            draft.Quote.Tax,
		ShippingCost:   draft.Quote.ShippingCost,
		Total:          draft.Quote.TotalFinal,
		State:          model.OrderPending,
	}
}

func TestCheckoutService_Checkout_Success(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()
	svc := m.service()

	customer := &model.Customer{ID: 3, Email: "ana@example.com", Name: "Ana"}
	address := &model.Address{ID: 9, CustomerID: 3, Region: "metropolitana"}
	token := "tok-1"
	tracking := "TRK123"

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(nil)
	m.customers.On("GetByID", ctx, int64(3)).Return(customer, nil)
	m.addresses.On("ResolveByID", ctx, int64(3), int64(9)).Return(address, nil)

	var created *model.Order
	m.factory.On("Create", ctx, mock.MatchedBy(func(d OrderDraft) bool {
		return d.Customer == customer && d.Address == address && d.Quote.ShippingCost == 5000
	})).Return(func(_ context.Context, d OrderDraft) (*model.Order, error) {
		created = orderFromDraft(d)
		return created, nil
	})
	m.provisioner.On("Provision", mock.Anything, mock.AnythingOfType("*model.Order"), customer, address).
		Return(&model.Shipment{TrackingNumber: &tracking}, "")
	m.initiator.On("Initiate", mock.Anything, mock.AnythingOfType("*model.Order")).
		Return(&PaymentSession{
			Payment:     &model.Payment{GatewayToken: &token},
			RedirectURL: "https://pay.example/init?token_ws=tok-1",
		}, nil)

	resp, err := svc.Checkout(ctx, registeredRequest())

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(42), resp.OrderID)
	assert.Equal(t, "PED-000042", resp.OrderNumber)
	assert.Equal(t, int64(30000), resp.Subtotal)
	assert.Equal(t, int64(0), resp.DiscountBase)
	assert.Equal(t, int64(5000), resp.ShippingCost)
	assert.Equal(t, int64(35000), resp.Total)
	assert.Equal(t, int64(5588), resp.Tax)
	assert.Equal(t, model.OrderPending, resp.Status)
	assert.Equal(t, "tok-1", resp.PaymentToken)
	assert.Equal(t, "https://pay.example/init?token_ws=tok-1", resp.PayURL)
	assert.Equal(t, "TRK123", resp.TrackingNumber)
	assert.Empty(t, resp.ShipmentWarning)
	assert.False(t, resp.CouponApplied)

	m.factory.AssertExpectations(t)
	m.provisioner.AssertExpectations(t)
	m.initiator.AssertExpectations(t)
}

func TestCheckoutService_Checkout_RegionalShippingAndCarrierWarning(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()
	svc := m.service()

	customer := &model.Customer{ID: 3}
	address := &model.Address{ID: 9, CustomerID: 3, Region: "magallanes"}
	token := "tok-1"

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(nil)
	m.customers.On("GetByID", ctx, int64(3)).Return(customer, nil)
	m.addresses.On("ResolveByID", ctx, int64(3), int64(9)).Return(address, nil)
	m.factory.On("Create", ctx, mock.MatchedBy(func(d OrderDraft) bool {
		return d.Quote.ShippingCost == 12000
	})).Return(func(_ context.Context, d OrderDraft) (*model.Order, error) {
		return orderFromDraft(d), nil
	})
	m.provisioner.On("Provision", mock.Anything, mock.Anything, customer, address).
		Return(&model.Shipment{State: model.ShipmentPending}, ShipmentWarning)
	m.initiator.On("Initiate", mock.Anything, mock.Anything).
		Return(&PaymentSession{Payment: &model.Payment{GatewayToken: &token}}, nil)

	resp, err := svc.Checkout(ctx, registeredRequest())

	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, resp.Status)
	assert.Equal(t, int64(42000), resp.Total)
	assert.Equal(t, ShipmentWarning, resp.ShipmentWarning)
	assert.Empty(t, resp.TrackingNumber)
}

func TestCheckoutService_Checkout_GuestWithRawAddress(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()
	svc := m.service()

	guest := model.GuestInput{Email: "visita@example.com", Name: "Visita"}
	rawAddr := model.AddressInput{Street: "Serrano", Number: "1", Commune: "Santiago", Region: "Metropolitana"}
	customer := &model.Customer{ID: 50, Email: guest.Email}
	address := &model.Address{ID: 60, CustomerID: 50, Region: "metropolitana"}
	token := "tok-2"

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(nil)
	m.addresses.On("ResolveGuest", ctx, guest, rawAddr).Return(customer, address, nil)
	m.factory.On("Create", ctx, mock.MatchedBy(func(d OrderDraft) bool {
		return d.Customer.Guest
	})).Return(func(_ context.Context, d OrderDraft) (*model.Order, error) {
		return orderFromDraft(d), nil
	})
	m.provisioner.On("Provision", mock.Anything, mock.Anything, customer, address).Return(nil, ShipmentWarning)
	m.initiator.On("Initiate", mock.Anything, mock.Anything).
		Return(&PaymentSession{Payment: &model.Payment{GatewayToken: &token}}, nil)

	req := &model.CheckoutRequest{
		Guest:         &guest,
		Address:       &rawAddr,
		PaymentMethod: model.PaymentMethodWebpay,
		Lines:         []model.CartLine{{ProductID: 1, Quantity: 1, UnitPriceOriginal: 9990}},
	}
	resp, err := svc.Checkout(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "tok-2", resp.PaymentToken)
	m.customers.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_AppliesCoupon(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()
	catalog := staticCatalog{"BIENVENIDA10": {Code: "BIENVENIDA10", Type: model.CouponPercent, Value: 10, Active: true}}
	svc := NewCheckoutService(CheckoutDeps{
		Products:    m.products,
		Customers:   m.customers,
		Addresses:   m.addresses,
		Factory:     m.factory,
		Provisioner: m.provisioner,
		Initiator:   m.initiator,
		Pricer:      pricing.NewEngine(catalog),
		Rates:       shipping.NewRateTable(0, nil),
	}, zerolog.Nop())

	customer := &model.Customer{ID: 3}
	address := &model.Address{ID: 9, CustomerID: 3}
	token := "tok"

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(nil)
	m.customers.On("GetByID", ctx, int64(3)).Return(customer, nil)
	m.addresses.On("ResolveByID", ctx, int64(3), int64(9)).Return(address, nil)
	m.factory.On("Create", ctx, mock.Anything).Return(func(_ context.Context, d OrderDraft) (*model.Order, error) {
		return orderFromDraft(d), nil
	})
	m.provisioner.On("Provision", mock.Anything, mock.Anything, customer, address).Return(nil, "")
	m.initiator.On("Initiate", mock.Anything, mock.Anything).
		Return(&PaymentSession{Payment: &model.Payment{GatewayToken: &token}}, nil)

	req := registeredRequest()
	req.CouponCode = strPtr("bienvenida10")
	resp, err := svc.Checkout(ctx, req)

	require.NoError(t, err)
	assert.True(t, resp.CouponApplied)
	assert.Equal(t, int64(3000), resp.DiscountCoupon)
	assert.Equal(t, int64(27000), resp.Total)
}

type staticCatalog map[string]*model.Coupon

func (c staticCatalog) Lookup(code string) (*model.Coupon, bool) {
	coupon, ok := c[code]
	return coupon, ok
}

func TestCheckoutService_Checkout_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		mutate       func(r *model.CheckoutRequest)
		expectedErr  error
		expectedCode string
	}{
		{
			name:        "Empty cart",
			mutate:      func(r *model.CheckoutRequest) { r.Lines = nil },
			expectedErr: model.ErrEmptyCart,
		},
		{
			name:        "Zero quantity",
			mutate:      func(r *model.CheckoutRequest) { r.Lines[0].Quantity = 0 },
			expectedErr: model.ErrInvalidQuantity,
		},
		{
			name:        "Negative quantity",
			mutate:      func(r *model.CheckoutRequest) { r.Lines[0].Quantity = -5 },
			expectedErr: model.ErrInvalidQuantity,
		},
		{
			name:        "Quantity above limit",
			mutate:      func(r *model.CheckoutRequest) { r.Lines[0].Quantity = model.MaxLineQuantity + 1 },
			expectedErr: model.ErrInvalidQuantity,
		},
		{
			name: "Unit price large enough to overflow the total",
			mutate: func(r *model.CheckoutRequest) {
				r.Lines[0].UnitPriceOriginal = 1 << 62
				r.Lines[0].Quantity = 4
			},
			expectedCode: model.ErrCodeValidation,
		},
		{
			name:         "Discounted price above limit",
			mutate:       func(r *model.CheckoutRequest) { r.Lines[0].UnitPriceDiscounted = model.MaxUnitPrice + 1 },
			expectedCode: model.ErrCodeValidation,
		},
		{
			name:         "Negative unit price",
			mutate:       func(r *model.CheckoutRequest) { r.Lines[0].UnitPriceOriginal = -1 },
			expectedCode: model.ErrCodeValidation,
		},
		{
			name: "Too many lines",
			mutate: func(r *model.CheckoutRequest) {
				for len(r.Lines) <= model.MaxCartLines {
					r.Lines = append(r.Lines, r.Lines[0])
				}
			},
			expectedCode: model.ErrCodeValidation,
		},
		{
			name:         "Missing product id",
			mutate:       func(r *model.CheckoutRequest) { r.Lines[0].ProductID = 0 },
			expectedCode: model.ErrCodeValidation,
		},
		{
			name:        "Malformed coupon",
			mutate:      func(r *model.CheckoutRequest) { r.CouponCode = strPtr("no spaces!") },
			expectedErr: model.ErrInvalidCouponFormat,
		},
		{
			name:         "No buyer",
			mutate:       func(r *model.CheckoutRequest) { r.CustomerID = nil },
			expectedCode: model.ErrCodeValidation,
		},
		{
			name: "Customer and guest",
			mutate: func(r *model.CheckoutRequest) {
				r.Guest = &model.GuestInput{Email: "a@b.cl", Name: "A"}
			},
			expectedCode: model.ErrCodeValidation,
		},
		{
			name:        "No address",
			mutate:      func(r *model.CheckoutRequest) { r.AddressID = nil },
			expectedErr: model.ErrInvalidAddress,
		},
		{
			name: "Address id and raw address",
			mutate: func(r *model.CheckoutRequest) {
				r.Address = &model.AddressInput{Street: "a", Number: "1", Commune: "c", Region: "r"}
			},
			expectedErr: model.ErrInvalidAddress,
		},
		{
			name: "Guest with saved address",
			mutate: func(r *model.CheckoutRequest) {
				r.CustomerID = nil
				r.Guest = &model.GuestInput{Email: "a@b.cl", Name: "A"}
			},
			expectedErr: model.ErrInvalidAddress,
		},
		{
			name: "Raw address missing fields",
			mutate: func(r *model.CheckoutRequest) {
				r.AddressID = nil
				r.Address = &model.AddressInput{Street: "Serrano"}
			},
			expectedErr: model.ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newCheckoutMocks()
			svc := m.service()
			req := registeredRequest()
			tt.mutate(req)

			resp, err := svc.Checkout(ctx, req)

			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, model.IsValidation(err))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
			if tt.expectedCode != "" {
				var de *model.DomainError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, tt.expectedCode, de.Code)
			}
			m.products.AssertNotCalled(t, "ValidateProductsExist", mock.Anything, mock.Anything)
			m.factory.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_Checkout_NilRequest(t *testing.T) {
	m := newCheckoutMocks()
	_, err := m.service().Checkout(context.Background(), nil)
	require.Error(t, err)
}

func TestCheckoutService_Checkout_ProductNotFound(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()
	svc := m.service()
	notFound := model.NewValidationError(model.ErrCodeProductNotFound, "Products not found: 1", "lines")

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(notFound)

	resp, err := svc.Checkout(ctx, registeredRequest())

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
	m.customers.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_CustomerNotFound(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()
	svc := m.service()

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(nil)
	m.customers.On("GetByID", ctx, int64(3)).Return(nil, nil)

	_, err := svc.Checkout(ctx, registeredRequest())

	assert.ErrorIs(t, err, model.ErrCustomerNotFound)
	m.addresses.AssertNotCalled(t, "ResolveByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_PaymentInitFailure(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()
	svc := m.service()

	customer := &model.Customer{ID: 3}
	address := &model.Address{ID: 9, CustomerID: 3}

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(nil)
	m.customers.On("GetByID", ctx, int64(3)).Return(customer, nil)
	m.addresses.On("ResolveByID", ctx, int64(3), int64(9)).Return(address, nil)
	m.factory.On("Create", ctx, mock.Anything).Return(func(_ context.Context, d OrderDraft) (*model.Order, error) {
		return orderFromDraft(d), nil
	})
	m.provisioner.On("Provision", mock.Anything, mock.Anything, customer, address).Return(nil, "")
	m.initiator.On("Initiate", mock.Anything, mock.Anything).
		Return(nil, model.NewDomainError(model.ErrCodePaymentInitFailed, "Payment could not be initiated, order PED-000042 was marked as failed"))

	resp, err := svc.Checkout(ctx, registeredRequest())

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrPaymentInitFailed)
	assert.False(t, model.IsValidation(err))
}

func TestCheckoutService_Checkout_OrderFactoryFailure(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()
	svc := m.service()

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(nil)
	m.customers.On("GetByID", ctx, int64(3)).Return(&model.Customer{ID: 3}, nil)
	m.addresses.On("ResolveByID", ctx, int64(3), int64(9)).Return(&model.Address{ID: 9, CustomerID: 3}, nil)
	m.factory.On("Create", ctx, mock.Anything).Return(nil, errors.New("failed to create order: boom"))

	_, err := svc.Checkout(ctx, registeredRequest())

	require.Error(t, err)
	m.provisioner.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.initiator.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_ContinuesAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newCheckoutMocks()
	svc := m.service()
	token := "tok"

	m.products.On("ValidateProductsExist", ctx, []int64{1}).Return(nil)
	m.customers.On("GetByID", ctx, int64(3)).Return(&model.Customer{ID: 3}, nil)
	m.addresses.On("ResolveByID", ctx, int64(3), int64(9)).Return(&model.Address{ID: 9, CustomerID: 3}, nil)
	m.factory.On("Create", ctx, mock.Anything).Return(func(_ context.Context, d OrderDraft) (*model.Order, error) {
		cancel()
		return orderFromDraft(d), nil
	})
	m.provisioner.On("Provision", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }),
		mock.Anything, mock.Anything, mock.Anything).Return(nil, "")
	m.initiator.On("Initiate", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything).
		Return(&PaymentSession{Payment: &model.Payment{GatewayToken: &token}}, nil)

	_, err := svc.Checkout(ctx, registeredRequest())

	require.NoError(t, err)
	m.initiator.AssertExpectations(t)
}
