package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "PED-000042", FormatOrderNumber(42))
	assert.Equal(t, "PED-000001", FormatOrderNumber(1))
	assert.Equal(t, "PED-1234567", FormatOrderNumber(1234567))
}

func TestTransitionFor(t *testing.T) {
	tests := []struct {
		status  GatewayStatus
		payment PaymentState
		order   OrderState
		ok      bool
	}{
		{GatewayStatusApproved, PaymentApproved, OrderPaid, true},
		{GatewayStatusRejected, PaymentFailed, OrderFailed, true},
		{GatewayStatusFailed, PaymentFailed, OrderFailed, true},
		{GatewayStatusExpired, PaymentFailed, OrderFailed, true},
		{GatewayStatusCancelled, PaymentFailed, OrderCancelled, true},
		{GatewayStatusPending, "", "", false},
		{GatewayStatusInProcess, "", "", false},
		{GatewayStatus("refunded"), "", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			tr, ok := TransitionFor(tt.status)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.payment, tr.Payment)
			assert.Equal(t, tt.order, tr.Order)
		})
	}
}

func TestPaymentState_Terminal(t *testing.T) {
	assert.False(t, PaymentPending.Terminal())
	assert.True(t, PaymentApproved.Terminal())
	assert.True(t, PaymentFailed.Terminal())
}

func TestOrderState_Valid(t *testing.T) {
	for _, s := range []OrderState{OrderPending, OrderPaid, OrderFailed, OrderCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderState("SHIPPED").Valid())
}

func TestCartLine_EffectivePrice(t *testing.T) {
	assert.Equal(t, int64(8000), CartLine{UnitPriceOriginal: 10000, UnitPriceDiscounted: 8000}.EffectivePrice())
	assert.Equal(t, int64(10000), CartLine{UnitPriceOriginal: 10000}.EffectivePrice())
}

func TestAddressInput_Normalized(t *testing.T) {
	in := AddressInput{
		Street:     "  Av.   Providencia ",
		Number:     "1234",
		Commune:    "PROVIDENCIA",
		Region:     " Metropolitana\t",
		PostalCode: " 7500000 ",
		IsPrimary:  true,
	}

	got := in.Normalized()
	assert.Equal(t, "av. providencia", got.Street)
	assert.Equal(t, "providencia", got.Commune)
	assert.Equal(t, "metropolitana", got.Region)
	assert.Equal(t, "7500000", got.PostalCode)
	assert.True(t, got.IsPrimary)
}

func TestAddressInput_Trimmed(t *testing.T) {
	got := AddressInput{Street: "  Av.  Providencia ", Number: " 1234", Commune: "Providencia\t", IsPrimary: true}.Trimmed()

	assert.Equal(t, "Av.  Providencia", got.Street)
	assert.Equal(t, "1234", got.Number)
	assert.Equal(t, "Providencia", got.Commune)
	assert.True(t, got.IsPrimary)
}

func TestAddressInput_MissingFields(t *testing.T) {
	assert.Empty(t, AddressInput{Street: "a", Number: "1", Commune: "c", Region: "r"}.MissingFields())
	assert.Equal(t,
		[]string{"address.number", "address.region"},
		AddressInput{Street: "a", Number: "  ", Commune: "c"}.MissingFields())
}

func TestAddress_Snapshot(t *testing.T) {
	a := &Address{Street: "serrano", Number: "1", Commune: "santiago", Region: "metropolitana"}
	assert.Equal(t, "serrano 1, santiago, metropolitana", a.Snapshot())

	a.Unit = "depto 4"
	a.PostalCode = "8320000"
	assert.Equal(t, "serrano 1, depto 4, santiago, metropolitana 8320000", a.Snapshot())
}

func TestCoupon_ApplicableAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	base := Coupon{Code: "X", Active: true, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}

	open := base
	open.StartsAt, open.EndsAt = time.Time{}, time.Time{}
	inactive := base
	inactive.Active = false
	early := base
	early.StartsAt = now.Add(time.Minute)
	late := base
	late.EndsAt = now.Add(-time.Minute)

	assert.True(t, base.ApplicableAt(now))
	assert.True(t, open.ApplicableAt(now))
	assert.False(t, inactive.ApplicableAt(now))
	assert.False(t, early.ApplicableAt(now))
	assert.False(t, late.ApplicableAt(now))

	var missing *Coupon
	assert.False(t, missing.ApplicableAt(now))
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "BIENVENIDA10", NormalizeCouponCode("  bienvenida10 "))
}

func TestDomainError_Is(t *testing.T) {
	withFields := NewValidationError(ErrCodeInvalidAddress, "bad", "address.street")
	wrapped := fmt.Errorf("checkout: %w", withFields)

	assert.True(t, errors.Is(wrapped, ErrInvalidAddress))
	assert.False(t, errors.Is(wrapped, ErrEmptyCart))
	assert.False(t, errors.Is(errors.New("boom"), ErrInvalidAddress))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrEmptyCart))
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", ErrProductNotFound)))
	assert.False(t, IsValidation(ErrPaymentInitFailed))
	assert.False(t, IsValidation(ErrGatewayUnavailable))
	assert.False(t, IsValidation(errors.New("db down")))
}
