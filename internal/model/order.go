package model

import (
	"fmt"
	"time"
)

// OrderState is the lifecycle state of an order.
type OrderState string

const (
	OrderPending   OrderState = "PENDING"
	OrderPaid      OrderState = "PAID"
	OrderFailed    OrderState = "FAILED"
	OrderCancelled OrderState = "CANCELLED"
)

// Valid reports whether s is a known order state.
func (s OrderState) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderFailed, OrderCancelled:
		return true
	}
	return false
}

// orderNumberFormat embeds the database identity, so the number can only be
// assigned after the row exists.
const orderNumberFormat = "PED-%06d"

// FormatOrderNumber returns the human readable number for an order id.
func FormatOrderNumber(id int64) string {
	return fmt.Sprintf(orderNumberFormat, id)
}

// Order represents a placed purchase.
type Order struct {
	ID              int64       `json:"id" db:"id"`
	Number          string      `json:"number" db:"number"`
	CustomerID      int64       `json:"customerId" db:"customer_id"`
	CouponCode      *string     `json:"couponCode,omitempty" db:"coupon_code"`
	PaymentMethod   string      `json:"paymentMethod" db:"payment_method"`
	Subtotal        int64       `json:"subtotal" db:"subtotal"`
	DiscountBase    int64       `json:"discountBase" db:"discount_base"`
	DiscountCoupon  int64       `json:"discountCoupon" db:"discount_coupon"`
	Tax             int64       `json:"tax" db:"tax"`
	ShippingCost    int64       `json:"shippingCost" db:"shipping_cost"`
	Total           int64       `json:"total" db:"total"`
	State           OrderState  `json:"state" db:"state"`
	ShippingAddress string      `json:"shippingAddress" db:"shipping_address"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
	Lines           []OrderLine `json:"lines,omitempty" db:"-"`
}

// OrderLine is a priced line of an order. Both unit prices are recorded so the
// line can be recomputed later.
type OrderLine struct {
	ID                  int64  `json:"id" db:"id"`
	OrderID             int64  `json:"-" db:"order_id"`
	ProductID           int64  `json:"productId" db:"product_id"`
	Quantity            int    `json:"quantity" db:"quantity"`
	UnitPriceCharged    int64  `json:"unitPriceCharged" db:"unit_price_charged"`
	UnitPriceOriginal   int64  `json:"unitPriceOriginal" db:"unit_price_original"`
	UnitPriceDiscounted int64  `json:"unitPriceDiscounted" db:"unit_price_discounted"`
	Subtotal            int64  `json:"subtotal" db:"subtotal"`
	PriceNote           string `json:"priceNote" db:"price_note"`
}

// Price provenance notes stored on order lines.
const (
	PriceNoteOriginal   = "original"
	PriceNoteDiscounted = "discounted"
)

// Cart bounds. MaxCartLines x MaxLineQuantity x MaxUnitPrice stays far below
// the int64 range, so cart totals cannot overflow.
const (
	MaxCartLines    = 200
	MaxLineQuantity = 10_000
	MaxUnitPrice    = 100_000_000_000
)

// CartLine is a priced cart line supplied by the caller.
type CartLine struct {
	ProductID           int64 `json:"productId"`
	Quantity            int   `json:"quantity" validate:"lte=10000"`
	UnitPriceOriginal   int64 `json:"unitPriceOriginal" validate:"gte=0,lte=100000000000"`
	UnitPriceDiscounted int64 `json:"unitPriceDiscounted" validate:"gte=0,lte=100000000000"`
	LineSubtotal        int64 `json:"lineSubtotal,omitempty" validate:"gte=0"`
}

// EffectivePrice prefers the discounted price when it is positive.
func (l CartLine) EffectivePrice() int64 {
	if l.UnitPriceDiscounted > 0 {
		return l.UnitPriceDiscounted
	}
	return l.UnitPriceOriginal
}

// OrderDetail is an order with its latest payment and shipment.
type OrderDetail struct {
	Order    *Order    `json:"order"`
	Payment  *Payment  `json:"payment,omitempty"`
	Shipment *Shipment `json:"shipment,omitempty"`
}
