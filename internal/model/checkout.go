package model

// PaymentMethodWebpay is the only accepted payment method.
const PaymentMethodWebpay = "webpay"

// CheckoutRequest is the body of POST /checkout. Exactly one of CustomerID
// and Guest identifies the buyer; exactly one of AddressID and Address
// identifies the destination.
type CheckoutRequest struct {
	CustomerID    *int64        `json:"customerId" validate:"omitempty,gt=0"`
	Guest         *GuestInput   `json:"guest" validate:"omitempty"`
	AddressID     *int64        `json:"addressId" validate:"omitempty,gt=0"`
	Address       *AddressInput `json:"address" validate:"omitempty"`
	PaymentMethod string        `json:"paymentMethod" validate:"required,oneof=webpay"`
	CouponCode    *string       `json:"couponCode" validate:"omitempty,max=64"`
	Lines         []CartLine    `json:"lines" validate:"max=200,dive"`
}

// CheckoutResponse is returned after a successful checkout.
type CheckoutResponse struct {
	OrderID         int64      `json:"orderId"`
	OrderNumber     string     `json:"orderNumber"`
	Subtotal        int64      `json:"subtotal"`
	DiscountBase    int64      `json:"discountBase"`
	DiscountCoupon  int64      `json:"discountCoupon"`
	Tax             int64      `json:"tax"`
	ShippingCost    int64      `json:"shippingCost"`
	Total           int64      `json:"total"`
	Status          OrderState `json:"status"`
	PayURL          string     `json:"payUrl,omitempty"`
	PaymentToken    string     `json:"paymentToken,omitempty"`
	CouponApplied   bool       `json:"couponApplied"`
	TrackingNumber  string     `json:"trackingNumber,omitempty"`
	ShipmentWarning string     `json:"shipmentWarning,omitempty"`
}

// ConfirmRequest is the body of POST /checkout/confirm.
type ConfirmRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}
