package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeInvalidAddress      = "INVALID_ADDRESS"
	ErrCodeInvalidCouponFormat = "INVALID_COUPON_FORMAT"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeCustomerNotFound    = "CUSTOMER_NOT_FOUND"
	ErrCodeAddressNotFound     = "ADDRESS_NOT_FOUND"
	ErrCodePaymentInitFailed   = "PAYMENT_INITIATION_FAILED"
	ErrCodePaymentNotFound     = "PAYMENT_NOT_FOUND"
	ErrCodeGatewayUnavailable  = "GATEWAY_UNAVAILABLE"
	ErrCodeInvalidWebhook      = "INVALID_WEBHOOK"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// DomainError is an expected business failure that carries a stable code.
// Fields lists the offending request fields for validation failures.
type DomainError struct {
	Code    string
	Message string
	Fields  []string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so sentinels work with
// errors.Is even when a copy carries extra fields.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error naming the invalid fields.
func NewValidationError(code, message string, fields ...string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Fields:  fields,
	}
}

// Common domain errors
var (
	ErrEmptyCart           = NewDomainError(ErrCodeEmptyCart, "Cart must contain at least one line")
	ErrInvalidAddress      = NewDomainError(ErrCodeInvalidAddress, "Shipping address is missing or invalid")
	ErrInvalidCouponFormat = NewDomainError(ErrCodeInvalidCouponFormat, "Coupon code format is invalid")
	ErrProductNotFound     = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrInvalidQuantity     = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrCustomerNotFound    = NewDomainError(ErrCodeCustomerNotFound, "Customer not found")
	ErrAddressNotFound     = NewDomainError(ErrCodeAddressNotFound, "Address not found for customer")
	ErrPaymentInitFailed   = NewDomainError(ErrCodePaymentInitFailed, "Payment could not be initiated, the order was marked as failed")
	ErrPaymentNotFound     = NewDomainError(ErrCodePaymentNotFound, "Payment not found")
	ErrGatewayUnavailable  = NewDomainError(ErrCodeGatewayUnavailable, "Payment gateway is temporarily unavailable")
	ErrInvalidWebhook      = NewDomainError(ErrCodeInvalidWebhook, "Webhook payload is invalid")
	ErrOrderNotFound       = NewDomainError(ErrCodeOrderNotFound, "Order not found")
)

// IsValidation reports whether err is a request validation failure that was
// rejected before anything was persisted.
func IsValidation(err error) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	switch de.Code {
	case ErrCodeValidation, ErrCodeInvalidJSON, ErrCodeEmptyCart, ErrCodeInvalidAddress,
		ErrCodeInvalidCouponFormat, ErrCodeProductNotFound, ErrCodeInvalidQuantity:
		return true
	}
	return false
}
