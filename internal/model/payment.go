package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentState is the lifecycle state of a payment. APPROVED and FAILED are terminal.
type PaymentState string

const (
	PaymentPending  PaymentState = "PENDING"
	PaymentApproved PaymentState = "APPROVED"
	PaymentFailed   PaymentState = "FAILED"
)

// Terminal reports whether no further transition is allowed from s.
func (s PaymentState) Terminal() bool {
	return s == PaymentApproved || s == PaymentFailed
}

// Payment records a gateway transaction for an order.
type Payment struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	OrderID              int64           `json:"orderId" db:"order_id"`
	Amount               int64           `json:"amount" db:"amount"`
	Method               string          `json:"method" db:"method"`
	BuyOrder             string          `json:"buyOrder" db:"buy_order"`
	SessionID            string          `json:"sessionId" db:"session_id"`
	GatewayToken         *string         `json:"gatewayToken,omitempty" db:"gateway_token"`
	GatewayTransactionID *string         `json:"gatewayTransactionId,omitempty" db:"gateway_transaction_id"`
	State                PaymentState    `json:"state" db:"state"`
	RawGatewayPayload    json.RawMessage `json:"-" db:"raw_gateway_payload"`
	CreatedAt            time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time       `json:"updatedAt" db:"updated_at"`
}

// GatewayStatus is a payment status as reported by the gateway webhook.
type GatewayStatus string

const (
	GatewayStatusApproved  GatewayStatus = "approved"
	GatewayStatusRejected  GatewayStatus = "rejected"
	GatewayStatusCancelled GatewayStatus = "cancelled"
	GatewayStatusFailed    GatewayStatus = "failed"
	GatewayStatusExpired   GatewayStatus = "expired"
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusInProcess GatewayStatus = "in_process"
)

// Transition is the target states for a payment and its order.
type Transition struct {
	Payment PaymentState
	Order   OrderState
}

// TransitionFor maps a gateway status to the local transition it causes.
// ok is false for non-terminal statuses that must be acknowledged without change.
func TransitionFor(status GatewayStatus) (t Transition, ok bool) {
	switch status {
	case GatewayStatusApproved:
		return Transition{Payment: PaymentApproved, Order: OrderPaid}, true
	case GatewayStatusCancelled:
		return Transition{Payment: PaymentFailed, Order: OrderCancelled}, true
	case GatewayStatusRejected, GatewayStatusFailed, GatewayStatusExpired:
		return Transition{Payment: PaymentFailed, Order: OrderFailed}, true
	case GatewayStatusPending, GatewayStatusInProcess:
		return Transition{}, false
	}
	return Transition{}, false
}

// WebhookNotification is the strict inbound gateway notification.
type WebhookNotification struct {
	GatewayPaymentID  string        `json:"gatewayPaymentId" validate:"required,max=128"`
	Status            GatewayStatus `json:"status" validate:"required,oneof=approved rejected cancelled failed expired pending in_process"`
	ExternalReference string        `json:"externalReference" validate:"required,max=64"`
}

// ReconcileOutcome is the result of applying a gateway report.
type ReconcileOutcome string

const (
	OutcomeApplied          ReconcileOutcome = "APPLIED"
	OutcomeAlreadyProcessed ReconcileOutcome = "ALREADY_PROCESSED"
	OutcomeIgnored          ReconcileOutcome = "IGNORED"
)

// ReconcileResult describes the state of a payment after reconciliation.
type ReconcileResult struct {
	Outcome       ReconcileOutcome `json:"outcome"`
	OrderID       int64            `json:"orderId"`
	OrderNumber   string           `json:"orderNumber"`
	OrderStatus   OrderState       `json:"orderStatus"`
	PaymentStatus PaymentState     `json:"paymentStatus"`
}
