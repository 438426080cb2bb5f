package model

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentState is the lifecycle state of a shipment.
type ShipmentState string

const (
	ShipmentPending       ShipmentState = "PENDING"
	ShipmentInPreparation ShipmentState = "IN_PREPARATION"
	ShipmentFailed        ShipmentState = "FAILED"
)

// Shipment is the carrier registration for an order. TrackingNumber is nil
// when the carrier call did not succeed.
type Shipment struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	OrderID        int64         `json:"orderId" db:"order_id"`
	Carrier        string        `json:"carrier" db:"carrier"`
	TrackingNumber *string       `json:"trackingNumber,omitempty" db:"tracking_number"`
	CostEstimate   int64         `json:"costEstimate" db:"cost_estimate"`
	State          ShipmentState `json:"state" db:"state"`
	LastError      *string       `json:"lastError,omitempty" db:"last_error"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}
