// Package notify delivers order confirmation emails.
//
// Delivery is best effort. Implementations report success as a bool and
// never fail the caller.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// OrderConfirmation is the content of a confirmation email.
type OrderConfirmation struct {
	Email          string `json:"email"`
	CustomerName   string `json:"customerName,omitempty"`
	OrderNumber    string `json:"orderNumber"`
	Total          int64  `json:"total"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

// Notifier sends order confirmations.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) bool
	Close()
}

type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier returns a Notifier that only logs. Used when no mail
// pipeline is configured.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *logNotifier) SendOrderConfirmation(_ context.Context, msg OrderConfirmation) bool {
	n.logger.Info().
		Str("email", msg.Email).
		Str("order_number", msg.OrderNumber).
		Int64("total", msg.Total).
		Str("tracking_number", msg.TrackingNumber).
		Msg("order confirmation")
	return true
}

func (n *logNotifier) Close() {}
