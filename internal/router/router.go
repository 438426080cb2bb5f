package router

import (
	"net/http"

	"hardware-checkout/internal/handler"
	"hardware-checkout/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Checkout *handler.CheckoutHandler
	Webhook  *handler.WebhookHandler
	Order    *handler.OrderHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: RequestID -> Recovery -> Logging -> CORS -> APIKeyAuth
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	// the webhook is authenticated by its signature instead of the API key
	r.Use(middleware.APIKeyAuth(apiKey, logger, "/health", "/payments/webhook"))

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Post("/checkout", h.Checkout.Checkout)
	r.Post("/checkout/confirm", h.Checkout.Confirm)
	r.Post("/payments/webhook", h.Webhook.Handle)
	r.Get("/orders/{id}", h.Order.GetByID)

	return r
}
